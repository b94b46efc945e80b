// Package app wires the payment flow from configuration.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/artifact"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/core"
	"github.com/joseph-ayodele/payment-orchestrator/internal/core/async"
	"github.com/joseph-ayodele/payment-orchestrator/internal/export"
	"github.com/joseph-ayodele/payment-orchestrator/internal/extraction"
	"github.com/joseph-ayodele/payment-orchestrator/internal/feedback"
	"github.com/joseph-ayodele/payment-orchestrator/internal/onboarding"
	"github.com/joseph-ayodele/payment-orchestrator/internal/platform"
	"github.com/joseph-ayodele/payment-orchestrator/internal/providers"
	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

// App holds every long-lived collaborator of the payment flow.
type App struct {
	Config     *common.Config
	DB         *repository.DB
	API        *api.Client
	Store      repository.KVStore
	History    repository.PaymentRequestRepository
	Opener     platform.URLOpener
	Registry   *providers.Registry
	Onboarding *onboarding.Counter
	Artifacts  *artifact.Store
	Feedback   *async.FeedbackQueue
	Gateway    *extraction.Gateway
	Export     *export.Service

	logger *slog.Logger
}

// New opens and migrates the store and builds the collaborators. Close
// releases them.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	client := api.NewClient(cfg.API, api.WithLogger(logger))
	store := repository.NewKVStore(db, logger)
	history := repository.NewPaymentRequestRepository(db, logger)
	opener := platform.FromConfig(cfg.Platform.OpenCommand, cfg.Platform.InstalledSchemes, logger)

	queue := async.NewFeedbackQueue(feedback.NewSubmitter(client, logger), logger,
		async.WithWorkers(cfg.Orchestrator.FeedbackWorkers),
		async.WithQueueSize(cfg.Orchestrator.FeedbackQueueSize),
		async.WithProcessTimeout(cfg.Orchestrator.FeedbackTimeout),
	)

	a := &App{
		Config:     cfg,
		DB:         db,
		API:        client,
		Store:      store,
		History:    history,
		Opener:     opener,
		Registry:   providers.NewRegistry(client, opener, store, cfg.Platform.Name, logger),
		Onboarding: onboarding.NewCounter(store, logger),
		Artifacts:  artifact.NewStore(cfg.Orchestrator.ArtifactDir, logger),
		Feedback:   queue,
		Gateway:    extraction.NewGateway(client, logger),
		Export:     export.NewService(history, logger),
		logger:     logger,
	}
	logger.Info("app.ready",
		"platform", cfg.Platform.Name,
		"dialect", db.Dialect(),
		"installed_schemes", len(cfg.Platform.InstalledSchemes),
	)
	return a, nil
}

// NewOrchestrator starts a fresh payment session over the shared collaborators.
func (a *App) NewOrchestrator() *core.Orchestrator {
	return core.NewOrchestrator(core.Config{
		Platform:        a.Config.Platform.Name,
		OnboardingLimit: a.Config.Orchestrator.OnboardingLimit,
	}, core.Dependencies{
		Registry:   a.Registry,
		Payments:   a.API,
		Onboarding: a.Onboarding,
		Opener:     a.Opener,
		Artifacts:  a.Artifacts,
		History:    a.History,
		Feedback:   a.Feedback,
	}, a.logger)
}

// Close drains pending feedback and closes the store.
func (a *App) Close(ctx context.Context) {
	a.Feedback.Shutdown(ctx)
	a.DB.Close()
}
