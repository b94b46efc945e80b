// Package core drives a payment from provider selection to the hand-off of
// the created payment request.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/artifact"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/extraction"
	"github.com/joseph-ayodele/payment-orchestrator/internal/feedback"
	"github.com/joseph-ayodele/payment-orchestrator/internal/onboarding"
	"github.com/joseph-ayodele/payment-orchestrator/internal/platform"
	"github.com/joseph-ayodele/payment-orchestrator/internal/providers"
	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
	"github.com/joseph-ayodele/payment-orchestrator/internal/validation"
)

// PayInput is what the user confirmed. Review is set when the fields came
// from an analysed document; feedback is only sent in that case.
type PayInput struct {
	Fields validation.Fields
	Review *entity.DataForReview
}

// PayInputFromReview prefills the fields from a document's extractions.
func PayInputFromReview(data *entity.DataForReview) PayInput {
	in := PayInput{Review: data}
	if data == nil {
		return in
	}
	ex := data.Extractions
	in.Fields.Recipient, _ = extraction.ExtractField(ex, constants.ExtractionPaymentRecipient)
	in.Fields.IBAN, _ = extraction.ExtractField(ex, constants.ExtractionIBAN)
	in.Fields.BIC, _ = extraction.ExtractField(ex, constants.ExtractionBIC)
	in.Fields.Amount, _ = extraction.ExtractField(ex, constants.ExtractionAmountToPay)
	in.Fields.Purpose, _ = extraction.ExtractField(ex, constants.ExtractionPaymentPurpose)
	return in
}

// Dependencies are the collaborators of an Orchestrator. History and
// Feedback are optional.
type Dependencies struct {
	Registry   *providers.Registry
	Payments   api.PaymentAPI
	Onboarding *onboarding.Counter
	Opener     platform.URLOpener
	Artifacts  *artifact.Store
	History    repository.PaymentRequestRepository
	Feedback   feedback.Queue
}

// Config tunes the flow.
type Config struct {
	Platform        constants.Platform
	OnboardingLimit int
}

// Orchestrator is the payment state machine of one user session. All
// transitions are serialized; event handlers run outside the state lock.
type Orchestrator struct {
	id     string
	cfg    Config
	deps   Dependencies
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	busy      bool
	provider  *entity.PaymentProvider
	sorted    []entity.PaymentProvider
	info      *entity.PaymentInfo
	review    *entity.DataForReview
	requestID string
	outcome   *Outcome
	lastErr   error
	handlers  map[int]Handler
	nextSub   int
	pending   []Event

	dispatchMu sync.Mutex
}

// NewOrchestrator builds an orchestrator in the Idle state.
func NewOrchestrator(cfg Config, deps Dependencies, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Platform == "" {
		cfg.Platform = constants.PlatformIOS
	}
	if cfg.OnboardingLimit == 0 {
		cfg.OnboardingLimit = constants.OnboardingShareLimit
	}
	id := uuid.NewString()
	return &Orchestrator{
		id:       id,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With("session_id", id),
		state:    StateIdle,
		handlers: make(map[int]Handler),
	}
}

// ID identifies the session in logs.
func (o *Orchestrator) ID() string { return o.id }

// Subscribe registers h and returns a function that removes it.
func (o *Orchestrator) Subscribe(h Handler) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.handlers[id] = h
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.handlers, id)
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SelectedProvider returns the selected provider or nil.
func (o *Orchestrator) SelectedProvider() *entity.PaymentProvider {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneProvider(o.provider)
}

// Providers returns the sorted provider list loaded by Start.
func (o *Orchestrator) Providers() []entity.PaymentProvider {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]entity.PaymentProvider(nil), o.sorted...)
}

// LastError returns the error that moved the flow into Error.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Outcome returns the latest hand-off outcome.
func (o *Orchestrator) Outcome() *Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcome == nil {
		return nil
	}
	cp := *o.outcome
	return &cp
}

// RequestID returns the id of the current payment request, if any.
func (o *Orchestrator) RequestID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requestID
}

// Start loads and sorts providers and selects the persisted provider, or the
// first one when nothing usable was persisted.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.acquire(); err != nil {
		return err
	}
	logger := common.LoggerFrom(ctx, o.logger)

	list, err := o.deps.Registry.LoadProviders(ctx)
	if err != nil {
		o.fail(err)
		return err
	}
	sorted := o.deps.Registry.SortProviders(list)
	if !o.usable(sorted) {
		logger.Warn("orchestrator.start.no_installed_apps", "providers", len(list), "supported", len(sorted))
		o.fail(common.ErrNoInstalledApps)
		return common.ErrNoInstalledApps
	}

	selected, err := o.deps.Registry.RestoreSelection(ctx, sorted)
	if err != nil {
		logger.Warn("orchestrator.start.restore_failed", "error", err)
	}
	if selected == nil {
		first := sorted[0]
		selected = &first
	}

	o.mu.Lock()
	o.sorted = sorted
	o.busy = false
	o.resetAttemptLocked()
	err = o.selectLocked(*selected)
	o.mu.Unlock()
	o.flush()
	if err != nil {
		return err
	}
	logger.Info("orchestrator.start.ok", "providers", len(sorted), "provider_id", selected.ID)
	return nil
}

// usable is false when no provider is supported, or when none is installed
// and none can take a shared PDF.
func (o *Orchestrator) usable(sorted []entity.PaymentProvider) bool {
	for _, p := range sorted {
		if o.deps.Registry.IsInstalled(p) || p.SupportsOpenWith(o.cfg.Platform) {
			return true
		}
	}
	return false
}

// SelectProvider makes p the selected provider and persists the choice.
func (o *Orchestrator) SelectProvider(ctx context.Context, p entity.PaymentProvider) error {
	if !p.SupportedOn(o.cfg.Platform) {
		return fmt.Errorf("provider %s not supported on %s: %w", p.ID, o.cfg.Platform, common.ErrInvalidInput)
	}
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return common.ErrRequestInFlight
	}
	o.resetAttemptLocked()
	err := o.selectLocked(p)
	o.mu.Unlock()
	o.flush()
	if err != nil {
		return err
	}
	if err := o.deps.Registry.PersistSelection(ctx, p); err != nil {
		common.LoggerFrom(ctx, o.logger).Warn("orchestrator.select.persist_failed", "provider_id", p.ID, "error", err)
	}
	return nil
}

// SelectProviderByID selects a provider from the loaded list.
func (o *Orchestrator) SelectProviderByID(ctx context.Context, id string) error {
	for _, p := range o.Providers() {
		if p.ID == id {
			return o.SelectProvider(ctx, p)
		}
	}
	if p, ok := o.deps.Registry.Find(id); ok {
		return o.SelectProvider(ctx, p)
	}
	return fmt.Errorf("provider %s: %w", id, common.ErrNotFound)
}

func (o *Orchestrator) selectLocked(p entity.PaymentProvider) error {
	if err := o.transitionLocked(StateProviderSelected); err != nil {
		return err
	}
	o.provider = cloneProvider(&p)
	o.emitLocked(Event{Type: EventProviderSelected, Provider: cloneProvider(&p)})
	return nil
}

// Pay validates in and, unless onboarding has to be shown first, creates the
// payment request and hands it off. A nil Outcome with a nil error means the
// flow stopped in OnboardingPending.
func (o *Orchestrator) Pay(ctx context.Context, in PayInput) (*Outcome, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, common.ErrRequestInFlight
	}
	if o.provider == nil {
		o.mu.Unlock()
		return nil, common.ErrNoProviderSelected
	}
	// the onboarding already counted for this attempt is still unconfirmed
	onboardingShown := o.state == StateOnboardingPending
	if err := o.transitionLocked(StateValidating); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.busy = true
	o.resetAttemptLocked()
	provider := *o.provider
	o.mu.Unlock()
	o.flush()

	logger := common.LoggerFrom(ctx, o.logger).With("provider_id", provider.ID)

	info, err := validation.Validate(in.Fields)
	if err != nil {
		logger.Info("orchestrator.pay.validation_failed", "error", err)
		o.fail(err)
		return nil, err
	}
	info.PaymentProviderID = provider.ID
	info.PaymentUniversalLink = universalLink(provider)
	if in.Review != nil {
		info.SourceDocumentLocation = in.Review.Document.Links.Document
	}

	o.mu.Lock()
	o.info = &info
	o.review = in.Review
	o.mu.Unlock()

	if onboardingShown || o.needsOnboarding(ctx, logger, provider) {
		o.mu.Lock()
		err := o.transitionLocked(StateOnboardingPending)
		if err == nil {
			o.emitLocked(Event{Type: EventOnboardingRequired, Provider: cloneProvider(&provider)})
		}
		o.busy = false
		o.mu.Unlock()
		o.flush()
		return nil, err
	}
	return o.create(ctx)
}

// needsOnboarding counts a presentation when the share-invoice onboarding
// is due for an OpenWith-only provider. Counter failures skip onboarding.
func (o *Orchestrator) needsOnboarding(ctx context.Context, logger *slog.Logger, p entity.PaymentProvider) bool {
	if o.deps.Onboarding == nil || p.SupportsGPC(o.cfg.Platform) || !p.SupportsOpenWith(o.cfg.Platform) {
		return false
	}
	count, err := o.deps.Onboarding.PresentationCount(ctx, p.Name)
	if err != nil {
		logger.Warn("orchestrator.onboarding.count_failed", "error", err)
		return false
	}
	if count >= o.cfg.OnboardingLimit {
		return false
	}
	if _, err := o.deps.Onboarding.IncrementPresentationCount(ctx, p.Name); err != nil {
		logger.Warn("orchestrator.onboarding.increment_failed", "error", err)
	}
	logger.Info("orchestrator.onboarding.required", "count", count+1, "limit", o.cfg.OnboardingLimit)
	return true
}

// ConfirmOnboarding continues a flow stopped in OnboardingPending.
func (o *Orchestrator) ConfirmOnboarding(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, common.ErrRequestInFlight
	}
	if o.state != StateOnboardingPending || o.info == nil {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("confirm onboarding in %s: %w", st, common.ErrInvalidTransition)
	}
	o.busy = true
	o.mu.Unlock()
	return o.create(ctx)
}

// Retry creates a new payment request with the same fields after a failed
// creation. Each attempt yields a new server id.
func (o *Orchestrator) Retry(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, common.ErrRequestInFlight
	}
	if o.state != StateError || o.info == nil || !errors.Is(o.lastErr, common.ErrRequestCreationFailed) {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("retry in %s: %w", st, common.ErrInvalidTransition)
	}
	o.busy = true
	o.mu.Unlock()
	return o.create(ctx)
}

// Resume re-evaluates the hand-off of the current request, after the
// provider app was installed or after a failed PDF download.
func (o *Orchestrator) Resume(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, common.ErrRequestInFlight
	}
	resumable := o.requestID != "" && (o.state == StateInstallRequired || o.state == StateError)
	if !resumable {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("resume in %s: %w", st, common.ErrInvalidTransition)
	}
	if err := o.transitionLocked(StateRequestCreated); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.busy = true
	o.lastErr = nil
	o.mu.Unlock()
	o.flush()
	return o.handOff(ctx)
}

// Reset abandons the current attempt. The selection is kept.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return common.ErrRequestInFlight
	}
	o.resetAttemptLocked()
	from := o.state
	to := StateIdle
	if o.provider != nil {
		to = StateProviderSelected
	}
	o.state = to
	if from != to {
		o.emitLocked(Event{Type: EventStateChanged, State: to, Previous: from})
	}
	o.mu.Unlock()
	o.flush()
	return nil
}

// create runs RequestCreating. The caller holds the busy flag.
func (o *Orchestrator) create(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if err := o.transitionLocked(StateRequestCreating); err != nil {
		o.busy = false
		o.mu.Unlock()
		o.flush()
		return nil, err
	}
	info := *o.info
	provider := *o.provider
	review := o.review
	o.lastErr = nil
	o.mu.Unlock()
	o.flush()

	logger := common.LoggerFrom(ctx, o.logger).With("provider_id", provider.ID)
	start := time.Now()

	id, err := o.deps.Payments.CreatePaymentRequest(ctx, info)
	if err != nil {
		logger.Error("orchestrator.create.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		cerr := &common.RequestCreationError{Cause: err}
		o.fail(cerr)
		return nil, cerr
	}
	logger.Info("orchestrator.create.ok", "request_id", id, "elapsed_ms", time.Since(start).Milliseconds())

	o.mu.Lock()
	o.requestID = id
	if err := o.transitionLocked(StateRequestCreated); err != nil {
		o.busy = false
		o.mu.Unlock()
		o.flush()
		return nil, err
	}
	o.emitLocked(Event{Type: EventRequestCreated, RequestID: id, Provider: cloneProvider(&provider)})
	o.mu.Unlock()
	o.flush()

	o.record(ctx, logger, id, provider, info, review)
	o.sendFeedback(ctx, logger, info, review)
	return o.handOff(ctx)
}

// handOff runs the branch out of RequestCreated. The caller holds the busy flag.
func (o *Orchestrator) handOff(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	id := o.requestID
	provider := *o.provider
	info := *o.info
	o.mu.Unlock()

	logger := common.LoggerFrom(ctx, o.logger).With("provider_id", provider.ID, "request_id", id)
	out := &Outcome{RequestID: id, Provider: provider, Info: info}

	var (
		next State
		ev   EventType
	)
	switch {
	case provider.SupportsGPC(o.cfg.Platform) && o.deps.Registry.IsInstalled(provider):
		out.Kind = constants.OutcomeAppOpened
		out.DeepLink = DeepLink(universalLink(provider), id)
		opened, err := o.deps.Opener.Open(ctx, out.DeepLink)
		if err != nil || !opened {
			logger.Warn("orchestrator.handoff.open_declined", "error", err)
		}
		out.Opened = opened && err == nil
		next, ev = StateAppOpened, EventAppOpened

	case provider.SupportsGPC(o.cfg.Platform):
		out.Kind = constants.OutcomeInstallRequired
		next, ev = StateInstallRequired, EventInstallRequired

	case provider.SupportsOpenWith(o.cfg.Platform):
		pdf, err := o.deps.Payments.PDFWithQRCode(ctx, id)
		if err != nil {
			logger.Error("orchestrator.handoff.pdf_failed", "error", err)
			o.fail(err)
			return nil, err
		}
		a, err := o.deps.Artifacts.SavePDF(id, pdf)
		if err != nil {
			logger.Error("orchestrator.handoff.artifact_failed", "error", err)
			o.fail(err)
			return nil, err
		}
		out.Kind = constants.OutcomePDFShared
		out.Artifact = &a
		next, ev = StatePDFShared, EventPDFShared

	default:
		o.fail(common.ErrNoInstalledApps)
		return nil, common.ErrNoInstalledApps
	}

	o.mu.Lock()
	err := o.transitionLocked(next)
	if err == nil {
		o.outcome = out
		cp := *out
		o.emitLocked(Event{Type: ev, RequestID: id, Provider: cloneProvider(&provider), Outcome: &cp})
	}
	o.busy = false
	o.mu.Unlock()
	o.flush()
	if err != nil {
		return nil, err
	}

	if o.deps.History != nil {
		if err := o.deps.History.UpdateOutcome(ctx, id, out.Kind); err != nil {
			logger.Warn("orchestrator.history.update_failed", "error", err)
		}
	}
	logger.Info("orchestrator.handoff.ok", "outcome", string(out.Kind), "opened", out.Opened)
	return out, nil
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, id string, p entity.PaymentProvider, info entity.PaymentInfo, review *entity.DataForReview) {
	if o.deps.History == nil {
		return
	}
	rec := entity.PaymentRequestRecord{
		ID:           id,
		ProviderID:   p.ID,
		ProviderName: p.Name,
		Recipient:    info.Recipient,
		IBAN:         info.IBAN,
		Amount:       info.Amount,
		Currency:     info.Currency,
		Purpose:      info.Purpose,
		Outcome:      constants.OutcomeCreated,
	}
	if review != nil {
		rec.DocumentID = review.Document.ID
	}
	if err := o.deps.History.Record(ctx, rec); err != nil {
		logger.Warn("orchestrator.history.record_failed", "error", err)
	}
}

func (o *Orchestrator) sendFeedback(ctx context.Context, logger *slog.Logger, info entity.PaymentInfo, review *entity.DataForReview) {
	if o.deps.Feedback == nil || review == nil {
		return
	}
	job := feedback.Job{
		Document:    review.Document,
		Extractions: review.Extractions,
		Info:        info,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	}
	if err := o.deps.Feedback.Enqueue(ctx, job); err != nil {
		logger.Warn("orchestrator.feedback.enqueue_failed", "error", err)
	}
}

// acquire takes the busy flag for operations that do I/O before their first
// transition.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return common.ErrRequestInFlight
	}
	o.busy = true
	return nil
}

// fail moves to Error, records err and drops the busy flag.
func (o *Orchestrator) fail(err error) {
	o.mu.Lock()
	from := o.state
	o.state = StateError
	o.lastErr = err
	o.busy = false
	o.emitLocked(Event{Type: EventStateChanged, State: StateError, Previous: from})
	o.emitLocked(Event{Type: EventError, Err: err, RequestID: o.requestID})
	o.mu.Unlock()
	o.flush()
}

func (o *Orchestrator) resetAttemptLocked() {
	o.info = nil
	o.review = nil
	o.requestID = ""
	o.outcome = nil
	o.lastErr = nil
}

func (o *Orchestrator) transitionLocked(to State) error {
	from := o.state
	if !canTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, common.ErrInvalidTransition)
	}
	o.state = to
	o.emitLocked(Event{Type: EventStateChanged, State: to, Previous: from})
	return nil
}

func (o *Orchestrator) emitLocked(ev Event) {
	if ev.State == "" {
		ev.State = o.state
	}
	ev.At = time.Now()
	o.pending = append(o.pending, ev)
}

// flush delivers pending events in order. If another goroutine, or a handler
// further up this stack, is already delivering, it picks the events up.
func (o *Orchestrator) flush() {
	for {
		if !o.dispatchMu.TryLock() {
			return
		}
		for {
			o.mu.Lock()
			events := o.pending
			o.pending = nil
			handlers := make([]Handler, 0, len(o.handlers))
			for i := 0; i < o.nextSub; i++ {
				if h, ok := o.handlers[i]; ok {
					handlers = append(handlers, h)
				}
			}
			o.mu.Unlock()
			if len(events) == 0 {
				break
			}
			for _, ev := range events {
				for _, h := range handlers {
					h(ev)
				}
			}
		}
		o.dispatchMu.Unlock()

		o.mu.Lock()
		empty := len(o.pending) == 0
		o.mu.Unlock()
		if empty {
			return
		}
	}
}

// DeepLink builds the app hand-off URL for a payment request.
func DeepLink(universalLink, requestID string) string {
	return fmt.Sprintf("%s://payment?id=%s", universalLink, url.QueryEscape(requestID))
}

func universalLink(p entity.PaymentProvider) string {
	if p.UniversalLinkIOS != "" {
		return p.UniversalLinkIOS
	}
	return p.AppSchemeIOS
}

func cloneProvider(p *entity.PaymentProvider) *entity.PaymentProvider {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
