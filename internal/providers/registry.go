// Package providers loads, orders and remembers payment providers.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/platform"
	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

// SelectionKey is the store key of the persisted provider selection.
const SelectionKey = "payment.selected_provider"

// selectionVersion is bumped whenever the persisted envelope changes shape.
const selectionVersion = 1

type selectionEnvelope struct {
	Version  int                    `json:"version"`
	SavedAt  time.Time              `json:"saved_at"`
	Provider entity.PaymentProvider `json:"provider"`
}

// Registry fetches providers from the payment backend and keeps the last list
// in memory.
type Registry struct {
	payments api.PaymentAPI
	opener   platform.URLOpener
	store    repository.KVStore
	platform constants.Platform
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	cached []entity.PaymentProvider
}

// NewRegistry wires a registry for the given host platform.
func NewRegistry(payments api.PaymentAPI, opener platform.URLOpener, store repository.KVStore, p constants.Platform, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		payments: payments,
		opener:   opener,
		store:    store,
		platform: p,
		logger:   logger,
		now:      time.Now,
	}
}

// Platform is the host platform the registry filters for.
func (r *Registry) Platform() constants.Platform { return r.platform }

// LoadProviders fetches the provider list and replaces the cached copy.
// On failure the cache is left untouched.
func (r *Registry) LoadProviders(ctx context.Context) ([]entity.PaymentProvider, error) {
	start := time.Now()
	list, err := r.payments.PaymentProviders(ctx)
	if err != nil {
		r.logger.Error("providers.load.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	r.mu.Lock()
	r.cached = append([]entity.PaymentProvider(nil), list...)
	r.mu.Unlock()
	r.logger.Info("providers.load.ok", "count", len(list), "elapsed_ms", time.Since(start).Milliseconds())
	return list, nil
}

// Providers returns the last loaded list.
func (r *Registry) Providers() []entity.PaymentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.PaymentProvider(nil), r.cached...)
}

// Find returns the cached provider with id.
func (r *Registry) Find(id string) (entity.PaymentProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.cached {
		if p.ID == id {
			return p, true
		}
	}
	return entity.PaymentProvider{}, false
}

// IsInstalled reports whether the provider's app scheme resolves on the host.
func (r *Registry) IsInstalled(p entity.PaymentProvider) bool {
	if p.AppSchemeIOS == "" || r.opener == nil {
		return false
	}
	return r.opener.CanOpen(p.AppSchemeIOS)
}

// SortProviders drops providers unusable on the platform, then orders
// installed apps first and by ascending index. Equal elements keep their
// input order, so sorting a sorted list is a no-op.
func (r *Registry) SortProviders(list []entity.PaymentProvider) []entity.PaymentProvider {
	out := make([]entity.PaymentProvider, 0, len(list))
	installed := make(map[string]bool, len(list))
	for _, p := range list {
		if !p.SupportedOn(r.platform) {
			continue
		}
		installed[p.ID] = r.IsInstalled(p)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := installed[out[i].ID], installed[out[j].ID]
		if a != b {
			return a
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// PersistSelection stores p as the selected provider.
func (r *Registry) PersistSelection(ctx context.Context, p entity.PaymentProvider) error {
	raw, err := json.Marshal(selectionEnvelope{Version: selectionVersion, SavedAt: r.now().UTC(), Provider: p})
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := r.store.Set(ctx, SelectionKey, raw); err != nil {
		r.logger.Error("providers.selection.persist_failed", "provider_id", p.ID, "error", err)
		return err
	}
	r.logger.Info("providers.selection.persisted", "provider_id", p.ID)
	return nil
}

// RestoreSelection returns the persisted provider if it is still among
// candidates. The candidate copy is returned so fresh backend data wins.
// A nil provider with a nil error means nothing usable was stored.
func (r *Registry) RestoreSelection(ctx context.Context, candidates []entity.PaymentProvider) (*entity.PaymentProvider, error) {
	raw, ok, err := r.store.Get(ctx, SelectionKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var env selectionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("providers.selection.discarded", "reason", "undecodable", "error", err)
		return nil, nil
	}
	if env.Version != selectionVersion {
		r.logger.Warn("providers.selection.discarded", "reason", "version_mismatch", "version", env.Version)
		return nil, nil
	}
	for i := range candidates {
		if candidates[i].ID == env.Provider.ID {
			p := candidates[i]
			return &p, nil
		}
	}
	r.logger.Info("providers.selection.discarded", "reason", "not_in_candidates", "provider_id", env.Provider.ID)
	return nil, nil
}
