// Package onboarding tracks how often the share-invoice onboarding was shown
// per provider.
package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

// StoreKey holds the whole provider-name → count map.
const StoreKey = "payment.onboarding_share_invoice_screen_count"

// Counter is a persisted, monotonically increasing per-provider count.
// Calls are serialized so read-modify-write never loses an increment.
type Counter struct {
	store  repository.KVStore
	logger *slog.Logger
	mu     sync.Mutex
}

func NewCounter(store repository.KVStore, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{store: store, logger: logger}
}

// PresentationCount returns the count for providerName, 0 when never shown.
func (c *Counter) PresentationCount(ctx context.Context, providerName string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	return counts[providerName], nil
}

// IncrementPresentationCount adds one to the count for providerName and
// returns the new value.
func (c *Counter) IncrementPresentationCount(ctx context.Context, providerName string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	counts[providerName]++
	raw, err := json.Marshal(counts)
	if err != nil {
		return 0, fmt.Errorf("encode onboarding counts: %w", err)
	}
	if err := c.store.Set(ctx, StoreKey, raw); err != nil {
		c.logger.Error("onboarding.count.persist_failed", "provider", providerName, "error", err)
		return 0, err
	}
	c.logger.Debug("onboarding.count.incremented", "provider", providerName, "count", counts[providerName])
	return counts[providerName], nil
}

// ShouldPresent is true while the count for providerName is below limit.
func (c *Counter) ShouldPresent(ctx context.Context, providerName string, limit int) (bool, error) {
	n, err := c.PresentationCount(ctx, providerName)
	if err != nil {
		return false, err
	}
	return n < limit, nil
}

func (c *Counter) load(ctx context.Context) (map[string]int, error) {
	raw, ok, err := c.store.Get(ctx, StoreKey)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	if !ok {
		return counts, nil
	}
	if err := json.Unmarshal(raw, &counts); err != nil {
		c.logger.Warn("onboarding.count.undecodable", "error", err)
		return nil, fmt.Errorf("decode onboarding counts: %w", err)
	}
	if counts == nil {
		// stored JSON null
		counts = make(map[string]int)
	}
	return counts, nil
}
