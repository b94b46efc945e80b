package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// PaymentRequestRepository records created payment requests and their hand-off outcome.
type PaymentRequestRepository interface {
	Record(ctx context.Context, rec entity.PaymentRequestRecord) error
	UpdateOutcome(ctx context.Context, id string, outcome constants.RequestOutcome) error
	Get(ctx context.Context, id string) (*entity.PaymentRequestRecord, error)
	List(ctx context.Context, from, to *time.Time) ([]*entity.PaymentRequestRecord, error)
}

var paymentRequestColumns = []string{
	"id", "provider_id", "provider_name", "document_id", "recipient", "iban",
	"amount", "currency", "purpose", "outcome", "created_at", "updated_at",
}

type paymentRequestRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewPaymentRequestRepository(db *DB, logger *slog.Logger) PaymentRequestRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &paymentRequestRepo{db: db, logger: logger}
}

func (r *paymentRequestRepo) Record(ctx context.Context, rec entity.PaymentRequestRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.Outcome == "" {
		rec.Outcome = constants.OutcomeCreated
	}
	b := entsql.Dialect(r.db.dialect)
	query, args := b.Insert("payment_requests").
		Columns(paymentRequestColumns...).
		Values(
			rec.ID, rec.ProviderID, rec.ProviderName, rec.DocumentID, rec.Recipient, rec.IBAN,
			rec.Amount.StringFixed(2), rec.Currency, rec.Purpose, string(rec.Outcome),
			rec.CreatedAt.UnixMilli(), now.UnixMilli(),
		).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to record payment request", "request_id", rec.ID, "error", err)
		return fmt.Errorf("%w: record payment request: %v", common.ErrDatabase, err)
	}
	r.logger.Info("payment request recorded", "request_id", rec.ID, "provider_id", rec.ProviderID)
	return nil
}

func (r *paymentRequestRepo) UpdateOutcome(ctx context.Context, id string, outcome constants.RequestOutcome) error {
	b := entsql.Dialect(r.db.dialect)
	query, args := b.Update("payment_requests").
		Set("outcome", string(outcome)).
		Set("updated_at", time.Now().UTC().UnixMilli()).
		Where(entsql.EQ("id", id)).
		Query()
	var res entsql.Result
	if err := r.db.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to update payment request outcome", "request_id", id, "error", err)
		return fmt.Errorf("%w: update outcome: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment request %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *paymentRequestRepo) Get(ctx context.Context, id string) (*entity.PaymentRequestRecord, error) {
	b := entsql.Dialect(r.db.dialect)
	query, args := b.Select(paymentRequestColumns...).
		From(b.Table("payment_requests")).
		Where(entsql.EQ("id", id)).
		Query()
	recs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("payment request %s: %w", id, common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *paymentRequestRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.PaymentRequestRecord, error) {
	b := entsql.Dialect(r.db.dialect)
	sel := b.Select(paymentRequestColumns...).From(b.Table("payment_requests"))
	var preds []*entsql.Predicate
	if from != nil {
		preds = append(preds, entsql.GTE("created_at", from.UnixMilli()))
	}
	if to != nil {
		preds = append(preds, entsql.LTE("created_at", to.UnixMilli()))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy("created_at").Query()
	recs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list payment requests", "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *paymentRequestRepo) query(ctx context.Context, query string, args []any) ([]*entity.PaymentRequestRecord, error) {
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: query payment requests: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.PaymentRequestRecord
	for rows.Next() {
		var (
			rec                  entity.PaymentRequestRecord
			amount, outcome      string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.ProviderID, &rec.ProviderName, &rec.DocumentID, &rec.Recipient, &rec.IBAN,
			&amount, &rec.Currency, &rec.Purpose, &outcome, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan payment request: %v", common.ErrDatabase, err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: payment request %s amount %q: %v", common.ErrDatabase, rec.ID, amount, err)
		}
		rec.Amount = d
		rec.Outcome = constants.RequestOutcome(outcome)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate payment requests: %v", common.ErrDatabase, err)
	}
	return out, nil
}

// MemoryPaymentRequestRepository keeps records in process.
type MemoryPaymentRequestRepository struct {
	mu   sync.RWMutex
	recs map[string]entity.PaymentRequestRecord
}

func NewMemoryPaymentRequestRepository() *MemoryPaymentRequestRepository {
	return &MemoryPaymentRequestRepository{recs: make(map[string]entity.PaymentRequestRecord)}
}

func (m *MemoryPaymentRequestRepository) Record(_ context.Context, rec entity.PaymentRequestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.Outcome == "" {
		rec.Outcome = constants.OutcomeCreated
	}
	rec.UpdatedAt = now
	m.recs[rec.ID] = rec
	return nil
}

func (m *MemoryPaymentRequestRepository) UpdateOutcome(_ context.Context, id string, outcome constants.RequestOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return fmt.Errorf("payment request %s: %w", id, common.ErrNotFound)
	}
	rec.Outcome = outcome
	rec.UpdatedAt = time.Now().UTC()
	m.recs[id] = rec
	return nil
}

func (m *MemoryPaymentRequestRepository) Get(_ context.Context, id string) (*entity.PaymentRequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, fmt.Errorf("payment request %s: %w", id, common.ErrNotFound)
	}
	return &rec, nil
}

func (m *MemoryPaymentRequestRepository) List(_ context.Context, from, to *time.Time) ([]*entity.PaymentRequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entity.PaymentRequestRecord
	for _, rec := range m.recs {
		if from != nil && rec.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && rec.CreatedAt.After(*to) {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
