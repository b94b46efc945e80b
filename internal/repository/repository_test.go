package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := Open(context.Background(), common.StoreConfig{DSN: dsn, DialTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLKVStore_GetSet(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore(openTestDB(t), nil)

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v err %v, want not found", ok, err)
	}
	if err := kv.Set(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok %v err %v", ok, err)
	}
	if string(v) != "two" {
		t.Errorf("Get(k) = %q, want last write", v)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestMemoryKVStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	in := []byte("abc")
	_ = kv.Set(ctx, "k", in)
	in[0] = 'x'
	out, _, _ := kv.Get(ctx, "k")
	if string(out) != "abc" {
		t.Errorf("stored value changed through caller slice: %q", out)
	}
}

func sampleRecord(id string, created time.Time) entity.PaymentRequestRecord {
	return entity.PaymentRequestRecord{
		ID:           id,
		ProviderID:   "p1",
		ProviderName: "Bank One",
		DocumentID:   "doc-1",
		Recipient:    "Dr. Smith",
		IBAN:         "DE89370400440532013000",
		Amount:       decimal.RequireFromString("15.00"),
		Currency:     "EUR",
		Purpose:      "Invoice 123",
		CreatedAt:    created,
	}
}

func TestPaymentRequestRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) PaymentRequestRepository{
		"sql":    func(t *testing.T) PaymentRequestRepository { return NewPaymentRequestRepository(openTestDB(t), nil) },
		"memory": func(t *testing.T) PaymentRequestRepository { return NewMemoryPaymentRequestRepository() },
	}
	for name, newRepo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

			for i, id := range []string{"r1", "r2", "r3"} {
				if err := repo.Record(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("Record(%s): %v", id, err)
				}
			}

			got, err := repo.Get(ctx, "r2")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Outcome != constants.OutcomeCreated {
				t.Errorf("default outcome = %q, want %q", got.Outcome, constants.OutcomeCreated)
			}
			if !got.Amount.Equal(decimal.RequireFromString("15")) {
				t.Errorf("amount = %s, want 15", got.Amount)
			}

			if err := repo.UpdateOutcome(ctx, "r2", constants.OutcomePDFShared); err != nil {
				t.Fatalf("UpdateOutcome: %v", err)
			}
			got, _ = repo.Get(ctx, "r2")
			if got.Outcome != constants.OutcomePDFShared {
				t.Errorf("outcome = %q, want %q", got.Outcome, constants.OutcomePDFShared)
			}

			if err := repo.UpdateOutcome(ctx, "nope", constants.OutcomeAppOpened); !errors.Is(err, common.ErrNotFound) {
				t.Errorf("UpdateOutcome(unknown) err = %v, want ErrNotFound", err)
			}
			if _, err := repo.Get(ctx, "nope"); !errors.Is(err, common.ErrNotFound) {
				t.Errorf("Get(unknown) err = %v, want ErrNotFound", err)
			}

			all, err := repo.List(ctx, nil, nil)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 || all[0].ID != "r1" || all[2].ID != "r3" {
				t.Fatalf("List order = %v", ids(all))
			}

			from := base.Add(30 * time.Minute)
			ranged, err := repo.List(ctx, &from, nil)
			if err != nil {
				t.Fatalf("List(from): %v", err)
			}
			if len(ranged) != 2 || ranged[0].ID != "r2" {
				t.Errorf("List(from) = %v, want [r2 r3]", ids(ranged))
			}
		})
	}
}

func ids(recs []*entity.PaymentRequestRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
