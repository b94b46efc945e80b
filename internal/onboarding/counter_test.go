package onboarding

import (
	"context"
	"sync"
	"testing"

	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

func TestIncrementIsMonotonic(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(repository.NewMemoryKVStore(), nil)

	prev := 0
	for i := 1; i <= 5; i++ {
		n, err := c.IncrementPresentationCount(ctx, "Bank One")
		if err != nil {
			t.Fatal(err)
		}
		if n != i || n < prev {
			t.Fatalf("increment %d returned %d (prev %d)", i, n, prev)
		}
		prev = n
	}
	got, err := c.PresentationCount(ctx, "Bank One")
	if err != nil || got != 5 {
		t.Fatalf("PresentationCount = %d, %v; want 5", got, err)
	}
	if other, _ := c.PresentationCount(ctx, "Bank Two"); other != 0 {
		t.Errorf("unseen provider count = %d, want 0", other)
	}
}

func TestCountsSurviveNewCounter(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKVStore()
	_, _ = NewCounter(store, nil).IncrementPresentationCount(ctx, "Bank One")
	_, _ = NewCounter(store, nil).IncrementPresentationCount(ctx, "Bank One")

	if n, _ := NewCounter(store, nil).PresentationCount(ctx, "Bank One"); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(repository.NewMemoryKVStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.IncrementPresentationCount(ctx, "Bank One")
		}()
	}
	wg.Wait()
	if n, _ := c.PresentationCount(ctx, "Bank One"); n != 20 {
		t.Fatalf("count = %d, want 20", n)
	}
}

func TestShouldPresent(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(repository.NewMemoryKVStore(), nil)
	for i := 0; i < 3; i++ {
		ok, _ := c.ShouldPresent(ctx, "Bank One", 3)
		if !ok {
			t.Fatalf("ShouldPresent false after %d presentations", i)
		}
		_, _ = c.IncrementPresentationCount(ctx, "Bank One")
	}
	if ok, _ := c.ShouldPresent(ctx, "Bank One", 3); ok {
		t.Fatal("ShouldPresent true after reaching the limit")
	}
}

func TestNullStoredCountsStartEmpty(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKVStore()
	if err := store.Set(ctx, StoreKey, []byte("null")); err != nil {
		t.Fatal(err)
	}
	c := NewCounter(store, nil)
	n, err := c.IncrementPresentationCount(ctx, "Bank One")
	if err != nil || n != 1 {
		t.Fatalf("IncrementPresentationCount = %d, %v; want 1", n, err)
	}
}

func TestUndecodableCountsAreNotReset(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKVStore()
	corrupt := []byte(`{"Bank One": "two"}`)
	if err := store.Set(ctx, StoreKey, corrupt); err != nil {
		t.Fatal(err)
	}
	c := NewCounter(store, nil)
	if _, err := c.PresentationCount(ctx, "Bank One"); err == nil {
		t.Fatal("PresentationCount should report undecodable counts")
	}
	if _, err := c.IncrementPresentationCount(ctx, "Bank One"); err == nil {
		t.Fatal("IncrementPresentationCount should refuse to overwrite undecodable counts")
	}
	raw, _, _ := store.Get(ctx, StoreKey)
	if string(raw) != string(corrupt) {
		t.Fatalf("stored counts overwritten: %s", raw)
	}
}
