package artifact

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
)

func TestSaveAndGet(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	a, err := s.SavePDF("req-1", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("SavePDF: %v", err)
	}
	data, err := os.ReadFile(a.Path)
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("stored content = %q, %v", data, err)
	}
	got, err := s.Get("req-1")
	if err != nil || got.Size != a.Size {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := s.Get("missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Get(missing) err = %v", err)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	for _, name := range []string{"", "../escape", "a/b"} {
		if _, err := s.SavePDF(name, []byte("x")); !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("SavePDF(%q) err = %v", name, err)
		}
	}
	if _, err := s.SavePDF("ok", nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("empty data err = %v", err)
	}
}

func TestCleanup(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	old, _ := s.SavePDF("old", []byte("x"))
	_, _ = s.SavePDF("new", []byte("y"))

	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old.Path, past, past); err != nil {
		t.Fatal(err)
	}
	n, err := s.Cleanup(time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup = %d, %v; want 1", n, err)
	}
	if _, err := s.Get("old"); !errors.Is(err, common.ErrNotFound) {
		t.Error("old artifact survived cleanup")
	}
	if _, err := s.Get("new"); err != nil {
		t.Error("fresh artifact removed")
	}
}

func TestCleanupMissingDir(t *testing.T) {
	s := NewStore(t.TempDir()+"/nope", nil)
	if n, err := s.Cleanup(0); n != 0 || err != nil {
		t.Fatalf("Cleanup = %d, %v", n, err)
	}
}
