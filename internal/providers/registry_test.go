package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/platform"
	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

type stubPayments struct {
	providers []entity.PaymentProvider
	err       error
}

func (s *stubPayments) PaymentProviders(context.Context) ([]entity.PaymentProvider, error) {
	return s.providers, s.err
}
func (s *stubPayments) CreatePaymentRequest(context.Context, entity.PaymentInfo) (string, error) {
	return "", errors.New("not implemented")
}
func (s *stubPayments) PaymentRequest(context.Context, string) (*entity.PaymentRequest, error) {
	return nil, errors.New("not implemented")
}
func (s *stubPayments) PDFWithQRCode(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (s *stubPayments) QRCodeImage(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

var ios = []constants.Platform{constants.PlatformIOS}

func provider(id string, index int, scheme string) entity.PaymentProvider {
	return entity.PaymentProvider{ID: id, Name: "Bank " + id, AppSchemeIOS: scheme, Index: index, GPCSupportedPlatforms: ios}
}

func ids(ps []entity.PaymentProvider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestSortProviders(t *testing.T) {
	opener := platform.NewStaticOpener("installed-b", "installed-d")
	r := NewRegistry(&stubPayments{}, opener, repository.NewMemoryKVStore(), constants.PlatformIOS, nil)

	android := entity.PaymentProvider{ID: "x", GPCSupportedPlatforms: []constants.Platform{constants.PlatformAndroid}}
	in := []entity.PaymentProvider{
		provider("a", 1, "missing-a"),
		provider("b", 3, "installed-b"),
		android,
		provider("c", 0, ""),
		provider("d", 3, "installed-d"),
		provider("e", 1, "missing-e"),
	}

	got := r.SortProviders(in)
	want := []string{"b", "d", "c", "a", "e"}
	if g := ids(got); len(g) != len(want) {
		t.Fatalf("SortProviders = %v, want %v", g, want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("SortProviders = %v, want %v", ids(got), want)
		}
	}

	again := r.SortProviders(got)
	for i := range got {
		if again[i].ID != got[i].ID {
			t.Fatalf("SortProviders not idempotent: %v then %v", ids(got), ids(again))
		}
	}
}

func TestSortProvidersInstalledFirstRegardlessOfOrder(t *testing.T) {
	opener := platform.NewStaticOpener("inst")
	r := NewRegistry(&stubPayments{}, opener, repository.NewMemoryKVStore(), constants.PlatformIOS, nil)
	in := []entity.PaymentProvider{provider("n1", 0, "no"), provider("n2", -5, "no"), provider("i", 99, "inst")}

	got := r.SortProviders(in)
	seenUninstalled := false
	for _, p := range got {
		if !r.IsInstalled(p) {
			seenUninstalled = true
		} else if seenUninstalled {
			t.Fatalf("installed provider %s after an uninstalled one: %v", p.ID, ids(got))
		}
	}
}

func TestLoadProviders(t *testing.T) {
	stub := &stubPayments{providers: []entity.PaymentProvider{provider("a", 0, "")}}
	r := NewRegistry(stub, platform.NewStaticOpener(), repository.NewMemoryKVStore(), constants.PlatformIOS, nil)

	if _, err := r.LoadProviders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Find("a"); !ok {
		t.Fatal("loaded provider not cached")
	}

	stub.err = common.NewAPIError("paymentProviders", 500, "", nil)
	if _, err := r.LoadProviders(context.Background()); !errors.Is(err, common.ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
	if len(r.Providers()) != 1 {
		t.Error("failed load must keep the cached list")
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKVStore()
	r := NewRegistry(&stubPayments{}, platform.NewStaticOpener(), store, constants.PlatformIOS, nil)

	if p, err := r.RestoreSelection(ctx, nil); err != nil || p != nil {
		t.Fatalf("empty store restore = %v, %v", p, err)
	}

	old := provider("b", 1, "scheme")
	if err := r.PersistSelection(ctx, old); err != nil {
		t.Fatal(err)
	}

	fresh := provider("b", 7, "scheme")
	fresh.Name = "Renamed"
	got, err := r.RestoreSelection(ctx, []entity.PaymentProvider{provider("a", 0, ""), fresh})
	if err != nil || got == nil {
		t.Fatalf("RestoreSelection = %v, %v", got, err)
	}
	if got.Name != "Renamed" || got.Index != 7 {
		t.Errorf("restore should return the candidate copy, got %+v", got)
	}

	got, err = r.RestoreSelection(ctx, []entity.PaymentProvider{provider("a", 0, "")})
	if err != nil || got != nil {
		t.Errorf("absent id restore = %v, %v; want nil", got, err)
	}
}

func TestRestoreSelectionDiscardsStaleEnvelope(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKVStore()
	r := NewRegistry(&stubPayments{}, platform.NewStaticOpener(), store, constants.PlatformIOS, nil)
	candidates := []entity.PaymentProvider{provider("b", 0, "")}

	_ = store.Set(ctx, SelectionKey, []byte(`{"version":99,"provider":{"id":"b"}}`))
	if p, _ := r.RestoreSelection(ctx, candidates); p != nil {
		t.Errorf("version mismatch should restore nil, got %+v", p)
	}

	_ = store.Set(ctx, SelectionKey, []byte(`not json`))
	if p, err := r.RestoreSelection(ctx, candidates); p != nil || err != nil {
		t.Errorf("garbage should restore nil without error, got %+v, %v", p, err)
	}
}
