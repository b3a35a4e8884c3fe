package basket

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

type fakeBasketStore struct {
	hashes  map[string]map[string]string
	expires map[string]time.Duration
}

func newFakeBasketStore() *fakeBasketStore {
	return &fakeBasketStore{
		hashes:  map[string]map[string]string{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeBasketStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	current, _ := strconv.ParseInt(h[field], 10, 64)
	current += delta
	h[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (f *fakeBasketStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeBasketStore) HDel(_ context.Context, key string, fields ...string) error {
	if h, ok := f.hashes[key]; ok {
		for _, field := range fields {
			delete(h, field)
		}
	}
	return nil
}

func (f *fakeBasketStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.expires[key] = ttl
	return nil
}

func (f *fakeBasketStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.hashes, key)
		delete(f.expires, key)
	}
	return nil
}

func (f *fakeBasketStore) BasketKey(userID string) string {
	return "procure:basket:" + userID
}

type fakeListingLoader struct {
	listings []models.ProductListing
}

func (f *fakeListingLoader) FindActiveByIDs(_ context.Context, ids []int64) ([]models.ProductListing, error) {
	want := map[int64]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.ProductListing
	for _, l := range f.listings {
		if _, ok := want[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, store basketStore, loader listingLoader) Service {
	t.Helper()
	svc, err := NewService(store, loader, 168*time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAddAccumulatesAndRefreshesTTL(t *testing.T) {
	store := newFakeBasketStore()
	svc := newTestService(t, store, &fakeListingLoader{})
	userID := uuid.New()

	total, err := svc.Add(context.Background(), userID, 10, 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}

	total, err = svc.Add(context.Background(), userID, 10, 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}

	key := store.BasketKey(userID.String())
	if ttl := store.expires[key]; ttl != 168*time.Hour {
		t.Fatalf("ttl = %s, want 168h", ttl)
	}
}

func TestAddNegativeDeltaRemovesEmptiedLine(t *testing.T) {
	store := newFakeBasketStore()
	svc := newTestService(t, store, &fakeListingLoader{})
	userID := uuid.New()

	if _, err := svc.Add(context.Background(), userID, 10, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	total, err := svc.Add(context.Background(), userID, 10, -5)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if total != 0 {
		t.Fatalf("total = %d, want 0", total)
	}

	quantities, err := svc.Quantities(context.Background(), userID)
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if len(quantities) != 0 {
		t.Fatalf("expected empty basket, got %v", quantities)
	}
}

func TestAddRejectsZeroDelta(t *testing.T) {
	svc := newTestService(t, newFakeBasketStore(), &fakeListingLoader{})
	_, err := svc.Add(context.Background(), uuid.New(), 10, 0)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestAddRejectsOverCapQuantity(t *testing.T) {
	store := newFakeBasketStore()
	svc := newTestService(t, store, &fakeListingLoader{})
	userID := uuid.New()

	if _, err := svc.Add(context.Background(), userID, 10, MaxLineQuantity); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(context.Background(), userID, 10, 1); err == nil {
		t.Fatal("expected cap error")
	}

	quantities, err := svc.Quantities(context.Background(), userID)
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if quantities[10] != MaxLineQuantity {
		t.Fatalf("quantity = %d, want %d after rollback", quantities[10], MaxLineQuantity)
	}
}

func TestQuantitiesSkipsMalformedFields(t *testing.T) {
	store := newFakeBasketStore()
	svc := newTestService(t, store, &fakeListingLoader{})
	userID := uuid.New()
	key := store.BasketKey(userID.String())
	store.hashes[key] = map[string]string{
		"10":      "3",
		"corrupt": "2",
		"11":      "zero",
	}

	quantities, err := svc.Quantities(context.Background(), userID)
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if len(quantities) != 1 || quantities[10] != 3 {
		t.Fatalf("quantities = %v, want only 10:3", quantities)
	}
}

func TestViewEnrichesLinesAndPurgesStale(t *testing.T) {
	store := newFakeBasketStore()
	loader := &fakeListingLoader{
		listings: []models.ProductListing{
			{
				ID:       10,
				ShopID:   1,
				Price:    decimal.RequireFromString("110000.00"),
				Quantity: 14,
				Product:  &models.Product{Name: "IPhone X"},
				Shop:     &models.Shop{ID: 1, Name: "Svyaznoy"},
			},
		},
	}
	svc := newTestService(t, store, loader)
	userID := uuid.New()

	if _, err := svc.Add(context.Background(), userID, 10, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	// listing 99 disappeared from the catalog since it was added
	if _, err := svc.Add(context.Background(), userID, 99, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	view, err := svc.View(context.Background(), userID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(view.Lines))
	}
	line := view.Lines[0]
	if line.ListingID != 10 || line.Quantity != 2 {
		t.Fatalf("unexpected line %+v", line)
	}
	if !line.Subtotal.Equal(decimal.RequireFromString("220000.00")) {
		t.Fatalf("subtotal = %s, want 220000.00", line.Subtotal)
	}
	if !view.Total.Equal(line.Subtotal) {
		t.Fatalf("total = %s, want %s", view.Total, line.Subtotal)
	}

	quantities, err := svc.Quantities(context.Background(), userID)
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if _, ok := quantities[99]; ok {
		t.Fatal("stale line 99 should have been purged")
	}
}

func TestClearDeletesHash(t *testing.T) {
	store := newFakeBasketStore()
	svc := newTestService(t, store, &fakeListingLoader{})
	userID := uuid.New()

	if _, err := svc.Add(context.Background(), userID, 10, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Clear(context.Background(), userID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	quantities, err := svc.Quantities(context.Background(), userID)
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if len(quantities) != 0 {
		t.Fatalf("expected empty basket, got %v", quantities)
	}
}
