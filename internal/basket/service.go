package basket

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

// MaxLineQuantity caps a single basket line so one buyer cannot park an
// entire shop's stock behind a hash field.
const MaxLineQuantity = 10000

type basketStore interface {
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	BasketKey(userID string) string
}

type listingLoader interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.ProductListing, error)
}

// Line is one enriched basket row backed by a live listing.
type Line struct {
	ListingID   int64           `json:"listing_id"`
	ProductName string          `json:"product_name"`
	ShopID      int64           `json:"shop_id"`
	ShopName    string          `json:"shop_name"`
	Quantity    int64           `json:"quantity"`
	Available   int             `json:"available"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// View is the reconciled basket returned to buyers.
type View struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Service exposes basket operations backed by a Redis hash per user.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, listingID int64, delta int64) (int64, error)
	Quantities(ctx context.Context, userID uuid.UUID) (map[int64]int64, error)
	View(ctx context.Context, userID uuid.UUID) (*View, error)
	Remove(ctx context.Context, userID uuid.UUID, listingID int64) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store    basketStore
	listings listingLoader
	ttl      time.Duration
}

// NewService builds a basket service on the provided Redis store.
func NewService(store basketStore, listings listingLoader, ttl time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("basket store required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("basket ttl must be positive")
	}
	return &service{store: store, listings: listings, ttl: ttl}, nil
}

// Add applies a signed quantity delta to one basket line. A resulting
// quantity at or below zero removes the line. Every write refreshes the
// basket TTL.
func (s *service) Add(ctx context.Context, userID uuid.UUID, listingID int64, delta int64) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if listingID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity delta must be non-zero")
	}

	key := s.store.BasketKey(userID.String())
	field := strconv.FormatInt(listingID, 10)

	total, err := s.store.HIncrBy(ctx, key, field, delta)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing basket line")
	}

	if total <= 0 {
		if err := s.store.HDel(ctx, key, field); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing emptied basket line")
		}
		total = 0
	} else if total > MaxLineQuantity {
		// roll the over-cap increment back
		if _, err := s.store.HIncrBy(ctx, key, field, -delta); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverting over-cap increment")
		}
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "basket line quantity cap exceeded")
	}

	if err := s.store.Expire(ctx, key, s.ttl); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing basket ttl")
	}
	return total, nil
}

// Quantities returns the raw listing_id -> quantity map. Malformed fields
// are skipped rather than failing the whole read.
func (s *service) Quantities(ctx context.Context, userID uuid.UUID) (map[int64]int64, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	raw, err := s.store.HGetAll(ctx, s.store.BasketKey(userID.String()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading basket")
	}

	out := make(map[int64]int64, len(raw))
	for field, value := range raw {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.ParseInt(value, 10, 64)
		if err != nil || qty <= 0 {
			continue
		}
		out[id] = qty
	}
	return out, nil
}

// View reconciles the basket against live listings. Lines whose listing no
// longer exists (or whose shop went inactive) are purged from the hash.
func (s *service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	quantities, err := s.Quantities(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return &View{Lines: []Line{}, Total: decimal.Zero}, nil
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	listings, err := s.listings.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading basket listings")
	}

	byID := make(map[int64]models.ProductListing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	view := &View{Lines: make([]Line, 0, len(ids)), Total: decimal.Zero}
	var stale []string
	for _, id := range ids {
		listing, ok := byID[id]
		if !ok {
			stale = append(stale, strconv.FormatInt(id, 10))
			continue
		}
		qty := quantities[id]
		subtotal := listing.Price.Mul(decimal.NewFromInt(qty))
		line := Line{
			ListingID: id,
			ShopID:    listing.ShopID,
			Quantity:  qty,
			Available: listing.Quantity,
			UnitPrice: listing.Price,
			Subtotal:  subtotal,
		}
		line.ProductName = listing.Product.Name
		line.ShopName = listing.Shop.Name
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(subtotal)
	}

	if len(stale) > 0 {
		if err := s.store.HDel(ctx, s.store.BasketKey(userID.String()), stale...); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purging stale basket lines")
		}
	}
	return view, nil
}

// Remove drops one line regardless of its quantity.
func (s *service) Remove(ctx context.Context, userID uuid.UUID, listingID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if listingID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	key := s.store.BasketKey(userID.String())
	if err := s.store.HDel(ctx, key, strconv.FormatInt(listingID, 10)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing basket line")
	}
	return nil
}

// Clear deletes the whole basket hash.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.store.Del(ctx, s.store.BasketKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing basket")
	}
	return nil
}
