package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/outbox"
	"github.com/procurehub/backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type basketReader interface {
	Quantities(ctx context.Context, userID uuid.UUID) (map[int64]int64, error)
	Remove(ctx context.Context, userID uuid.UUID, listingID int64) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type contactLoader interface {
	Get(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error)
}

type catalogReader interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.ProductListing, error)
	FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error)
	LowStockListings(ctx context.Context, shopID int64, threshold int) ([]models.ProductListing, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, submitterID *uuid.UUID) (*models.Job, error)
}

// notifyPayload is the JSON body of order.notify jobs.
type notifyPayload struct {
	OrderID int64  `json:"order_id"`
	Event   string `json:"event"`
}

// LowStockRow is one listing at or below the requested threshold.
type LowStockRow struct {
	ListingID   int64  `json:"listing_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Service exposes order placement, reads and supplier state transitions.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, contactID int64) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]OrderSummaryDTO, error)
	GetMine(ctx context.Context, userID uuid.UUID, orderID int64) (*OrderDTO, error)

	ListForPartner(ctx context.Context, ownerID uuid.UUID) ([]OrderDTO, error)
	UpdateState(ctx context.Context, actorID uuid.UUID, orderID int64, state string) (*OrderDTO, error)
	LowStock(ctx context.Context, ownerID uuid.UUID, threshold int) ([]LowStockRow, error)

	Stats(ctx context.Context) (*StatsDTO, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	basket   basketReader
	contacts contactLoader
	catalog  catalogReader
	events   eventEmitter
	jobs     jobEnqueuer
	logg     *logger.Logger
}

// NewService builds the orders service.
func NewService(
	tx txRunner,
	repo Repository,
	basket basketReader,
	contacts contactLoader,
	catalog catalogReader,
	events eventEmitter,
	jobs jobEnqueuer,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if basket == nil {
		return nil, fmt.Errorf("basket reader required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact loader required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		basket:   basket,
		contacts: contacts,
		catalog:  catalog,
		events:   events,
		jobs:     jobs,
		logg:     logg,
	}, nil
}

// PlaceOrder converts the buyer's basket into an order. Stock is checked
// twice: once without locks to fail fast, then again under row locks taken in
// ascending listing id order before the decrements. A shortfall in either
// pass rejects the order and leaves stock untouched.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, contactID int64) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	contact, err := s.contacts.Get(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}

	quantities, err := s.basket.Quantities(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "basket is empty")
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// first pass: no locks, fail fast on stale lines and obvious shortfalls
	listings, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading basket listings")
	}
	byID := make(map[int64]models.ProductListing, len(listings))
	for _, listing := range listings {
		byID[listing.ID] = listing
	}

	valid := ids[:0]
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			if err := s.basket.Remove(ctx, userID, id); err != nil {
				return nil, err
			}
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "basket has no purchasable lines")
	}

	if shortfalls := findShortfalls(valid, quantities, byID); len(shortfalls) > 0 {
		return nil, insufficientStock(shortfalls)
	}

	// unit prices are snapshotted here; a concurrent feed import between the
	// two passes must not change what the buyer is charged
	prices := make(map[int64]decimal.Decimal, len(valid))
	for _, id := range valid {
		prices[id] = byID[id].Price
	}

	var orderID int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// second pass: same rows, now locked, ascending ids
		locked, err := repo.ListingsForUpdate(ctx, valid)
		if err != nil {
			return fmt.Errorf("locking listings: %w", err)
		}
		lockedByID := make(map[int64]models.ProductListing, len(locked))
		for _, listing := range locked {
			lockedByID[listing.ID] = listing
		}
		if shortfalls := findShortfalls(valid, quantities, lockedByID); len(shortfalls) > 0 {
			return insufficientStock(shortfalls)
		}

		order := &models.Order{
			UserID:    userID,
			ContactID: contact.ID,
			State:     enums.OrderStateNew,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(valid))
		shopIDs := map[int64]struct{}{}
		total := decimal.Zero
		for _, id := range valid {
			listing := lockedByID[id]
			qty := int(quantities[id])

			ok, err := repo.DecrementListingStock(ctx, id, qty)
			if err != nil {
				return fmt.Errorf("decrementing stock for listing %d: %w", id, err)
			}
			if !ok {
				return insufficientStock([]ShortfallDTO{{
					ListingID: id,
					Requested: quantities[id],
					Available: listing.Quantity,
				}})
			}

			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ListingID: id,
				Quantity:  qty,
				UnitPrice: prices[id],
			})
			shopIDs[listing.ShopID] = struct{}{}
			total = total.Add(prices[id].Mul(decimal.NewFromInt(int64(qty))))
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return fmt.Errorf("creating order items: %w", err)
		}
		orderID = order.ID

		if s.events != nil {
			shops := make([]int64, 0, len(shopIDs))
			for id := range shopIDs {
				shops = append(shops, id)
			}
			sort.Slice(shops, func(i, j int) bool { return shops[i] < shops[j] })

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: userID},
				Data: payloads.OrderCreatedEvent{
					OrderID:   order.ID,
					UserID:    userID,
					ContactID: contact.ID,
					ItemCount: len(items),
					Total:     total,
					ShopIDs:   shops,
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emitting order event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "placing order")
	}

	// the order is durable from here on; cleanup failures only get logged
	if err := s.basket.Clear(ctx, userID); err != nil && s.logg != nil {
		fields := map[string]any{"order_id": orderID, "error": err.Error()}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "clearing basket after checkout failed")
	}
	s.enqueueNotify(ctx, orderID, "order.created", &userID)

	detail, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading placed order")
	}
	dto := toOrderDTO(*detail)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]OrderSummaryDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	out := make([]OrderSummaryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrderSummaryDTO(row))
	}
	return out, nil
}

func (s *service) GetMine(ctx context.Context, userID uuid.UUID, orderID int64) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListForPartner(ctx context.Context, ownerID uuid.UUID) ([]OrderDTO, error) {
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListOrdersByShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shop orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, partnerOrderView(row, shop.ID))
	}
	return out, nil
}

// UpdateState moves an order to the requested state. Only owners of a shop
// with items in the order may do this, and the target state must be one of
// the canonical states.
func (s *service) UpdateState(ctx context.Context, actorID uuid.UUID, orderID int64, state string) (*OrderDTO, error) {
	next, err := enums.ParseOrderState(state)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	shop, err := s.ownedShop(ctx, actorID)
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orderIncludesShop(*order, shop.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve your shop")
	}
	if order.State == next {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already in the requested state")
	}

	prev := order.State
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateOrderState(ctx, orderID, next); err != nil {
			return fmt.Errorf("updating order state: %w", err)
		}
		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStateChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Actor:         &outbox.ActorRef{UserID: actorID, ShopID: &shop.ID},
				Data: payloads.OrderStateChangedEvent{
					OrderID:   orderID,
					UserID:    order.UserID,
					FromState: prev,
					ToState:   next,
					ChangedAt: time.Now(),
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emitting state event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order")
	}

	s.enqueueNotify(ctx, orderID, "order.state_changed", &actorID)

	order.State = next
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) LowStock(ctx context.Context, ownerID uuid.UUID, threshold int) ([]LowStockRow, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be non-negative")
	}
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.catalog.LowStockListings(ctx, shop.ID, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing low stock")
	}
	out := make([]LowStockRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, LowStockRow{
			ListingID:   row.ID,
			ProductName: row.Product.Name,
			Quantity:    row.Quantity,
		})
	}
	return out, nil
}

func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	counts, err := s.repo.CountOrdersByState(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting orders")
	}
	revenue, err := s.repo.Revenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing revenue")
	}
	return &StatsDTO{OrdersByState: counts, Revenue: revenue}, nil
}

func (s *service) loadOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) ownedShop(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	shop, err := s.catalog.FindShopByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shop registered for this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
	}
	return shop, nil
}

func (s *service) enqueueNotify(ctx context.Context, orderID int64, event string, submitter *uuid.UUID) {
	if s.jobs == nil {
		return
	}
	payload := notifyPayload{OrderID: orderID, Event: event}
	if _, err := s.jobs.Enqueue(ctx, enums.JobOrderNotify, payload, submitter); err != nil && s.logg != nil {
		fields := map[string]any{"order_id": orderID, "error": err.Error()}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "enqueueing notification failed")
	}
}

func findShortfalls(ids []int64, quantities map[int64]int64, listings map[int64]models.ProductListing) []ShortfallDTO {
	var shortfalls []ShortfallDTO
	for _, id := range ids {
		listing, ok := listings[id]
		if !ok {
			shortfalls = append(shortfalls, ShortfallDTO{ListingID: id, Requested: quantities[id], Available: 0})
			continue
		}
		if quantities[id] > int64(listing.Quantity) {
			shortfalls = append(shortfalls, ShortfallDTO{
				ListingID: id,
				Requested: quantities[id],
				Available: listing.Quantity,
			})
		}
	}
	return shortfalls
}

func insufficientStock(shortfalls []ShortfallDTO) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to fulfil the order").
		WithDetails(shortfalls)
}

func orderIncludesShop(order models.Order, shopID int64) bool {
	for _, item := range order.Items {
		if item.Listing.ShopID == shopID {
			return true
		}
	}
	return false
}

// partnerOrderView filters an order down to the lines sold by the shop.
func partnerOrderView(order models.Order, shopID int64) OrderDTO {
	filtered := order
	filtered.Items = nil
	for _, item := range order.Items {
		if item.Listing.ShopID == shopID {
			filtered.Items = append(filtered.Items, item)
		}
	}
	return toOrderDTO(filtered)
}
