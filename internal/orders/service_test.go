package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/internal/contacts"
	dbpkg "github.com/procurehub/backend/pkg/db"
	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/outbox"
)

type fakeBasket struct {
	lines   map[uuid.UUID]map[int64]int64
	cleared int
}

func newFakeBasket() *fakeBasket {
	return &fakeBasket{lines: map[uuid.UUID]map[int64]int64{}}
}

func (f *fakeBasket) add(userID uuid.UUID, listingID, qty int64) {
	if f.lines[userID] == nil {
		f.lines[userID] = map[int64]int64{}
	}
	f.lines[userID][listingID] = qty
}

func (f *fakeBasket) Quantities(_ context.Context, userID uuid.UUID) (map[int64]int64, error) {
	out := map[int64]int64{}
	for id, qty := range f.lines[userID] {
		out[id] = qty
	}
	return out, nil
}

func (f *fakeBasket) Remove(_ context.Context, userID uuid.UUID, listingID int64) error {
	delete(f.lines[userID], listingID)
	return nil
}

func (f *fakeBasket) Clear(_ context.Context, userID uuid.UUID) error {
	delete(f.lines, userID)
	f.cleared++
	return nil
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type recordingEnqueuer struct {
	jobs []string
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, name string, _ any, _ *uuid.UUID) (*models.Job, error) {
	r.jobs = append(r.jobs, name)
	return &models.Job{ID: uuid.New(), Name: name}, nil
}

type orderFixture struct {
	svc      Service
	db       *gorm.DB
	basket   *fakeBasket
	emitter  *recordingEmitter
	enqueuer *recordingEnqueuer
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupOrdersTestDB(t)

	contactSvc, err := contacts.NewService(contacts.NewRepository(db))
	require.NoError(t, err)

	basket := newFakeBasket()
	emitter := &recordingEmitter{}
	enqueuer := &recordingEnqueuer{}

	svc, err := NewService(
		dbpkg.NewWithConn(db),
		NewRepository(db),
		basket,
		contactSvc,
		catalog.NewRepository(db),
		emitter,
		enqueuer,
		nil,
	)
	require.NoError(t, err)

	return &orderFixture{svc: svc, db: db, basket: basket, emitter: emitter, enqueuer: enqueuer}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14, 6)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 2)
	f.basket.add(buyer, ids[1], 1)

	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStateNew, order.State)
	require.Len(t, order.Items, 2)
	// 2*1000 + 1*2000
	assert.True(t, order.Total.Equal(decimal.NewFromInt(4000)), "total = %s", order.Total)

	var first models.ProductListing
	require.NoError(t, f.db.First(&first, "id = ?", ids[0]).Error)
	assert.Equal(t, 12, first.Quantity)

	assert.Equal(t, 1, f.basket.cleared)
	assert.Equal(t, []string{enums.JobOrderNotify}, f.enqueuer.jobs)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderCreated, f.emitter.events[0].EventType)
}

func TestPlaceOrderSnapshotsUnitPrice(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 10)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	// supplier reprices after the order was placed
	require.NoError(t, f.db.Model(&models.ProductListing{}).
		Where("id = ?", ids[0]).
		Update("price", decimal.NewFromInt(9999)).Error)

	reread, err := f.svc.GetMine(context.Background(), buyer, order.ID)
	require.NoError(t, err)
	assert.True(t, reread.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)),
		"snapshot price = %s", reread.Items[0].UnitPrice)
}

// repricingCatalog changes a listing's price right after the unlocked read,
// standing in for a feed import racing the checkout.
type repricingCatalog struct {
	catalog.Repository
	db        *gorm.DB
	listingID int64
	newPrice  decimal.Decimal
}

func (r *repricingCatalog) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.ProductListing, error) {
	listings, err := r.Repository.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ProductListing{}).
		Where("id = ?", r.listingID).
		Update("price", r.newPrice).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func TestPlaceOrderChargesPreCheckPriceOverConcurrentReprice(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 10)
	contact := seedContact(t, f.db, buyer)

	contactSvc, err := contacts.NewService(contacts.NewRepository(f.db))
	require.NoError(t, err)
	racing := &repricingCatalog{
		Repository: catalog.NewRepository(f.db),
		db:         f.db,
		listingID:  ids[0],
		newPrice:   decimal.NewFromInt(9999),
	}
	svc, err := NewService(
		dbpkg.NewWithConn(f.db),
		NewRepository(f.db),
		f.basket,
		contactSvc,
		racing,
		f.emitter,
		f.enqueuer,
		nil,
	)
	require.NoError(t, err)

	f.basket.add(buyer, ids[0], 2)
	order, err := svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)),
		"unit price = %s", order.Items[0].UnitPrice)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(2000)), "total = %s", order.Total)
}

func TestPlaceOrderRejectsShortfallWithoutDecrementing(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14, 3)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 2)
	f.basket.add(buyer, ids[1], 5) // only 3 available

	_, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())

	shortfalls, ok := appErr.Details().([]ShortfallDTO)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, ids[1], shortfalls[0].ListingID)
	assert.Equal(t, int64(5), shortfalls[0].Requested)
	assert.Equal(t, 3, shortfalls[0].Available)

	// nothing was decremented, no order exists
	var first models.ProductListing
	require.NoError(t, f.db.First(&first, "id = ?", ids[0]).Error)
	assert.Equal(t, 14, first.Quantity)
	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, f.basket.cleared)
}

func TestPlaceOrderPurgesStaleLines(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	f.basket.add(buyer, 99999, 2) // listing no longer exists

	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, ids[0], order.Items[0].ListingID)
}

func TestPlaceOrderWithOnlyStaleLinesFails(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, 99999, 2)

	_, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestPlaceOrderRejectsEmptyBasket(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	contact := seedContact(t, f.db, buyer)

	_, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basket is empty")
}

func TestPlaceOrderRejectsForeignContact(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14)
	foreign := seedContact(t, f.db, uuid.New())

	f.basket.add(buyer, ids[0], 1)

	_, err := f.svc.PlaceOrder(context.Background(), buyer, foreign.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestUpdateStateBySellingShopOwner(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	owner := uuid.New()
	ids := seedShopWithListings(t, f.db, owner, "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateState(context.Background(), owner, order.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStateConfirmed, updated.State)

	// order.created + order.state_changed
	require.Len(t, f.emitter.events, 2)
	assert.Equal(t, enums.EventOrderStateChanged, f.emitter.events[1].EventType)
	assert.Equal(t, []string{enums.JobOrderNotify, enums.JobOrderNotify}, f.enqueuer.jobs)
}

func TestUpdateStateRejectsUnknownState(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	owner := uuid.New()
	ids := seedShopWithListings(t, f.db, owner, "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateState(context.Background(), owner, order.ID, "teleported")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdateStateRejectsUninvolvedShop(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	seller := uuid.New()
	bystander := uuid.New()
	ids := seedShopWithListings(t, f.db, seller, "Svyaznoy", 14)
	seedShopWithListings(t, f.db, bystander, "Evotor", 5)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateState(context.Background(), bystander, order.ID, "confirmed")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestUpdateStateRejectsNoOpTransition(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	owner := uuid.New()
	ids := seedShopWithListings(t, f.db, owner, "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 1)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateState(context.Background(), owner, order.ID, "new")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestListForPartnerFiltersForeignLines(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	ownerA, ownerB := uuid.New(), uuid.New()
	idsA := seedShopWithListings(t, f.db, ownerA, "Svyaznoy", 14)
	idsB := seedShopWithListings(t, f.db, ownerB, "Evotor", 5)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, idsA[0], 1)
	f.basket.add(buyer, idsB[0], 2)
	_, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	partnerOrders, err := f.svc.ListForPartner(context.Background(), ownerA)
	require.NoError(t, err)
	require.Len(t, partnerOrders, 1)
	require.Len(t, partnerOrders[0].Items, 1)
	assert.Equal(t, idsA[0], partnerOrders[0].Items[0].ListingID)
}

func TestListMineAndGetMineScopeToBuyer(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	other := uuid.New()
	ids := seedShopWithListings(t, f.db, uuid.New(), "Svyaznoy", 14)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 2)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)

	mine, err := f.svc.ListMine(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)
	assert.True(t, mine[0].Total.Equal(order.Total))

	theirs, err := f.svc.ListMine(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = f.svc.GetMine(context.Background(), other, order.ID)
	require.Error(t, err)
}

func TestStatsAggregatesOrders(t *testing.T) {
	f := newOrderFixture(t)
	buyer := uuid.New()
	owner := uuid.New()
	ids := seedShopWithListings(t, f.db, owner, "Svyaznoy", 100)
	contact := seedContact(t, f.db, buyer)

	f.basket.add(buyer, ids[0], 2)
	order, err := f.svc.PlaceOrder(context.Background(), buyer, contact.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateState(context.Background(), owner, order.ID, "confirmed")
	require.NoError(t, err)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.OrdersByState[enums.OrderStateConfirmed])
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(2000)))
}

func TestLowStockForPartner(t *testing.T) {
	f := newOrderFixture(t)
	owner := uuid.New()
	ids := seedShopWithListings(t, f.db, owner, "Svyaznoy", 2, 50)

	rows, err := f.svc.LowStock(context.Background(), owner, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[0], rows[0].ListingID)
	assert.Equal(t, 2, rows[0].Quantity)
}
