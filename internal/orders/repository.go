package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
)

// Repository exposes order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListingsForUpdate(ctx context.Context, ids []int64) ([]models.ProductListing, error)
	DecrementListingStock(ctx context.Context, listingID int64, qty int) (bool, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error

	FindOrderDetail(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListOrdersByShop(ctx context.Context, shopID int64) ([]models.Order, error)
	UpdateOrderState(ctx context.Context, orderID int64, state enums.OrderState) error

	CountOrdersByState(ctx context.Context) (map[enums.OrderState]int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListingsForUpdate loads listings in ascending id order, taking row locks on
// Postgres. Ascending order keeps concurrent checkouts from deadlocking each
// other.
func (r *repository) ListingsForUpdate(ctx context.Context, ids []int64) ([]models.ProductListing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var listings []models.ProductListing
	err := query.
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&listings).Error
	return listings, err
}

// DecrementListingStock applies a guarded decrement; the guard makes the write
// a no-op when stock has dropped below the requested quantity.
func (r *repository) DecrementListingStock(ctx context.Context, listingID int64, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductListing{}).
		Where("id = ? AND quantity >= ?", listingID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrderDetail(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Preload("Items").
		Preload("Items.Listing").
		Preload("Items.Listing.Product").
		Preload("Items.Listing.Shop").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// ListOrdersByShop returns orders containing at least one item sold by the shop.
func (r *repository) ListOrdersByShop(ctx context.Context, shopID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Preload("Items").
		Preload("Items.Listing").
		Preload("Items.Listing.Product").
		Preload("Items.Listing.Shop").
		Where("id IN (?)", r.db.
			Model(&models.OrderItem{}).
			Select("order_items.order_id").
			Joins("JOIN product_listings ON product_listings.id = order_items.listing_id").
			Where("product_listings.shop_id = ?", shopID)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) UpdateOrderState(ctx context.Context, orderID int64, state enums.OrderState) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("state", state).Error
}

func (r *repository) CountOrdersByState(ctx context.Context) (map[enums.OrderState]int64, error) {
	type row struct {
		State enums.OrderState
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderState]int64, len(rows))
	for _, r := range rows {
		out[r.State] = r.Count
	}
	return out, nil
}

func (r *repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("SUM(quantity * unit_price)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
