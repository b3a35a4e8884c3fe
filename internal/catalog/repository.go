package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/pagination"
)

// Repository exposes catalog persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindShopByID(ctx context.Context, id int64) (*models.Shop, error)
	FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error)
	GetOrCreateShop(ctx context.Context, name string, ownerID uuid.UUID) (*models.Shop, error)
	SetShopActive(ctx context.Context, shopID int64, active bool) error
	ListActiveShops(ctx context.Context) ([]models.Shop, error)

	GetOrCreateCategory(ctx context.Context, id int64, name string) (*models.Category, error)
	LinkShopCategory(ctx context.Context, shopID, categoryID int64) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	GetOrCreateProduct(ctx context.Context, name string, categoryID int64) (*models.Product, error)
	GetOrCreateParameter(ctx context.Context, name string) (*models.Parameter, error)

	DeleteListingsByShop(ctx context.Context, shopID int64) error
	CreateListing(ctx context.Context, listing *models.ProductListing) error
	CreateListingParameters(ctx context.Context, params []models.ListingParameter) error

	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.ProductListing, error)
	FindListingDetail(ctx context.Context, id int64) (*models.ProductListing, error)
	ListListings(ctx context.Context, params ListListingsParams) ([]models.ProductListing, *pagination.Cursor, error)
	ListListingsByShop(ctx context.Context, shopID int64) ([]models.ProductListing, error)
	CountListingsByShop(ctx context.Context, shopID int64) (int64, error)
	LowStockListings(ctx context.Context, shopID int64, threshold int) ([]models.ProductListing, error)
}

// ListListingsParams carries browse filters plus cursor pagination.
type ListListingsParams struct {
	ShopID     *int64
	CategoryID *int64
	Query      string
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindShopByID(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "owner_id = ?", ownerID).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) GetOrCreateShop(ctx context.Context, name string, ownerID uuid.UUID) (*models.Shop, error) {
	shop := models.Shop{Name: name, OwnerID: ownerID, Active: true}
	err := r.db.WithContext(ctx).
		Where(models.Shop{OwnerID: ownerID}).
		Attrs(models.Shop{Name: name, Active: true}).
		FirstOrCreate(&shop).Error
	if err != nil {
		return nil, err
	}
	// feed may rename the shop between imports
	if shop.Name != name {
		if err := r.db.WithContext(ctx).Model(&shop).Update("name", name).Error; err != nil {
			return nil, err
		}
		shop.Name = name
	}
	return &shop, nil
}

func (r *repository) SetShopActive(ctx context.Context, shopID int64, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Update("active", active).Error
}

func (r *repository) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&shops).Error
	return shops, err
}

// GetOrCreateCategory keys categories by the feed-supplied id. The name is
// set on first creation only; later feeds reusing the id do not rename it.
func (r *repository) GetOrCreateCategory(ctx context.Context, id int64, name string) (*models.Category, error) {
	category := models.Category{ID: id}
	err := r.db.WithContext(ctx).
		Where(models.Category{ID: id}).
		Attrs(models.Category{Name: name}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) LinkShopCategory(ctx context.Context, shopID, categoryID int64) error {
	link := models.ShopCategory{ShopID: shopID, CategoryID: categoryID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *repository) GetOrCreateProduct(ctx context.Context, name string, categoryID int64) (*models.Product, error) {
	product := models.Product{Name: name, CategoryID: categoryID}
	err := r.db.WithContext(ctx).
		Where(models.Product{Name: name}).
		Attrs(models.Product{CategoryID: categoryID}).
		FirstOrCreate(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetOrCreateParameter(ctx context.Context, name string) (*models.Parameter, error) {
	param := models.Parameter{Name: name}
	err := r.db.WithContext(ctx).
		Where(models.Parameter{Name: name}).
		FirstOrCreate(&param).Error
	if err != nil {
		return nil, err
	}
	return &param, nil
}

func (r *repository) DeleteListingsByShop(ctx context.Context, shopID int64) error {
	return r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Delete(&models.ProductListing{}).Error
}

func (r *repository) CreateListing(ctx context.Context, listing *models.ProductListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) CreateListingParameters(ctx context.Context, params []models.ListingParameter) error {
	if len(params) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&params).Error
}

func (r *repository) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.ProductListing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var listings []models.ProductListing
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Shop").
		Joins("JOIN shops ON shops.id = product_listings.shop_id AND shops.active = ?", true).
		Where("product_listings.id IN ?", ids).
		Find(&listings).Error
	return listings, err
}

func (r *repository) FindListingDetail(ctx context.Context, id int64) (*models.ProductListing, error) {
	var listing models.ProductListing
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Preload("Shop").
		Preload("Parameters.Parameter").
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ListListings(ctx context.Context, params ListListingsParams) ([]models.ProductListing, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Shop").
		Joins("JOIN shops ON shops.id = product_listings.shop_id AND shops.active = ?", true).
		Joins("JOIN products ON products.id = product_listings.product_id")

	if params.ShopID != nil {
		query = query.Where("product_listings.shop_id = ?", *params.ShopID)
	}
	if params.CategoryID != nil {
		query = query.Where("products.category_id = ?", *params.CategoryID)
	}
	if params.Query != "" {
		pattern := "%" + params.Query + "%"
		query = query.Where("products.name LIKE ? OR product_listings.model LIKE ?", pattern, pattern)
	}
	if params.Cursor != nil {
		query = query.Where(
			"product_listings.created_at > ? OR (product_listings.created_at = ? AND product_listings.id > ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var listings []models.ProductListing
	err := query.
		Order("product_listings.created_at ASC").
		Order("product_listings.id ASC").
		Limit(limit + 1).
		Find(&listings).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(listings) > limit {
		last := listings[limit-1]
		listings = listings[:limit]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return listings, next, nil
}

func (r *repository) ListListingsByShop(ctx context.Context, shopID int64) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Preload("Parameters.Parameter").
		Where("shop_id = ?", shopID).
		Order("id ASC").
		Find(&listings).Error
	return listings, err
}

func (r *repository) CountListingsByShop(ctx context.Context, shopID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductListing{}).
		Where("shop_id = ?", shopID).
		Count(&count).Error
	return count, err
}

func (r *repository) LowStockListings(ctx context.Context, shopID int64, threshold int) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("shop_id = ? AND quantity <= ?", shopID, threshold).
		Order("quantity ASC").
		Order("id ASC").
		Find(&listings).Error
	return listings, err
}
