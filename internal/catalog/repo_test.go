package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS shops (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS categories (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS shop_categories (
  shop_id INTEGER NOT NULL,
  category_id INTEGER NOT NULL,
  PRIMARY KEY (shop_id, category_id)
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  category_id INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS parameters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_listings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  shop_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  external_id INTEGER NOT NULL,
  model TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL DEFAULT 0,
  price_rrc NUMERIC NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS listing_parameters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listing_id INTEGER NOT NULL REFERENCES product_listings(id) ON DELETE CASCADE,
  parameter_id INTEGER NOT NULL,
  value TEXT NOT NULL DEFAULT ''
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedListing(t *testing.T, repo Repository, shopID int64, categoryID int64, productName string, price string, qty int) *models.ProductListing {
	t.Helper()
	ctx := context.Background()

	product, err := repo.GetOrCreateProduct(ctx, productName, categoryID)
	require.NoError(t, err)

	listing := &models.ProductListing{
		ShopID:     shopID,
		ProductID:  product.ID,
		ExternalID: product.ID,
		Price:      decimal.RequireFromString(price),
		PriceRRC:   decimal.RequireFromString(price),
		Quantity:   qty,
	}
	require.NoError(t, repo.CreateListing(ctx, listing))
	return listing
}

func TestGetOrCreateShopIsIdempotentAndRenames(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first, err := repo.GetOrCreateShop(ctx, "Svyaznoy", owner)
	require.NoError(t, err)

	second, err := repo.GetOrCreateShop(ctx, "Svyaznoy", owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	renamed, err := repo.GetOrCreateShop(ctx, "Svyaznoy Plus", owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, renamed.ID)
	assert.Equal(t, "Svyaznoy Plus", renamed.Name)
}

func TestGetOrCreateCategoryKeepsFirstName(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)
	assert.Equal(t, int64(224), created.ID)
	assert.Equal(t, "Smartphones", created.Name)

	reused, err := repo.GetOrCreateCategory(ctx, 224, "RENAMED")
	require.NoError(t, err)
	assert.Equal(t, int64(224), reused.ID)
	assert.Equal(t, "Smartphones", reused.Name)

	var row models.Category
	require.NoError(t, db.First(&row, "id = ?", 224).Error)
	assert.Equal(t, "Smartphones", row.Name)
}

func TestLinkShopCategoryIsIdempotent(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", uuid.New())
	require.NoError(t, err)
	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	require.NoError(t, repo.LinkShopCategory(ctx, shop.ID, 224))
	require.NoError(t, repo.LinkShopCategory(ctx, shop.ID, 224))

	var count int64
	require.NoError(t, db.Model(&models.ShopCategory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateProductReusesByName(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	first, err := repo.GetOrCreateProduct(ctx, "IPhone X", 224)
	require.NoError(t, err)
	second, err := repo.GetOrCreateProduct(ctx, "IPhone X", 224)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestListListingsFiltersAndPaginates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", uuid.New())
	require.NoError(t, err)
	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	seedListing(t, repo, shop.ID, 224, "IPhone X", "110000.00", 14)
	seedListing(t, repo, shop.ID, 224, "IPhone XS", "120000.00", 6)
	seedListing(t, repo, shop.ID, 224, "Galaxy S10", "90000.00", 3)

	page, next, err := repo.ListListings(ctx, ListListingsParams{Query: "IPhone", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Nil(t, next)

	page, next, err = repo.ListListings(ctx, ListListingsParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	require.NotNil(t, next)

	rest, _, err := repo.ListListings(ctx, ListListingsParams{Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestFindActiveByIDsSkipsInactiveShops(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	active, err := repo.GetOrCreateShop(ctx, "Svyaznoy", uuid.New())
	require.NoError(t, err)
	inactive, err := repo.GetOrCreateShop(ctx, "Evotor", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.SetShopActive(ctx, inactive.ID, false))

	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	l1 := seedListing(t, repo, active.ID, 224, "IPhone X", "110000.00", 14)
	l2 := seedListing(t, repo, inactive.ID, 224, "Galaxy S10", "90000.00", 3)

	found, err := repo.FindActiveByIDs(ctx, []int64{l1.ID, l2.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, l1.ID, found[0].ID)
}

func TestLowStockListings(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", uuid.New())
	require.NoError(t, err)
	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	seedListing(t, repo, shop.ID, 224, "IPhone X", "110000.00", 14)
	low := seedListing(t, repo, shop.ID, 224, "IPhone XS", "120000.00", 2)

	rows, err := repo.LowStockListings(ctx, shop.ID, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, low.ID, rows[0].ID)
}

func TestDeleteListingsByShopRemovesOnlyThatShop(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopA, err := repo.GetOrCreateShop(ctx, "Svyaznoy", uuid.New())
	require.NoError(t, err)
	shopB, err := repo.GetOrCreateShop(ctx, "Evotor", uuid.New())
	require.NoError(t, err)
	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	seedListing(t, repo, shopA.ID, 224, "IPhone X", "110000.00", 14)
	kept := seedListing(t, repo, shopB.ID, 224, "Galaxy S10", "90000.00", 3)

	require.NoError(t, repo.DeleteListingsByShop(ctx, shopA.ID))

	var remaining []models.ProductListing
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ID)
}
