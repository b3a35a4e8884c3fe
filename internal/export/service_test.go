package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/internal/feed"
	"github.com/procurehub/backend/pkg/config"
	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

func setupExportTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
  listing_id INTEGER NOT NULL,
  parameter_id INTEGER NOT NULL,
  value TEXT NOT NULL DEFAULT ''
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedShopCatalog(t *testing.T, repo catalog.Repository, owner uuid.UUID) int64 {
	t.Helper()
	ctx := context.Background()

	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", owner)
	require.NoError(t, err)
	_, err = repo.GetOrCreateCategory(ctx, 224, "Smartphones")
	require.NoError(t, err)

	product, err := repo.GetOrCreateProduct(ctx, "IPhone X 256GB", 224)
	require.NoError(t, err)
	listing := &models.ProductListing{
		ShopID:     shop.ID,
		ProductID:  product.ID,
		ExternalID: 4216292,
		Model:      "apple/iphone/x",
		Price:      decimal.NewFromInt(110000),
		PriceRRC:   decimal.NewFromInt(116990),
		Quantity:   14,
	}
	require.NoError(t, repo.CreateListing(ctx, listing))

	param, err := repo.GetOrCreateParameter(ctx, "Color")
	require.NoError(t, err)
	require.NoError(t, repo.CreateListingParameters(ctx, []models.ListingParameter{
		{ListingID: listing.ID, ParameterID: param.ID, Value: "space gray"},
	}))
	return shop.ID
}

func TestExportShopWritesRoundTrippableArtifact(t *testing.T) {
	db := setupExportTestDB(t)
	repo := catalog.NewRepository(db)
	owner := uuid.New()
	seedShopCatalog(t, repo, owner)

	dir := t.TempDir()
	svc, err := NewService(repo, config.ExportConfig{Dir: dir, BaseURL: "https://cdn.procurehub.dev/exports"}, nil)
	require.NoError(t, err)

	result, err := svc.ExportShop(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Goods)
	assert.True(t, strings.HasPrefix(result.Filename, "price_list_"))
	assert.Equal(t, "https://cdn.procurehub.dev/exports/"+result.Filename, result.DownloadURL)
	assert.Contains(t, result.String(), result.DownloadURL)

	raw, err := os.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)

	doc, err := feed.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Svyaznoy", doc.Shop)
	require.Len(t, doc.Categories, 1)
	assert.Equal(t, int64(224), doc.Categories[0].ID)
	require.Len(t, doc.Goods, 1)
	assert.Equal(t, int64(4216292), doc.Goods[0].ID)
	assert.True(t, doc.Goods[0].Price.Equal(decimal.NewFromInt(110000)))
	assert.Equal(t, "space gray", doc.Goods[0].Parameters["Color"].String())
}

func TestExportShopWithoutShopReturnsNotFound(t *testing.T) {
	db := setupExportTestDB(t)
	repo := catalog.NewRepository(db)

	svc, err := NewService(repo, config.ExportConfig{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	_, err = svc.ExportShop(context.Background(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
