package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/internal/feed"
	"github.com/procurehub/backend/pkg/config"
	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
)

// Result describes a finished export artifact.
type Result struct {
	ShopID      int64  `json:"shop_id"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url,omitempty"`
	Goods       int    `json:"goods"`
}

// String renders the summary stored on the job row.
func (r Result) String() string {
	if r.DownloadURL != "" {
		return fmt.Sprintf("exported %d goods to %s", r.Goods, r.DownloadURL)
	}
	return fmt.Sprintf("exported %d goods to %s", r.Goods, r.Filename)
}

// Service renders a shop's current catalog back into the feed format.
type Service interface {
	ExportShop(ctx context.Context, ownerID uuid.UUID) (*Result, error)
}

type service struct {
	repo catalog.Repository
	cfg  config.ExportConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the export service.
func NewService(repo catalog.Repository, cfg config.ExportConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("export dir required")
	}
	return &service{repo: repo, cfg: cfg, logg: logg, now: time.Now}, nil
}

// ExportShop writes a timestamped JSON price list for the owner's shop.
// The artifact round-trips through the import parser unchanged.
func (s *service) ExportShop(ctx context.Context, ownerID uuid.UUID) (*Result, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	shop, err := s.repo.FindShopByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shop registered for this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
	}

	listings, err := s.repo.ListListingsByShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listings")
	}

	doc := buildDocument(shop.Name, listings)

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating export dir")
	}

	filename := fmt.Sprintf("price_list_%d_%s.json", shop.ID, s.now().UTC().Format("20060102T150405"))
	path := filepath.Join(s.cfg.Dir, filename)

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding export")
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing export file")
	}

	result := &Result{
		ShopID:   shop.ID,
		Filename: filename,
		Path:     path,
		Goods:    len(doc.Goods),
	}
	if base := strings.TrimRight(s.cfg.BaseURL, "/"); base != "" {
		result.DownloadURL = base + "/" + filename
	}

	if s.logg != nil {
		fields := map[string]any{"shop_id": shop.ID, "file": filename, "goods": result.Goods}
		s.logg.Info(s.logg.WithFields(ctx, fields), "price list exported")
	}
	return result, nil
}

func buildDocument(shopName string, listings []models.ProductListing) feed.Document {
	doc := feed.Document{Shop: shopName}

	seenCategories := map[int64]struct{}{}
	for _, listing := range listings {
		category := listing.Product.Category
		if _, ok := seenCategories[category.ID]; !ok && category.ID != 0 {
			seenCategories[category.ID] = struct{}{}
			doc.Categories = append(doc.Categories, feed.Category{ID: category.ID, Name: category.Name})
		}

		good := feed.Good{
			ID:       listing.ExternalID,
			Category: listing.Product.CategoryID,
			Model:    listing.Model,
			Name:     listing.Product.Name,
			Price:    listing.Price,
			PriceRRC: listing.PriceRRC,
			Quantity: listing.Quantity,
		}
		if len(listing.Parameters) > 0 {
			good.Parameters = make(map[string]feed.FlexString, len(listing.Parameters))
			for _, p := range listing.Parameters {
				good.Parameters[p.Parameter.Name] = feed.FlexString(p.Value)
			}
		}
		doc.Goods = append(doc.Goods, good)
	}

	sort.Slice(doc.Categories, func(i, j int) bool { return doc.Categories[i].ID < doc.Categories[j].ID })
	return doc
}
