package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/internal/feed"
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

type feedFetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Report summarizes a completed import.
type Report struct {
	ShopID     int64
	ShopName   string
	Categories int
	Goods      int
	Parameters int
}

// String renders the human-readable summary stored on the job row.
func (r Report) String() string {
	return fmt.Sprintf("imported %d goods in %d categories for shop %q", r.Goods, r.Categories, r.ShopName)
}

// Service replaces a supplier's catalog from a published price list.
type Service interface {
	ImportFromURL(ctx context.Context, ownerID uuid.UUID, source string) (*Report, error)
	ImportBytes(ctx context.Context, ownerID uuid.UUID, data []byte) (*Report, error)
	ImportDocument(ctx context.Context, ownerID uuid.UUID, doc *feed.Document) (*Report, error)
}

type service struct {
	tx      txRunner
	repo    catalog.Repository
	fetcher feedFetcher
	events  eventEmitter
	logg    *logger.Logger
}

// NewService builds the ingest service.
func NewService(tx txRunner, repo catalog.Repository, fetcher feedFetcher, events eventEmitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("feed fetcher required")
	}
	return &service{tx: tx, repo: repo, fetcher: fetcher, events: events, logg: logg}, nil
}

// ImportFromURL downloads, parses and applies a price list.
func (s *service) ImportFromURL(ctx context.Context, ownerID uuid.UUID, source string) (*Report, error) {
	body, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	doc, err := feed.Parse(body)
	if err != nil {
		return nil, err
	}
	return s.ImportDocument(ctx, ownerID, doc)
}

// ImportBytes parses an uploaded price list and applies it.
func (s *service) ImportBytes(ctx context.Context, ownerID uuid.UUID, data []byte) (*Report, error) {
	doc, err := feed.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.ImportDocument(ctx, ownerID, doc)
}

// ImportDocument applies a parsed price list as one transaction. The shop's
// previous listings are dropped and rebuilt; a failure anywhere leaves the
// catalog untouched.
func (s *service) ImportDocument(ctx context.Context, ownerID uuid.UUID, doc *feed.Document) (*Report, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if doc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list document is required")
	}

	report := &Report{ShopName: doc.Shop}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shop, err := repo.GetOrCreateShop(ctx, doc.Shop, ownerID)
		if err != nil {
			return fmt.Errorf("resolving shop: %w", err)
		}
		report.ShopID = shop.ID

		if err := repo.DeleteListingsByShop(ctx, shop.ID); err != nil {
			return fmt.Errorf("clearing previous listings: %w", err)
		}

		for _, category := range doc.Categories {
			if _, err := repo.GetOrCreateCategory(ctx, category.ID, category.Name); err != nil {
				return fmt.Errorf("upserting category %d: %w", category.ID, err)
			}
			if err := repo.LinkShopCategory(ctx, shop.ID, category.ID); err != nil {
				return fmt.Errorf("linking category %d: %w", category.ID, err)
			}
		}
		report.Categories = len(doc.Categories)

		for _, good := range doc.Goods {
			if err := s.applyGood(ctx, repo, shop.ID, good, report); err != nil {
				return err
			}
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventCatalogReplaced,
				AggregateType: enums.AggregateShop,
				AggregateID:   shop.ID,
				Actor:         &outbox.ActorRef{UserID: ownerID, ShopID: &shop.ID},
				Data: payloads.CatalogReplacedEvent{
					ShopID:       shop.ID,
					ShopName:     doc.Shop,
					ProductCount: len(doc.Goods),
					ListingCount: report.Goods,
					ImportedAt:   time.Now(),
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emitting catalog event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "importing price list")
	}

	if s.logg != nil {
		fields := map[string]any{"shop_id": report.ShopID, "goods": report.Goods}
		s.logg.Info(s.logg.WithFields(ctx, fields), "price list imported")
	}
	return report, nil
}

func (s *service) applyGood(ctx context.Context, repo catalog.Repository, shopID int64, good feed.Good, report *Report) error {
	product, err := repo.GetOrCreateProduct(ctx, good.Name, good.Category)
	if err != nil {
		return fmt.Errorf("resolving product %q: %w", good.Name, err)
	}

	listing := &models.ProductListing{
		ShopID:     shopID,
		ProductID:  product.ID,
		ExternalID: good.ID,
		Model:      good.Model,
		Price:      good.Price,
		PriceRRC:   good.PriceRRC,
		Quantity:   good.Quantity,
	}
	if err := repo.CreateListing(ctx, listing); err != nil {
		return fmt.Errorf("creating listing for good %d: %w", good.ID, err)
	}
	report.Goods++

	if len(good.Parameters) == 0 {
		return nil
	}
	params := make([]models.ListingParameter, 0, len(good.Parameters))
	for name, value := range good.Parameters {
		parameter, err := repo.GetOrCreateParameter(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving parameter %q: %w", name, err)
		}
		params = append(params, models.ListingParameter{
			ListingID:   listing.ID,
			ParameterID: parameter.ID,
			Value:       value.String(),
		})
	}
	if err := repo.CreateListingParameters(ctx, params); err != nil {
		return fmt.Errorf("creating parameters for good %d: %w", good.ID, err)
	}
	report.Parameters += len(params)
	return nil
}
