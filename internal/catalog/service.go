package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/pagination"
)

// BrowseParams carries the buyer-facing listing filters.
type BrowseParams struct {
	ShopID     *int64
	CategoryID *int64
	Query      string
	Limit      int
	Cursor     string
}

// Service exposes catalog browsing plus the partner on/off switch.
type Service interface {
	ListListings(ctx context.Context, params BrowseParams) (*ListingPage, error)
	GetListing(ctx context.Context, id int64) (*ListingDetailDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListShops(ctx context.Context) ([]ShopDTO, error)

	PartnerState(ctx context.Context, ownerID uuid.UUID) (*PartnerStateDTO, error)
	SetPartnerState(ctx context.Context, ownerID uuid.UUID, active bool) (*PartnerStateDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListListings(ctx context.Context, params BrowseParams) (*ListingPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, next, err := s.repo.ListListings(ctx, ListListingsParams{
		ShopID:     params.ShopID,
		CategoryID: params.CategoryID,
		Query:      strings.TrimSpace(params.Query),
		Limit:      params.Limit,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing catalog")
	}

	page := &ListingPage{Items: make([]ListingDTO, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, toListingDTO(row))
	}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) GetListing(ctx context.Context, id int64) (*ListingDetailDTO, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	listing, err := s.repo.FindListingDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing")
	}
	if !listing.Shop.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	detail := toListingDetailDTO(*listing)
	return &detail, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryDTO{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) ListShops(ctx context.Context) ([]ShopDTO, error) {
	rows, err := s.repo.ListActiveShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shops")
	}
	out := make([]ShopDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ShopDTO{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) PartnerState(ctx context.Context, ownerID uuid.UUID) (*PartnerStateDTO, error) {
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &PartnerStateDTO{ShopID: shop.ID, Name: shop.Name, Active: shop.Active}, nil
}

func (s *service) SetPartnerState(ctx context.Context, ownerID uuid.UUID, active bool) (*PartnerStateDTO, error) {
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if shop.Active != active {
		if err := s.repo.SetShopActive(ctx, shop.ID, active); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating shop state")
		}
		shop.Active = active
	}
	return &PartnerStateDTO{ShopID: shop.ID, Name: shop.Name, Active: shop.Active}, nil
}

func (s *service) ownedShop(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
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
	return shop, nil
}
