package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/db/models"
)

// ListingDTO is the browse row shape returned to buyers.
type ListingDTO struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Model       string          `json:"model"`
	CategoryID  int64           `json:"category_id"`
	ShopID      int64           `json:"shop_id"`
	ShopName    string          `json:"shop_name"`
	Price       decimal.Decimal `json:"price"`
	PriceRRC    decimal.Decimal `json:"price_rrc"`
	Quantity    int             `json:"quantity"`
}

// ListingDetailDTO adds parameters and category naming to the browse row.
type ListingDetailDTO struct {
	ListingDTO
	CategoryName string            `json:"category_name"`
	Parameters   map[string]string `json:"parameters"`
}

// ListingPage is one page of browse results.
type ListingPage struct {
	Items  []ListingDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

// CategoryDTO mirrors the category rows exposed to buyers.
type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ShopDTO mirrors active shops exposed to buyers.
type ShopDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PartnerStateDTO reports whether a shop is accepting orders.
type PartnerStateDTO struct {
	ShopID int64  `json:"shop_id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func toListingDTO(listing models.ProductListing) ListingDTO {
	return ListingDTO{
		ID:          listing.ID,
		ProductName: listing.Product.Name,
		Model:       listing.Model,
		CategoryID:  listing.Product.CategoryID,
		ShopID:      listing.ShopID,
		ShopName:    listing.Shop.Name,
		Price:       listing.Price,
		PriceRRC:    listing.PriceRRC,
		Quantity:    listing.Quantity,
	}
}

func toListingDetailDTO(listing models.ProductListing) ListingDetailDTO {
	detail := ListingDetailDTO{
		ListingDTO:   toListingDTO(listing),
		CategoryName: listing.Product.Category.Name,
		Parameters:   make(map[string]string, len(listing.Parameters)),
	}
	for _, p := range listing.Parameters {
		detail.Parameters[p.Parameter.Name] = p.Value
	}
	return detail
}
