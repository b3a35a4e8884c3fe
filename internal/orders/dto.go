package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
)

// OrderItemDTO is one line of a placed order with its price snapshot.
type OrderItemDTO struct {
	ListingID   int64           `json:"listing_id"`
	ProductName string          `json:"product_name"`
	ShopID      int64           `json:"shop_id"`
	ShopName    string          `json:"shop_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ContactDTO is the delivery address attached to an order.
type ContactDTO struct {
	ID     int64  `json:"id"`
	City   string `json:"city"`
	Street string `json:"street"`
	House  string `json:"house,omitempty"`
	Phone  string `json:"phone"`
}

// OrderDTO is the full order representation.
type OrderDTO struct {
	ID        int64            `json:"id"`
	State     enums.OrderState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	Contact   ContactDTO       `json:"contact"`
	Items     []OrderItemDTO   `json:"items"`
	Total     decimal.Decimal  `json:"total"`
}

// OrderSummaryDTO is the list row for buyer and partner order lists.
type OrderSummaryDTO struct {
	ID        int64            `json:"id"`
	State     enums.OrderState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	ItemCount int              `json:"item_count"`
	Total     decimal.Decimal  `json:"total"`
}

// ShortfallDTO names one basket line that cannot be fulfilled.
type ShortfallDTO struct {
	ListingID int64 `json:"listing_id"`
	Requested int64 `json:"requested"`
	Available int   `json:"available"`
}

// StatsDTO is the admin roll-up over all orders.
type StatsDTO struct {
	OrdersByState map[enums.OrderState]int64 `json:"orders_by_state"`
	Revenue       decimal.Decimal            `json:"revenue"`
}

func toOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:        order.ID,
		State:     order.State,
		CreatedAt: order.CreatedAt,
		Contact: ContactDTO{
			ID:     order.Contact.ID,
			City:   order.Contact.City,
			Street: order.Contact.Street,
			House:  order.Contact.House,
			Phone:  order.Contact.Phone,
		},
		Items: make([]OrderItemDTO, 0, len(order.Items)),
		Total: decimal.Zero,
	}
	for _, item := range order.Items {
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.Items = append(dto.Items, OrderItemDTO{
			ListingID:   item.ListingID,
			ProductName: item.Listing.Product.Name,
			ShopID:      item.Listing.ShopID,
			ShopName:    item.Listing.Shop.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    subtotal,
		})
		dto.Total = dto.Total.Add(subtotal)
	}
	return dto
}

func toOrderSummaryDTO(order models.Order) OrderSummaryDTO {
	summary := OrderSummaryDTO{
		ID:        order.ID,
		State:     order.State,
		CreatedAt: order.CreatedAt,
		ItemCount: len(order.Items),
		Total:     decimal.Zero,
	}
	for _, item := range order.Items {
		summary.Total = summary.Total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return summary
}
