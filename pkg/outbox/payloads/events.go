package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly placed order with stock decremented.
type OrderCreatedEvent struct {
	OrderID   int64           `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	ContactID int64           `json:"contact_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	ShopIDs   []int64         `json:"shop_ids"`
}

// OrderStateChangedEvent is emitted when a supplier moves an order between states.
type OrderStateChangedEvent struct {
	OrderID   int64            `json:"order_id"`
	UserID    uuid.UUID        `json:"user_id"`
	FromState enums.OrderState `json:"from_state"`
	ToState   enums.OrderState `json:"to_state"`
	ChangedAt time.Time        `json:"changed_at"`
}

// CatalogReplacedEvent reports a completed price list import for a shop.
type CatalogReplacedEvent struct {
	ShopID       int64     `json:"shop_id"`
	ShopName     string    `json:"shop_name"`
	ProductCount int       `json:"product_count"`
	ListingCount int       `json:"listing_count"`
	ImportedAt   time.Time `json:"imported_at"`
}
