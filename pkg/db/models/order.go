package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/pkg/enums"
)

// Contact is a buyer delivery address with its own lifecycle.
type Contact struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	City      string    `gorm:"column:city;not null"`
	Street    string    `gorm:"column:street;not null"`
	House     string    `gorm:"column:house;not null;default:''"`
	Phone     string    `gorm:"column:phone;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Order is the durable result of a checkout.
type Order struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	ContactID int64            `gorm:"column:contact_id;not null"`
	State     enums.OrderState `gorm:"column:state;type:text;not null;default:'new'"`
	Contact   *Contact         `gorm:"foreignKey:ContactID"`
	Items     []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots one ordered line. Rows are immutable once written; the
// unit price is captured at order time so later price changes on the listing
// do not rewrite history.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ListingID int64           `gorm:"column:listing_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Listing   *ProductListing `gorm:"foreignKey:ListingID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
