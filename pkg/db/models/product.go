package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the logical good, shared by every shop that lists it. The
// category is assigned when the product is first seen and never rewritten by
// later feeds.
type Product struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;not null;uniqueIndex"`
	CategoryID int64     `gorm:"column:category_id;not null"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProductListing is one shop's priced, quantified instance of a Product.
// Uniqueness per (shop, external id) is guaranteed by the full-replace
// ingestion rather than a schema constraint.
type ProductListing struct {
	ID         int64              `gorm:"column:id;primaryKey;autoIncrement"`
	ShopID     int64              `gorm:"column:shop_id;not null;index"`
	ProductID  int64              `gorm:"column:product_id;not null"`
	ExternalID int64              `gorm:"column:external_id;not null"`
	Model      string             `gorm:"column:model;not null;default:''"`
	Price      decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	PriceRRC   decimal.Decimal    `gorm:"column:price_rrc;type:numeric(12,2);not null"`
	Quantity   int                `gorm:"column:quantity;not null;default:0"`
	Shop       *Shop              `gorm:"foreignKey:ShopID"`
	Product    *Product           `gorm:"foreignKey:ProductID"`
	Parameters []ListingParameter `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Parameter is a globally deduplicated attribute name ("color", "memory").
type Parameter struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

// ListingParameter attaches a free-form attribute value to one listing.
type ListingParameter struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID   int64      `gorm:"column:listing_id;not null;index"`
	ParameterID int64      `gorm:"column:parameter_id;not null"`
	Value       string     `gorm:"column:value;not null"`
	Parameter   *Parameter `gorm:"foreignKey:ParameterID"`
}
