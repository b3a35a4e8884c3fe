package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a supplier storefront. One owner holds at most one shop; the rule is
// enforced at creation time, not by schema.
type Shop struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Category groups products. Ids come from supplier feeds and are shared across
// shops, so the primary key is supplier-assigned rather than generated.
type Category struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null"`
}

// ShopCategory is the shop↔category association row. Kept as an explicit model
// so ingestion can upsert it idempotently.
type ShopCategory struct {
	ShopID     int64 `gorm:"column:shop_id;primaryKey"`
	CategoryID int64 `gorm:"column:category_id;primaryKey"`
}
