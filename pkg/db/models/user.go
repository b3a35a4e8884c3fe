package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/procurehub/backend/pkg/enums"
)

// User mirrors the accounts managed by the external identity service. Rows are
// synced in, never created through this API; orders and shops reference them.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null;default:''"`
	Company   string         `gorm:"column:company;not null;default:''"`
	Type      enums.UserType `gorm:"column:type;type:text;not null;default:'buyer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
