package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/procurehub/backend/pkg/enums"
)

// Job is one unit of asynchronous work. The worker claims pending rows,
// dispatches by name and records the outcome so callers can poll the handle.
type Job struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null;index"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	SubmitterID *uuid.UUID      `gorm:"column:submitter_id;type:uuid"`
	Status      enums.JobStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Attempts    int             `gorm:"column:attempts;not null;default:0"`
	MaxAttempts int             `gorm:"column:max_attempts;not null;default:3"`
	RunAt       time.Time       `gorm:"column:run_at;not null;index"`
	Result      *string         `gorm:"column:result"`
	LastError   *string         `gorm:"column:last_error"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
