package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
)

// Repository persists background jobs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Insert(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]models.Job, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, result string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a jobs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimPending moves up to limit due jobs into the running state and returns
// them. Competing workers skip each other's rows on Postgres.
func (r *repository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	var claimed []models.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("status = ? AND run_at <= ?", enums.JobStatusPending, now).
			Order("run_at ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var due []models.Job
		if err := query.Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(due))
		for _, job := range due {
			ids = append(ids, job.ID)
		}
		if err := tx.Model(&models.Job{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":   enums.JobStatusRunning,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error; err != nil {
			return err
		}

		for i := range due {
			due[i].Status = enums.JobStatusRunning
			due[i].Attempts++
		}
		claimed = due
		return nil
	})
	return claimed, err
}

func (r *repository) MarkSucceeded(ctx context.Context, id uuid.UUID, result string) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.JobStatusSucceeded,
			"result":     result,
			"last_error": nil,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.JobStatusFailed,
			"last_error": lastError,
		}).Error
}

func (r *repository) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.JobStatusPending,
			"run_at":     runAt,
			"last_error": lastError,
		}).Error
}
