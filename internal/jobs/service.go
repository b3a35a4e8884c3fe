package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/config"
	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/metrics"
)

// HandlerFunc processes one claimed job. The returned string is stored as the
// job result on success.
type HandlerFunc func(ctx context.Context, job *models.Job) (string, error)

// Service enqueues jobs and runs the worker poll loop.
type Service interface {
	Enqueue(ctx context.Context, name string, payload any, submitterID *uuid.UUID) (*models.Job, error)
	Get(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*models.Job, error)
	Register(name string, handler HandlerFunc)
	Run(ctx context.Context) error
	RunOnce(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	cfg      config.JobsConfig
	metrics  *metrics.JobMetrics
	logg     *logger.Logger
	handlers map[string]HandlerFunc
	now      func() time.Time
}

// NewService builds the jobs service.
func NewService(repo Repository, cfg config.JobsConfig, jm *metrics.JobMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("jobs batch size must be positive")
	}
	return &service{
		repo:     repo,
		cfg:      cfg,
		metrics:  jm,
		logg:     logg,
		handlers: map[string]HandlerFunc{},
		now:      time.Now,
	}, nil
}

func (s *service) Register(name string, handler HandlerFunc) {
	if name == "" || handler == nil {
		return
	}
	s.handlers[name] = handler
}

// Enqueue persists a pending job. The payload is stored as JSON and handed to
// the handler untouched.
func (s *service) Enqueue(ctx context.Context, name string, payload any, submitterID *uuid.UUID) (*models.Job, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job name is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding job payload")
	}

	job := &models.Job{
		ID:          uuid.New(),
		Name:        name,
		Payload:     body,
		SubmitterID: submitterID,
		Status:      enums.JobStatusPending,
		MaxAttempts: s.cfg.MaxAttempts,
		RunAt:       s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting job")
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"job_id": job.ID.String(), "job": name})
		s.logg.Info(ctx, "job enqueued")
	}
	return job, nil
}

// Get returns a job the user submitted. Jobs submitted by others are hidden.
func (s *service) Get(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*models.Job, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id is required")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading job")
	}
	if job.SubmitterID == nil || *job.SubmitterID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	return job, nil
}

// Run polls for due jobs until the context is cancelled.
func (s *service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && s.logg != nil {
				s.logg.Error(ctx, "job batch failed", err)
			}
		}
	}
}

// RunOnce claims and executes one batch of due jobs, returning how many ran.
func (s *service) RunOnce(ctx context.Context) (int, error) {
	claimed, err := s.repo.ClaimPending(ctx, s.now().UTC(), s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming jobs: %w", err)
	}
	for i := range claimed {
		s.execute(ctx, &claimed[i])
	}
	return len(claimed), nil
}

func (s *service) execute(ctx context.Context, job *models.Job) {
	jobCtx := ctx
	if s.logg != nil {
		jobCtx = s.logg.WithFields(ctx, map[string]any{
			"job_id":  job.ID.String(),
			"job":     job.Name,
			"attempt": job.Attempts,
		})
	}

	handler, ok := s.handlers[job.Name]
	if !ok {
		s.fail(jobCtx, job, fmt.Errorf("no handler registered for %q", job.Name))
		return
	}

	start := s.now()
	result, err := handler(jobCtx, job)
	s.metrics.ObserveDuration(job.Name, s.now().Sub(start))
	if err != nil {
		s.retryOrFail(jobCtx, job, err)
		return
	}

	if err := s.repo.MarkSucceeded(ctx, job.ID, result); err != nil && s.logg != nil {
		s.logg.Error(jobCtx, "recording job success failed", err)
		return
	}
	s.metrics.IncSuccess(job.Name)
	if s.logg != nil {
		s.logg.Info(jobCtx, "job succeeded")
	}
}

// retryOrFail reschedules retryable failures with a linear backoff until the
// attempt budget runs out.
func (s *service) retryOrFail(ctx context.Context, job *models.Job, jobErr error) {
	if pkgerrors.IsRetryable(jobErr) && job.Attempts < job.MaxAttempts {
		runAt := s.now().UTC().Add(s.cfg.RetryBackoff * time.Duration(job.Attempts))
		if err := s.repo.Reschedule(ctx, job.ID, runAt, jobErr.Error()); err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "rescheduling job failed", err)
			}
			return
		}
		s.metrics.IncRetry(job.Name)
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "retry_at", runAt.Format(time.RFC3339)), "job retry scheduled")
		}
		return
	}
	s.fail(ctx, job, jobErr)
}

func (s *service) fail(ctx context.Context, job *models.Job, jobErr error) {
	if err := s.repo.MarkFailed(ctx, job.ID, jobErr.Error()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording job failure failed", err)
		return
	}
	s.metrics.IncFailure(job.Name)
	if s.logg != nil {
		s.logg.Error(ctx, "job failed", jobErr)
	}
}
