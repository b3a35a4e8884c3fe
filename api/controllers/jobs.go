package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/procurehub/backend/api/middleware"
	"github.com/procurehub/backend/api/responses"
	jobsvc "github.com/procurehub/backend/internal/jobs"
	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
)

type jobResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Result    *string   `json:"result,omitempty"`
	LastError *string   `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toJobResponse(job *models.Job) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Name:      job.Name,
		Status:    job.Status.String(),
		Attempts:  job.Attempts,
		Result:    job.Result,
		LastError: job.LastError,
		CreatedAt: job.CreatedAt,
	}
}

// GetJob returns the status of a job the caller submitted.
func GetJob(svc jobsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		job, err := svc.Get(r.Context(), userID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toJobResponse(job))
	}
}
