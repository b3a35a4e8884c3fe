package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/backend/api/middleware"
	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/api/validators"
	catalogsvc "github.com/procurehub/backend/internal/catalog"
	jobsvc "github.com/procurehub/backend/internal/jobs"
	ordersvc "github.com/procurehub/backend/internal/orders"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
)

type partnerStateRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// partnerImportRequest accepts either a fetchable feed URL or the feed
// document itself, pasted inline.
type partnerImportRequest struct {
	URL     string `json:"url" validate:"omitempty,url"`
	Content string `json:"content" validate:"omitempty"`
}

type orderStateRequest struct {
	State string `json:"state" validate:"required"`
}

// PartnerState reports whether the caller's shop currently accepts orders.
func PartnerState(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		state, err := svc.PartnerState(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func SetPartnerState(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		var payload partnerStateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SetPartnerState(r.Context(), ownerID, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// SubmitImport queues a price list import job and returns its id for polling.
func SubmitImport(svc jobsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		var payload partnerImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (payload.URL == "") == (payload.Content == "") {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "exactly one of url or content is required"))
			return
		}

		job, err := svc.Enqueue(r.Context(), enums.JobPriceListImport,
			map[string]string{"url": payload.URL, "content": payload.Content}, &ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, toJobResponse(job))
	}
}

// SubmitExport queues a price list export job for the caller's shop.
func SubmitExport(svc jobsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		job, err := svc.Enqueue(r.Context(), enums.JobPriceListExport, map[string]any{}, &ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, toJobResponse(job))
	}
}

// PartnerOrders lists orders containing the caller's listings, with foreign
// lines stripped.
func PartnerOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		orders, err := svc.ListForPartner(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

func UpdateOrderState(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		orderID, err := validators.ParsePathInt64(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateState(r.Context(), ownerID, orderID, payload.State)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func LowStock(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.UserIDFromContext(r.Context())

		threshold, err := validators.ParseQueryInt(r, "threshold", 10, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.LowStock(r.Context(), ownerID, threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
