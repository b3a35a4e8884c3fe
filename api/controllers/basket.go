package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/backend/api/middleware"
	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/api/validators"
	basketsvc "github.com/procurehub/backend/internal/basket"
	"github.com/procurehub/backend/pkg/logger"
)

// basketAddRequest adds to or subtracts from one basket line. An omitted
// delta means "one more of this".
type basketAddRequest struct {
	ListingID int64  `json:"listing_id" validate:"required,gt=0"`
	Delta     *int64 `json:"delta" validate:"omitempty"`
}

func (r basketAddRequest) delta() int64 {
	if r.Delta == nil {
		return 1
	}
	return *r.Delta
}

// BasketView returns the enriched basket with current prices and totals.
func BasketView(svc basketsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		view, err := svc.View(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BasketAdd applies a signed quantity delta to one basket line.
func BasketAdd(svc basketsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload basketAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := svc.Add(r.Context(), userID, payload.ListingID, payload.delta())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"listing_id": payload.ListingID,
			"quantity":   quantity,
		})
	}
}

func BasketRemove(svc basketsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		listingID, err := validators.ParsePathInt64(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"listing_id": listingID, "removed": true})
	}
}

func BasketClear(svc basketsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cleared": true})
	}
}
