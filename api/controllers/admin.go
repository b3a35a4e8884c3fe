package controllers

import (
	"net/http"

	"github.com/procurehub/backend/api/responses"
	ordersvc "github.com/procurehub/backend/internal/orders"
	"github.com/procurehub/backend/pkg/logger"
)

// AdminStats returns order counts per state and total revenue.
func AdminStats(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
