package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/api/validators"
	catalogsvc "github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/pagination"
)

// ListProducts handles catalog browsing with optional shop, category and text
// filters plus cursor pagination.
func ListProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := catalogsvc.BrowseParams{
			Query:  strings.TrimSpace(r.URL.Query().Get("q")),
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		if shopID, err := validators.ParseQueryInt64(r, "shop_id", 0); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if shopID > 0 {
			params.ShopID = &shopID
		}

		if categoryID, err := validators.ParseQueryInt64(r, "category_id", 0); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if categoryID > 0 {
			params.CategoryID = &categoryID
		}

		page, err := svc.ListListings(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := validators.ParsePathInt64(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListCategories(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func ListShops(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shops, err := svc.ListShops(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shops)
	}
}
