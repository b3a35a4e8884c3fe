package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/backend/api/middleware"
	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/api/validators"
	contactsvc "github.com/procurehub/backend/internal/contacts"
	"github.com/procurehub/backend/pkg/logger"
)

type contactRequest struct {
	City   string `json:"city" validate:"required"`
	Street string `json:"street" validate:"required"`
	House  string `json:"house"`
	Phone  string `json:"phone" validate:"required"`
}

func (r contactRequest) toInput() contactsvc.ContactInput {
	return contactsvc.ContactInput{
		City:   r.City,
		Street: r.Street,
		House:  r.House,
		Phone:  r.Phone,
	}
}

func ContactCreate(svc contactsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Create(r.Context(), userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contact)
	}
}

func ContactList(svc contactsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		contacts, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contacts)
	}
}

func ContactUpdate(svc contactsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		contactID, err := validators.ParsePathInt64(chi.URLParam(r, "contactID"), "contactID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Update(r.Context(), userID, contactID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactDelete(svc contactsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		contactID, err := validators.ParsePathInt64(chi.URLParam(r, "contactID"), "contactID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, contactID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"contact_id": contactID, "deleted": true})
	}
}
