package middleware

import (
	"net/http"

	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
)

// RequireUserType gates a subtree to accounts of the given type.
func RequireUserType(userType enums.UserType, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserTypeFromContext(r.Context()) != userType {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account type not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
