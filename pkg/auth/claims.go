package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/procurehub/backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT minted by the external identity service.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Type   enums.UserType `json:"user_type"`
	jwt.RegisteredClaims
}
