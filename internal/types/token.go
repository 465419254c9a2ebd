package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims represents the claims in an auth token. RegisteredClaims.ID
// carries the token id used for revocation.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// TokenResponse is returned by login
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}
