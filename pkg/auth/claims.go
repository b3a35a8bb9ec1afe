package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the verified content of a storefront session token.
type AccessTokenClaims struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenPayload is what callers provide when minting a token.
type AccessTokenPayload struct {
	CustomerID uuid.UUID
	Email      string
	JTI        string
}
