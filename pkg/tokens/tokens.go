package tokens

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token.
type RefreshClaims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

func NewJTI() string { return uuid.NewString() }
