package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "docuchat"
	DefaultTTL = 7 * 24 * time.Hour

	contextUserID = "user_id"
	contextEmail  = "user_email"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// issues and verifies HS256 tokens with one shared secret
type Signer struct {
	secret []byte
	ttl    time.Duration
}
