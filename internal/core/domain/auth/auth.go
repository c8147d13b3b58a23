package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest represents the token exchange request
type TokenRequest struct {
	Token string `json:"token"`
}

// Tokens represents an issued access token
type Tokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Claims represents the JWT claims issued to API clients. TokenHash is the
// fingerprint of the API token presented at exchange, kept for audit trails.
type Claims struct {
	TokenHash string `json:"token_hash,omitempty"`

	jwt.RegisteredClaims
}

// Subject is the subject claim carried by every issued token.
const Subject = "api-client"
