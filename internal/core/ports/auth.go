package ports

import (
	"context"

	"github.com/avatarctic/kvstore/internal/core/domain/auth"
)

// AuthService defines the interface for API authentication operations.
// Authentication is optional: with no API token configured the service
// reports Enabled() == false and the HTTP layer skips enforcement.
type AuthService interface {
	// Enabled reports whether request authentication is enforced.
	Enabled() bool
	// Exchange verifies the static API token and issues a short-lived JWT.
	Exchange(ctx context.Context, apiToken string) (*auth.Tokens, error)
	// ValidateToken parses and verifies a JWT issued by Exchange.
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
	// VerifyAPIToken checks a raw bearer credential against the configured API token.
	VerifyAPIToken(token string) bool
	// GetTokenHash returns a stable fingerprint of token safe for logs.
	GetTokenHash(token string) string
}
