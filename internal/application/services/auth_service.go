package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	config "github.com/avatarctic/kvstore/configs"
	"github.com/avatarctic/kvstore/internal/core/domain/auth"
	"github.com/avatarctic/kvstore/internal/core/ports"
	"github.com/avatarctic/kvstore/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthService issues and validates API access tokens. A single static API
// token (plaintext or bcrypt hash) is exchanged for short-lived JWTs; with no
// token configured the service is disabled and enforcement is skipped.
type AuthService struct {
	cfg    *config.AuthConfig
	logger *logrus.Logger
}

func NewAuthService(cfg *config.AuthConfig, logger *logrus.Logger) ports.AuthService {
	return &AuthService{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *AuthService) Enabled() bool {
	return s.cfg != nil && s.cfg.APIToken != ""
}

func (s *AuthService) VerifyAPIToken(token string) bool {
	if !s.Enabled() || token == "" {
		return false
	}
	if utils.IsBcryptHash(s.cfg.APIToken) {
		return utils.VerifyTokenHash(s.cfg.APIToken, token) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.APIToken), []byte(token)) == 1
}

func (s *AuthService) Exchange(ctx context.Context, apiToken string) (*auth.Tokens, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("authentication is not configured")
	}
	if !s.VerifyAPIToken(apiToken) {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"token_hash": s.GetTokenHash(apiToken)}).Warn("auth: rejected token exchange")
		}
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	claims := &auth.Claims{
		TokenHash: s.GetTokenHash(apiToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   auth.Subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &auth.Tokens{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) GetTokenHash(token string) string {
	return utils.TokenFingerprint(token)
}
