package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	config "github.com/avatarctic/kvstore/configs"
	"github.com/avatarctic/kvstore/internal/application/services"
	"github.com/avatarctic/kvstore/internal/core/domain/auth"
)

func newAuthService(cfg *config.AuthConfig) *services.AuthService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return services.NewAuthService(cfg, logger).(*services.AuthService)
}

func TestAuthService_DisabledWithoutToken(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{})

	require.False(t, svc.Enabled())
	require.False(t, svc.VerifyAPIToken("anything"))

	_, err := svc.Exchange(context.Background(), "anything")
	require.Error(t, err)
}

func TestAuthService_VerifyPlaintextToken(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	require.True(t, svc.Enabled())
	require.True(t, svc.VerifyAPIToken("secret-token"))
	require.False(t, svc.VerifyAPIToken("wrong"))
	require.False(t, svc.VerifyAPIToken(""))
}

func TestAuthService_VerifyBcryptToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-token"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := newAuthService(&config.AuthConfig{APIToken: string(hash), JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	require.True(t, svc.VerifyAPIToken("secret-token"))
	require.False(t, svc.VerifyAPIToken("wrong"))
}

func TestAuthService_ExchangeAndValidate(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	tokens, err := svc.Exchange(context.Background(), "secret-token")
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.EqualValues(t, 3600, tokens.ExpiresIn)

	claims, err := svc.ValidateToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, auth.Subject, claims.Subject)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, svc.GetTokenHash("secret-token"), claims.TokenHash)
}

func TestAuthService_ExchangeRejectsBadToken(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	_, err := svc.Exchange(context.Background(), "wrong")
	require.Error(t, err)
}

func TestAuthService_ValidateRejectsForeignSignature(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   auth.Subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := forged.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), signed)
	require.Error(t, err)
}

func TestAuthService_ValidateRejectsExpiredToken(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: -time.Minute})

	tokens, err := svc.Exchange(context.Background(), "secret-token")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), tokens.AccessToken)
	require.Error(t, err)
}

func TestAuthService_ValidateRejectsUnsignedToken(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   auth.Subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err, "tokens not signed with HMAC must be rejected")
}

func TestAuthService_TokenHashIsStableAndOpaque(t *testing.T) {
	svc := newAuthService(&config.AuthConfig{APIToken: "secret-token", JWTSecret: "jwt-secret", TokenTTL: time.Hour})

	h1 := svc.GetTokenHash("secret-token")
	h2 := svc.GetTokenHash("secret-token")
	require.Equal(t, h1, h2)
	require.NotContains(t, h1, "secret-token")
}
