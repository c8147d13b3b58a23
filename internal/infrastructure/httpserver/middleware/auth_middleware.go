package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/kvstore/internal/core/ports"
	"github.com/avatarctic/kvstore/internal/infrastructure/httpserver/helpers"
)

type AuthMiddleware struct {
	authService ports.AuthService
	logger      *logrus.Logger
}

func NewAuthMiddleware(authService ports.AuthService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, logger: logger}
}

// RequireAuth creates middleware that validates the bearer credential and sets
// the client context. The credential may be a JWT from the token endpoint or
// the raw API token. With authentication disabled it is a pass-through.
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.authService == nil || !m.authService.Enabled() {
				return next(c)
			}

			tokenString, err := helpers.GetBearerTokenFromContext(c)
			if err != nil {
				return err
			}

			claims, err := m.authService.ValidateToken(c.Request().Context(), tokenString)
			if err == nil {
				helpers.SetClaims(c, claims)
				helpers.SetAuthMethod(c, helpers.AuthMethodJWT)
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"subject": claims.Subject, "jti": claims.ID}).Debug("jwt validated and client context set")
				}
				return next(c)
			}

			if m.authService.VerifyAPIToken(tokenString) {
				helpers.SetAuthMethod(c, helpers.AuthMethodAPIToken)
				return next(c)
			}

			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("bearer token validation failed")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
	}
}
