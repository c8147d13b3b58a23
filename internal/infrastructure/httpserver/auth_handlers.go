package httpserver

import (
	"net/http"

	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/avatarctic/kvstore/internal/core/domain/auth"
	"github.com/labstack/echo/v4"
)

// Auth handlers
func (s *Server) exchangeToken(c echo.Context) error {
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return echo.NewHTTPError(http.StatusNotFound, "authentication is not configured")
	}

	var req auth.TokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	tokens, err := s.authSvc.Exchange(c.Request().Context(), req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	// Audit token issuance
	if s.auditSvc != nil {
		_ = s.auditSvc.LogAction(c.Request().Context(), &audit.CreateAuditLogRequest{
			Action:    audit.ActionTokenIssued,
			Details:   map[string]any{"token_hash": s.authSvc.GetTokenHash(req.Token)},
			IPAddress: c.RealIP(),
			UserAgent: c.Request().UserAgent(),
		})
	}

	return c.JSON(http.StatusOK, tokens)
}
