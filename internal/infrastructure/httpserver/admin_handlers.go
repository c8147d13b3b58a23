package httpserver

import (
	"net/http"

	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/labstack/echo/v4"
)

func (s *Server) clearExpired(c echo.Context) error {
	removed, err := s.store.ClearExpired(c.Request().Context())
	if err != nil {
		kvOperationsTotal.WithLabelValues("cleanup", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear expired entries")
	}

	kvOperationsTotal.WithLabelValues("cleanup", "success").Inc()
	kvExpiredClearedTotal.Add(float64(removed))

	if s.auditSvc != nil {
		_ = s.auditSvc.LogAction(c.Request().Context(), &audit.CreateAuditLogRequest{
			Action:    audit.ActionCleanup,
			Details:   map[string]any{"removed": removed},
			IPAddress: c.RealIP(),
			UserAgent: c.Request().UserAgent(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"removed": removed})
}
