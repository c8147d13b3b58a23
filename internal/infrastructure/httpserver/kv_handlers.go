package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/avatarctic/kvstore/internal/core/domain/kv"
	"github.com/labstack/echo/v4"
)

// setEntryRequest is the PUT body. Value is stored as the entry's JSON text;
// a missing ttl_ms stores the entry without an expiry.
type setEntryRequest struct {
	Value     json.RawMessage `json:"value"`
	TTLMillis *int64          `json:"ttl_ms,omitempty"`
}

func (s *Server) getEntry(c echo.Context) error {
	key := c.Param("key")

	opts := &kv.GetOptions{}
	if v := c.QueryParam("stale"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid stale parameter")
		}
		opts.AllowStale = &allow
	}

	entry, found, err := s.store.GetEntry(c.Request().Context(), key, opts)
	if err != nil {
		kvOperationsTotal.WithLabelValues("get", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read entry")
	}
	if !found {
		kvOperationsTotal.WithLabelValues("get", "not_found").Inc()
		return echo.NewHTTPError(http.StatusNotFound, "key not found")
	}

	kvOperationsTotal.WithLabelValues("get", "success").Inc()
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) putEntry(c echo.Context) error {
	key := c.Param("key")

	var req setEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Value) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}

	var opts *kv.SetOptions
	if req.TTLMillis != nil {
		ttl := time.Duration(*req.TTLMillis) * time.Millisecond
		opts = &kv.SetOptions{TTL: &ttl}
	}

	if err := s.store.Set(c.Request().Context(), key, req.Value, opts); err != nil {
		if errors.Is(err, kv.ErrInvalidTTL) {
			kvOperationsTotal.WithLabelValues("set", "invalid").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		kvOperationsTotal.WithLabelValues("set", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to write entry")
	}

	kvOperationsTotal.WithLabelValues("set", "success").Inc()

	if s.auditSvc != nil {
		k := key
		_ = s.auditSvc.LogAction(c.Request().Context(), &audit.CreateAuditLogRequest{
			Action:    audit.ActionSet,
			Key:       &k,
			Details:   map[string]any{"ttl_ms": req.TTLMillis},
			IPAddress: c.RealIP(),
			UserAgent: c.Request().UserAgent(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteEntry(c echo.Context) error {
	key := c.Param("key")

	if err := s.store.Delete(c.Request().Context(), key); err != nil {
		kvOperationsTotal.WithLabelValues("delete", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete entry")
	}

	kvOperationsTotal.WithLabelValues("delete", "success").Inc()

	if s.auditSvc != nil {
		k := key
		_ = s.auditSvc.LogAction(c.Request().Context(), &audit.CreateAuditLogRequest{
			Action:    audit.ActionDelete,
			Key:       &k,
			IPAddress: c.RealIP(),
			UserAgent: c.Request().UserAgent(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}
