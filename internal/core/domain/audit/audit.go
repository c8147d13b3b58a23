package audit

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Action    string    `json:"action" db:"action"`
	Key       *string   `json:"key,omitempty" db:"key"`
	Details   any       `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type AuditAction string

const (
	ActionSet         AuditAction = "set"
	ActionDelete      AuditAction = "delete"
	ActionCleanup     AuditAction = "cleanup"
	ActionTokenIssued AuditAction = "token_issued"
)

// CreateAuditLogRequest represents the request to create an audit log entry
type CreateAuditLogRequest struct {
	Action    AuditAction `json:"action"`
	Key       *string     `json:"key,omitempty"`
	Details   any         `json:"details,omitempty"`
	IPAddress string      `json:"ip_address"`
	UserAgent string      `json:"user_agent"`
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	Action    *AuditAction `json:"action,omitempty" query:"action"`
	Key       *string      `json:"key,omitempty" query:"key"`
	StartTime *time.Time   `json:"start_time,omitempty" query:"start_time"`
	EndTime   *time.Time   `json:"end_time,omitempty" query:"end_time"`
	Limit     int          `json:"limit" query:"limit"`
	Offset    int          `json:"offset" query:"offset"`
}
