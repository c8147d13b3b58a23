package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/avatarctic/kvstore/internal/core/domain/kv"
	"github.com/avatarctic/kvstore/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// identifierPattern restricts table names to plain SQL identifiers. The table
// name is interpolated into statements and cannot be bound as a parameter.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KVConfig groups configuration parameters for the key-value store.
type KVConfig struct {
	// TableName is the table entries live in. Defaults to "kv_store".
	TableName string
	// AllowStale makes reads return expired entries unless the caller
	// overrides it per call.
	AllowStale bool
	// Debug logs every statement and its parameters before execution.
	Debug bool
}

// kvStatements holds the SQL built once per table name.
type kvStatements struct {
	createTable   string
	createIndex   string
	upsert        string
	selectOne     string
	deleteOne     string
	deleteExpired string
}

// KVService implements ports.Store on a SQL backend. Expiry is kept as
// milliseconds since the Unix epoch and evaluated in Go on every read, so
// stale entries survive in the table until ClearExpired removes them.
type KVService struct {
	backend    ports.Backend
	logger     *logrus.Logger
	table      string
	allowStale bool
	debug      bool
	stmts      kvStatements

	mu          sync.Mutex
	initialized bool
}

// NewKVService creates a key-value store on the given backend. The backend is
// not touched until Initialize.
func NewKVService(backend ports.Backend, cfg *KVConfig, logger *logrus.Logger) (*KVService, error) {
	table := "kv_store"
	allowStale := false
	debug := false
	if cfg != nil {
		if cfg.TableName != "" {
			table = cfg.TableName
		}
		allowStale = cfg.AllowStale
		debug = cfg.Debug
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	s := &KVService{
		backend:    backend,
		logger:     logger,
		table:      table,
		allowStale: allowStale,
		debug:      debug,
	}
	s.stmts = kvStatements{
		createTable: fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL, expires_at BIGINT)`, table),
		createIndex: fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_expires_at_idx ON %s (expires_at) WHERE expires_at IS NOT NULL`, table, table),
		upsert: fmt.Sprintf(
			`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, table),
		selectOne:     fmt.Sprintf(`SELECT key, value, expires_at FROM %s WHERE key = $1`, table),
		deleteOne:     fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, table),
		deleteExpired: fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, table),
	}
	return s, nil
}

// Initialize creates the table and expiry index. Only the first call can
// succeed; the schema statements are idempotent so a pre-existing table is
// fine.
func (s *KVService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return kv.ErrAlreadyInitialized
	}

	for _, query := range []string{s.stmts.createTable, s.stmts.createIndex} {
		s.logStatement(query)
		if _, err := s.backend.Exec(ctx, query); err != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"table": s.table}).WithError(err).Error("db: failed to initialize store schema")
			}
			return fmt.Errorf("%w: %v", kv.ErrInitializationFailed, err)
		}
	}

	s.initialized = true
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"table": s.table}).Info("db: store schema ready")
	}
	return nil
}

// IsInitialized reports whether Initialize has completed successfully.
func (s *KVService) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Set upserts value under key inside a write transaction. A zero TTL stores
// an entry that is already expired; a negative TTL fails before any write.
func (s *KVService) Set(ctx context.Context, key string, value any, opts *kv.SetOptions) error {
	var expiresAt *int64
	if opts != nil && opts.TTL != nil {
		ttl := *opts.TTL
		if ttl < 0 {
			return fmt.Errorf("%w: %s", kv.ErrInvalidTTL, ttl)
		}
		ms := time.Now().Add(ttl).UnixMilli()
		expiresAt = &ms
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize value for key %q: %w", key, err)
	}

	tx, err := s.backend.Begin(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("db: failed to begin transaction for set")
		}
		return fmt.Errorf("%w: %v", kv.ErrWriteFailed, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	s.logStatement(s.stmts.upsert, key, string(payload), expiresAt)
	if _, err := tx.Exec(ctx, s.stmts.upsert, key, string(payload), expiresAt); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("db: failed to upsert entry")
		}
		return fmt.Errorf("%w: %v", kv.ErrWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("db: failed to commit set")
		}
		return fmt.Errorf("%w: %v", kv.ErrWriteFailed, err)
	}
	return nil
}

// GetEntry returns the full entry for key. Absent keys and entries that are
// stale without stale reads allowed both come back as found=false. Stale
// entries are left in place; reads never delete.
func (s *KVService) GetEntry(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
	var entry kv.Entry
	s.logStatement(s.stmts.selectOne, key)
	err := s.backend.Get(ctx, &entry, s.stmts.selectOne, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("db: failed to read entry")
		}
		return nil, false, fmt.Errorf("%w: %v", kv.ErrReadFailed, err)
	}

	if !json.Valid(entry.Value) {
		return nil, false, fmt.Errorf("stored value for key %q is not valid JSON", key)
	}
	if entry.Stale(time.Now()) && !s.staleAllowed(opts) {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Get returns the stored JSON for key.
func (s *KVService) Get(ctx context.Context, key string, opts *kv.GetOptions) (json.RawMessage, bool, error) {
	entry, found, err := s.GetEntry(ctx, key, opts)
	if err != nil || !found {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Delete removes key inside a write transaction. Absent keys are a no-op.
func (s *KVService) Delete(ctx context.Context, key string) error {
	tx, err := s.backend.Begin(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("db: failed to begin transaction for delete")
		}
		return fmt.Errorf("%w: %v", kv.ErrDeleteFailed, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	s.logStatement(s.stmts.deleteOne, key)
	if _, err := tx.Exec(ctx, s.stmts.deleteOne, key); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("db: failed to delete entry")
		}
		return fmt.Errorf("%w: %v", kv.ErrDeleteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("db: failed to commit delete")
		}
		return fmt.Errorf("%w: %v", kv.ErrDeleteFailed, err)
	}
	return nil
}

// ClearExpired removes every entry expired as of a single timestamp taken at
// the start of the call, in one transaction, and returns the removed count.
func (s *KVService) ClearExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UnixMilli()

	tx, err := s.backend.Begin(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("db: failed to begin transaction for cleanup")
		}
		return 0, fmt.Errorf("%w: %v", kv.ErrCleanupFailed, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	s.logStatement(s.stmts.deleteExpired, cutoff)
	removed, err := tx.Exec(ctx, s.stmts.deleteExpired, cutoff)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("db: failed to delete expired entries")
		}
		return 0, fmt.Errorf("%w: %v", kv.ErrCleanupFailed, err)
	}
	if err := tx.Commit(); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("db: failed to commit cleanup")
		}
		return 0, fmt.Errorf("%w: %v", kv.ErrCleanupFailed, err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"rows": removed}).Info("db: cleaned up expired entries")
	}
	return removed, nil
}

// Close releases the backend. Best effort; the store is unusable afterwards.
func (s *KVService) Close() error {
	return s.backend.Close()
}

func (s *KVService) staleAllowed(opts *kv.GetOptions) bool {
	if opts != nil && opts.AllowStale != nil {
		return *opts.AllowStale
	}
	return s.allowStale
}

func (s *KVService) logStatement(query string, args ...any) {
	if !s.debug || s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing statement")
}

var _ ports.Store = (*KVService)(nil)
