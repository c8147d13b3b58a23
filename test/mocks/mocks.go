package mocks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/avatarctic/kvstore/internal/core/domain/auth"
	"github.com/avatarctic/kvstore/internal/core/domain/kv"
	"github.com/avatarctic/kvstore/internal/core/ports"
)

// StoreMock is a lightweight mock for ports.Store
type StoreMock struct {
	InitializeFn    func(ctx context.Context) error
	IsInitializedFn func() bool
	SetFn           func(ctx context.Context, key string, value any, opts *kv.SetOptions) error
	GetFn           func(ctx context.Context, key string, opts *kv.GetOptions) (json.RawMessage, bool, error)
	GetEntryFn      func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error)
	DeleteFn        func(ctx context.Context, key string) error
	ClearExpiredFn  func(ctx context.Context) (int64, error)
	CloseFn         func() error
}

func (m *StoreMock) Initialize(ctx context.Context) error {
	if m.InitializeFn != nil {
		return m.InitializeFn(ctx)
	}
	return nil
}
func (m *StoreMock) IsInitialized() bool {
	if m.IsInitializedFn != nil {
		return m.IsInitializedFn()
	}
	return true
}
func (m *StoreMock) Set(ctx context.Context, key string, value any, opts *kv.SetOptions) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, opts)
	}
	return nil
}
func (m *StoreMock) Get(ctx context.Context, key string, opts *kv.GetOptions) (json.RawMessage, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key, opts)
	}
	if m.GetEntryFn != nil {
		entry, found, err := m.GetEntryFn(ctx, key, opts)
		if err != nil || !found {
			return nil, false, err
		}
		return entry.Value, true, nil
	}
	return nil, false, nil
}
func (m *StoreMock) GetEntry(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
	if m.GetEntryFn != nil {
		return m.GetEntryFn(ctx, key, opts)
	}
	return nil, false, nil
}
func (m *StoreMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}
func (m *StoreMock) ClearExpired(ctx context.Context) (int64, error) {
	if m.ClearExpiredFn != nil {
		return m.ClearExpiredFn(ctx)
	}
	return 0, nil
}
func (m *StoreMock) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// AuthServiceMock is a lightweight mock for ports.AuthService
type AuthServiceMock struct {
	EnabledFn        func() bool
	ExchangeFn       func(ctx context.Context, apiToken string) (*auth.Tokens, error)
	ValidateTokenFn  func(ctx context.Context, token string) (*auth.Claims, error)
	VerifyAPITokenFn func(token string) bool
	GetTokenHashFn   func(token string) string
}

func (m *AuthServiceMock) Enabled() bool {
	if m.EnabledFn != nil {
		return m.EnabledFn()
	}
	return false
}
func (m *AuthServiceMock) Exchange(ctx context.Context, apiToken string) (*auth.Tokens, error) {
	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, apiToken)
	}
	return nil, fmt.Errorf("invalid credentials")
}
func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return nil, fmt.Errorf("invalid token")
}
func (m *AuthServiceMock) VerifyAPIToken(token string) bool {
	if m.VerifyAPITokenFn != nil {
		return m.VerifyAPITokenFn(token)
	}
	return false
}
func (m *AuthServiceMock) GetTokenHash(token string) string {
	if m.GetTokenHashFn != nil {
		return m.GetTokenHashFn(token)
	}
	return "hash-" + token
}

// AuditServiceMock is a lightweight mock for ports.AuditService
type AuditServiceMock struct {
	LogActionFn    func(ctx context.Context, req *audit.CreateAuditLogRequest) error
	GetAuditLogsFn func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error)
}

func (m *AuditServiceMock) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	if m.LogActionFn != nil {
		return m.LogActionFn(ctx, req)
	}
	return nil
}
func (m *AuditServiceMock) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	if m.GetAuditLogsFn != nil {
		return m.GetAuditLogsFn(ctx, filter)
	}
	return nil, 0, nil
}

// AuditRepositoryMock is a lightweight mock for ports.AuditRepository
type AuditRepositoryMock struct {
	CreateFn func(ctx context.Context, log *audit.AuditLog) error
	ListFn   func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error)
	CountFn  func(ctx context.Context, filter *audit.AuditLogFilter) (int, error)
}

func (m *AuditRepositoryMock) Create(ctx context.Context, log *audit.AuditLog) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, log)
	}
	return nil
}
func (m *AuditRepositoryMock) List(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, nil
}
func (m *AuditRepositoryMock) Count(ctx context.Context, filter *audit.AuditLogFilter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, filter)
	}
	return 0, nil
}

// RateLimitRepositoryMock is a lightweight mock for ports.RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, client string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, client string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, client, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// RateLimiterServiceMock is a lightweight mock for ports.RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, client string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, client string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, client)
	}
	return true, 1, 1, time.Now(), nil
}

// CacheMock is a lightweight mock for ports.Cache
type CacheMock struct {
	GetFn    func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	return nil, false, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}

// MemoryCache is an in-memory ports.Cache that records the TTL each entry was
// stored with, so cache behavior can be asserted without Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memCacheEntry
}

type memCacheEntry struct {
	value     []byte
	ttl       time.Duration
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memCacheEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memCacheEntry{value: value, ttl: ttl}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// StoredTTL returns the TTL the entry under key was last stored with.
func (c *MemoryCache) StoredTTL(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.ttl, ok
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MemoryBackend is an in-memory ports.Backend that interprets the statement
// shapes the key-value store issues. Transactions are buffered: statements
// only become visible on Commit and are dropped on Rollback, so core tests
// exercise real commit/rollback behavior without a database.
type MemoryBackend struct {
	mu   sync.Mutex
	rows map[string]memRow

	execCalls  int
	beginCalls int
	closed     bool

	// Error injection. When set, the corresponding call fails with the error.
	ExecErr   error
	GetErr    error
	BeginErr  error
	TxExecErr error
	CommitErr error
}

type memRow struct {
	value     string
	expiresAt *int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rows: make(map[string]memRow)}
}

// Put seeds a raw row directly, bypassing the store. Tests use it to simulate
// corrupted or pre-existing data.
func (b *MemoryBackend) Put(key, value string, expiresAt *int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[key] = memRow{value: value, expiresAt: expiresAt}
}

// Len returns the number of stored rows.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// ExecCalls returns how many statements ran outside a transaction.
func (b *MemoryBackend) ExecCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.execCalls
}

// BeginCalls returns how many transactions were opened.
func (b *MemoryBackend) BeginCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beginCalls
}

// Closed reports whether Close was called.
func (b *MemoryBackend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *MemoryBackend) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.execCalls++
	if b.ExecErr != nil {
		return 0, b.ExecErr
	}
	return b.apply(query, args)
}

func (b *MemoryBackend) Get(ctx context.Context, dest any, query string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.GetErr != nil {
		return b.GetErr
	}
	if !strings.HasPrefix(query, "SELECT") {
		return fmt.Errorf("memory backend: unsupported query %q", query)
	}
	key, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("memory backend: key argument must be a string")
	}
	row, ok := b.rows[key]
	if !ok {
		return sql.ErrNoRows
	}
	entry, ok := dest.(*kv.Entry)
	if !ok {
		return fmt.Errorf("memory backend: unsupported destination %T", dest)
	}
	entry.Key = key
	entry.Value = json.RawMessage(row.value)
	entry.ExpiresAt = nil
	if row.expiresAt != nil {
		exp := *row.expiresAt
		entry.ExpiresAt = &exp
	}
	return nil
}

func (b *MemoryBackend) Begin(ctx context.Context) (ports.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beginCalls++
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	return &memTx{backend: b}, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// apply interprets one statement against the current rows.
// Callers must hold b.mu.
func (b *MemoryBackend) apply(query string, args []any) (int64, error) {
	switch {
	case strings.HasPrefix(query, "CREATE TABLE"), strings.HasPrefix(query, "CREATE INDEX"):
		return 0, nil
	case strings.HasPrefix(query, "INSERT INTO"):
		var expiresAt *int64
		if ms, ok := args[2].(*int64); ok && ms != nil {
			exp := *ms
			expiresAt = &exp
		}
		b.rows[args[0].(string)] = memRow{value: args[1].(string), expiresAt: expiresAt}
		return 1, nil
	case strings.HasPrefix(query, "DELETE") && strings.Contains(query, "expires_at"):
		cutoff := args[0].(int64)
		var removed int64
		for key, row := range b.rows {
			if row.expiresAt != nil && *row.expiresAt <= cutoff {
				delete(b.rows, key)
				removed++
			}
		}
		return removed, nil
	case strings.HasPrefix(query, "DELETE"):
		if _, ok := b.rows[args[0].(string)]; ok {
			delete(b.rows, args[0].(string))
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("memory backend: unsupported statement %q", query)
	}
}

// memTx buffers statements and applies them on Commit. Row counts are
// computed against the committed state at Exec time, which is exact for the
// store's one-statement transactions.
type memTx struct {
	backend *MemoryBackend
	buffer  []bufferedStmt
	done    bool
}

type bufferedStmt struct {
	query string
	args  []any
}

func (t *memTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if t.backend.TxExecErr != nil {
		return 0, t.backend.TxExecErr
	}
	count, err := t.countFor(query, args)
	if err != nil {
		return 0, err
	}
	t.buffer = append(t.buffer, bufferedStmt{query: query, args: args})
	return count, nil
}

func (t *memTx) countFor(query string, args []any) (int64, error) {
	switch {
	case strings.HasPrefix(query, "INSERT INTO"):
		return 1, nil
	case strings.HasPrefix(query, "DELETE") && strings.Contains(query, "expires_at"):
		cutoff := args[0].(int64)
		var n int64
		for _, row := range t.backend.rows {
			if row.expiresAt != nil && *row.expiresAt <= cutoff {
				n++
			}
		}
		return n, nil
	case strings.HasPrefix(query, "DELETE"):
		if _, ok := t.backend.rows[args[0].(string)]; ok {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("memory backend: unsupported statement %q", query)
	}
}

func (t *memTx) Commit() error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if t.backend.CommitErr != nil {
		t.buffer = nil
		return t.backend.CommitErr
	}
	for _, stmt := range t.buffer {
		if _, err := t.backend.apply(stmt.query, stmt.args); err != nil {
			return err
		}
	}
	t.buffer = nil
	return nil
}

func (t *memTx) Rollback() error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.buffer = nil
	t.done = true
	return nil
}

// Compile-time interface checks
var (
	_ ports.Store               = (*StoreMock)(nil)
	_ ports.AuthService         = (*AuthServiceMock)(nil)
	_ ports.AuditService        = (*AuditServiceMock)(nil)
	_ ports.AuditRepository     = (*AuditRepositoryMock)(nil)
	_ ports.RateLimitRepository = (*RateLimitRepositoryMock)(nil)
	_ ports.RateLimiterService  = (*RateLimiterServiceMock)(nil)
	_ ports.Cache               = (*CacheMock)(nil)
	_ ports.Cache               = (*MemoryCache)(nil)
	_ ports.Backend             = (*MemoryBackend)(nil)
)
