package ports

import "context"

// Backend is the minimal database capability the key-value store runs on.
// It abstracts the SQL driver so the store logic can be exercised against an
// in-memory implementation in tests.
type Backend interface {
	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Get runs a single-row query and scans the row into dest.
	// Absence is signaled with sql.ErrNoRows.
	Get(ctx context.Context, dest any, query string, args ...any) error
	// Begin opens a write transaction.
	Begin(ctx context.Context) (Tx, error)
	// Close releases the underlying connections.
	Close() error
}

// Tx is a write transaction on a Backend. Rollback after a successful Commit
// is a no-op, so callers can defer it unconditionally.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit() error
	Rollback() error
}
