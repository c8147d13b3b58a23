package kv

import "errors"

// Error kinds returned by store operations. Backend failures are wrapped with
// %w so errors.Is matches the kind while the backend message is preserved.
var (
	ErrAlreadyInitialized   = errors.New("store is already initialized")
	ErrInitializationFailed = errors.New("store initialization failed")
	ErrInvalidTTL           = errors.New("ttl must not be negative")
	ErrWriteFailed          = errors.New("write operation failed")
	ErrReadFailed           = errors.New("read operation failed")
	ErrDeleteFailed         = errors.New("delete operation failed")
	ErrCleanupFailed        = errors.New("cleanup operation failed")
)
