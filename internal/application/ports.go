package application

import "context"

// TransactionManager runs fn inside a database transaction. The context
// passed to fn carries the transaction; repositories resolve it from there.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecordLocker serializes work on one payment record across processes. The
// reconciler wraps each event application in a per-record lock so redelivered
// webhooks and concurrent refunds do not interleave.
type RecordLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// NoopLocker runs fn without any locking. Used in tests and when Redis is
// disabled.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
