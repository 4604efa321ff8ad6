package refunds

import (
	"context"
	"sync/atomic"
)

type suppressKey struct{}

type suppressFlag struct {
	active atomic.Bool
}

// SuppressReplication marks the returned context as originating from the
// replicator itself, so the refund-created dispatcher will not re-invoke
// handlers for refunds created under it. The release func re-enables
// dispatching and must run on every exit path (call it in a defer).
func SuppressReplication(ctx context.Context) (context.Context, func()) {
	flag := &suppressFlag{}
	flag.active.Store(true)
	return context.WithValue(ctx, suppressKey{}, flag), func() {
		flag.active.Store(false)
	}
}

// ReplicationSuppressed reports whether the context carries an active
// suppression flag.
func ReplicationSuppressed(ctx context.Context) bool {
	flag, ok := ctx.Value(suppressKey{}).(*suppressFlag)
	return ok && flag.active.Load()
}
