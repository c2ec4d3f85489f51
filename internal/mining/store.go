package mining

import (
	"context"

	"github.com/rajvir-app/mining-server/internal/model"
)

// Store is the persistence contract the mining core mirrors itself through.
// The in-memory session stays authoritative for the running process; a Store
// is a restore/backup mechanism, never a lock.
//
// Implementations: Postgres (internal/store.Remote) and SQLite
// (internal/store.Local). Wrap either in a DebouncedStore to coalesce the
// write bursts an active ticker produces.
type Store interface {
	// Load returns the stored record for an account, or nil if absent.
	Load(ctx context.Context, accountID string) (*model.User, error)

	// Save applies a partial update. Failures are non-fatal to callers.
	Save(ctx context.Context, accountID string, delta model.StateDelta) error

	// AppendRecharge appends one history record. Recharges are discrete
	// sub-records, never part of a Save delta, so concurrent writers
	// cannot lose each other's entries.
	AppendRecharge(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error)

	// ListRecharges returns history newest first.
	ListRecharges(ctx context.Context, accountID string, limit, offset int) ([]model.RechargeRecord, error)
}

// Flusher is implemented by stores that defer writes.
type Flusher interface {
	Flush(ctx context.Context) error
}
