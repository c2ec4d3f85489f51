package mining

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/model"
)

const flushTimeout = 10 * time.Second

// DebouncedStore wraps a Store and coalesces Save calls per account: each
// Save merges its delta into the pending one and re-arms a quiescence timer,
// so a burst of ticks produces a single write once the account goes quiet.
//
// A failed flush keeps its delta pending and is retried when the next Save
// re-arms the window; there is no backoff loop. Recharge appends bypass the
// window entirely.
type DebouncedStore struct {
	inner  Store
	window time.Duration

	mu      sync.Mutex
	pending map[string]*model.StateDelta
	timers  map[string]*time.Timer
	closed  bool
}

func NewDebouncedStore(inner Store, window time.Duration) *DebouncedStore {
	return &DebouncedStore{
		inner:   inner,
		window:  window,
		pending: make(map[string]*model.StateDelta),
		timers:  make(map[string]*time.Timer),
	}
}

func (d *DebouncedStore) Load(ctx context.Context, accountID string) (*model.User, error) {
	return d.inner.Load(ctx, accountID)
}

func (d *DebouncedStore) Save(ctx context.Context, accountID string, delta model.StateDelta) error {
	if delta.Empty() {
		return nil
	}

	d.mu.Lock()
	if d.closed || d.window <= 0 {
		d.mu.Unlock()
		return d.inner.Save(ctx, accountID, delta)
	}

	if cur, ok := d.pending[accountID]; ok {
		cur.Merge(delta)
	} else {
		d.pending[accountID] = &delta
	}

	if timer, ok := d.timers[accountID]; ok {
		timer.Reset(d.window)
	} else {
		d.timers[accountID] = time.AfterFunc(d.window, func() {
			d.flushAccount(accountID)
		})
	}
	d.mu.Unlock()

	return nil
}

func (d *DebouncedStore) AppendRecharge(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error) {
	return d.inner.AppendRecharge(ctx, params)
}

func (d *DebouncedStore) ListRecharges(ctx context.Context, accountID string, limit, offset int) ([]model.RechargeRecord, error) {
	return d.inner.ListRecharges(ctx, accountID, limit, offset)
}

// Flush writes out every pending delta immediately. Used at teardown so
// deferred saves are not silently dropped.
func (d *DebouncedStore) Flush(ctx context.Context) error {
	d.mu.Lock()
	deltas := make(map[string]*model.StateDelta, len(d.pending))
	for id, delta := range d.pending {
		deltas[id] = delta
		delete(d.pending, id)
	}
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()

	var firstErr error
	for id, delta := range deltas {
		if err := d.inner.Save(ctx, id, *delta); err != nil {
			log.Error().Err(err).Str("accountId", id).Msg("flush failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close flushes pending writes and rejects further deferral; later Saves go
// straight through.
func (d *DebouncedStore) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}

func (d *DebouncedStore) flushAccount(accountID string) {
	d.mu.Lock()
	delta, ok := d.pending[accountID]
	delete(d.pending, accountID)
	delete(d.timers, accountID)
	d.mu.Unlock()

	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := d.inner.Save(ctx, accountID, *delta); err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("debounced save failed, will retry on next window")

		// Keep the delta so the next Save's window retries it, but let
		// anything written since the flush started win the merge.
		d.mu.Lock()
		if cur, ok := d.pending[accountID]; ok {
			delta.Merge(*cur)
			*cur = *delta
		} else {
			d.pending[accountID] = delta
		}
		d.mu.Unlock()
	}
}
