package position

import (
	"context"
	"errors"

	"rentalScope/internal/metrics"
	"rentalScope/internal/multicall"
)

// ErrStalled is returned when every read has settled but the result still is not ready,
// which happens when a dependent read failed under AllOrNothing.
var ErrStalled = errors.New("reads settled without a ready result")

var errNoPool = errors.New("pool not deployed")

// Outcome is implemented by Result and SingleResult.
type Outcome interface {
	Done() bool
	Len() int
}

// Await re-evaluates resolve against fresh snapshots of store until the outcome is done.
// The store is expected to be drained by a running multicall.Fetcher.
func Await[R Outcome](ctx context.Context, store *multicall.Store, name string, m *metrics.Metrics, resolve func(multicall.Reader) R) (R, error) {
	for {
		changed := store.Changed()
		out := resolve(store.Snapshot())
		m.ResolverPass(name, out.Done(), out.Len())
		if out.Done() {
			return out, nil
		}

		if store.Idle() {
			select {
			case <-changed:
				continue
			default:
				return out, ErrStalled
			}
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-changed:
		}
	}
}
