package position

import "rentalScope/internal/multicall"

// Result is a loading-aware list of records. Items is only meaningful when Ready is true,
// in which case it is non-nil.
type Result[T any] struct {
	Loading bool
	Ready   bool
	Items   []T
}

// Done reports a final, fully resolved result.
func (r Result[T]) Done() bool { return r.Ready && !r.Loading }

// Len returns the number of resolved records.
func (r Result[T]) Len() int { return len(r.Items) }

func ready[T any](items []T, loading bool) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Loading: loading, Ready: true, Items: items}
}

func notReady[T any](loading bool) Result[T] {
	return Result[T]{Loading: loading}
}

// SingleResult is the one-record form of Result. Found is false for a ready result
// whose record could not be produced.
type SingleResult[T any] struct {
	Loading bool
	Ready   bool
	Found   bool
	Item    T
}

func (r SingleResult[T]) Done() bool { return r.Ready && !r.Loading }

func (r SingleResult[T]) Len() int {
	if r.Found {
		return 1
	}
	return 0
}

// unresolved is the single-record outcome of a failed dependency under p.
func unresolved[T any](p Policy) SingleResult[T] {
	if p.FailureMode == AllOrNothing {
		return SingleResult[T]{Loading: true}
	}
	return SingleResult[T]{Ready: true}
}

// FailureMode decides what a failed read does to the result that depends on it.
type FailureMode int

const (
	// AllOrNothing keeps the whole result un-ready and loading while any dependent read failed.
	AllOrNothing FailureMode = iota
	// BestEffort drops only the records whose reads failed.
	BestEffort
)

// Policy holds the aggregation choices that are not dictated by the contracts.
type Policy struct {
	FailureMode FailureMode
	// EnforceExpiry drops rentals whose expiry is before now, on top of the renter check.
	EnforceExpiry bool
}

// DefaultPolicy keeps results loading on any failed read and drops expired rentals.
func DefaultPolicy() Policy {
	return Policy{FailureMode: AllOrNothing, EnforceExpiry: true}
}

// batchState summarises a group of reads.
type batchState struct {
	pending bool
	failed  bool
}

func summarize(states []multicall.CallState) batchState {
	var s batchState
	for _, st := range states {
		switch {
		case st.Loading():
			s.pending = true
		case st.Failed():
			s.failed = true
		}
	}
	return s
}

// settled reports whether a group can be consumed downstream under the policy.
func (p Policy) settled(s batchState) bool {
	if s.pending {
		return false
	}
	return !s.failed || p.FailureMode == BestEffort
}

// loading folds failures into the loading flag under AllOrNothing.
func (p Policy) loading(s batchState) bool {
	if s.pending {
		return true
	}
	return s.failed && p.FailureMode == AllOrNothing
}
