package multicall

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"rentalScope/internal/contract"
	"rentalScope/internal/metrics"
)

// Call is one packed read against a contract.
type Call struct {
	Handle contract.Handle
	Method string
	Data   []byte
}

// CallKey identifies a read by target and calldata, so different inputs never share a result.
type CallKey struct {
	Target common.Address
	Data   string
}

func (c Call) Key() CallKey {
	return CallKey{Target: c.Handle.Address, Data: string(c.Data)}
}

type entry struct {
	call   Call
	state  CallState
	queued bool
}

// Store holds the state of every read issued so far and the queue of reads awaiting dispatch.
type Store struct {
	mu       sync.Mutex
	entries  map[CallKey]*entry
	queue    []CallKey
	inFlight int
	changed  chan struct{}
	wake     chan struct{}
	metrics  *metrics.Metrics
}

func NewStore(m *metrics.Metrics) *Store {
	return &Store{
		entries: make(map[CallKey]*entry),
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		metrics: m,
	}
}

// Snapshot returns an immutable copy of the current read states.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[CallKey]CallState, len(s.entries))
	for key, e := range s.entries {
		states[key] = e.state
	}
	return &Snapshot{states: states, store: s}
}

// Changed returns a channel closed at the next settled read.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Idle reports that no read is queued or in flight.
func (s *Store) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) == 0 && s.inFlight == 0
}

// WaitIdle blocks until no read is queued or in flight.
func (s *Store) WaitIdle(ctx context.Context) error {
	for {
		changed := s.Changed()
		if s.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Len returns the number of tracked reads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Refresh re-queues every settled read. Last known states stay visible until new results land.
func (s *Store) Refresh() {
	s.mu.Lock()
	for key, e := range s.entries {
		if e.queued || e.state.Loading() {
			continue
		}
		e.queued = true
		s.queue = append(s.queue, key)
	}
	s.metrics.SetQueueDepth(len(s.queue))
	s.mu.Unlock()
	s.signal()
}

// Seed settles a read directly, bypassing dispatch.
func (s *Store) Seed(call Call, state CallState) {
	s.mu.Lock()
	s.entries[call.Key()] = &entry{call: call, state: state}
	s.notifyLocked()
	s.mu.Unlock()
}

func (s *Store) request(call Call) {
	key := call.Key()

	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return
	}
	s.entries[key] = &entry{call: call, state: Pending(), queued: true}
	s.queue = append(s.queue, key)
	s.metrics.CallRequested(call.Handle.Name, call.Method)
	s.metrics.SetQueueDepth(len(s.queue))
	s.mu.Unlock()

	s.signal()
}

// take moves every queued read to in-flight.
func (s *Store) take() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]Call, 0, len(s.queue))
	for _, key := range s.queue {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		e.queued = false
		calls = append(calls, e.call)
	}
	s.queue = s.queue[:0]
	s.inFlight += len(calls)
	s.metrics.SetQueueDepth(0)
	return calls
}

// settle records results for calls previously returned by take.
func (s *Store) settle(calls []Call, states []CallState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, call := range calls {
		e, ok := s.entries[call.Key()]
		if !ok {
			continue
		}
		e.state = states[i]
		s.metrics.CallSettled(call.Handle.Name, call.Method, states[i].Status.String())
	}
	s.inFlight -= len(calls)
	if s.inFlight < 0 {
		s.inFlight = 0
	}
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Store) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Snapshot is a frozen view of the store. It implements Reader; unknown reads are
// handed to the store for dispatch and reported as pending.
type Snapshot struct {
	states map[CallKey]CallState
	store  *Store
}

var _ Reader = (*Snapshot)(nil)

func (s *Snapshot) Call(h contract.Handle, method string, args ...interface{}) CallState {
	data, err := h.Pack(method, args...)
	if err != nil {
		return Failed(err)
	}
	call := Call{Handle: h, Method: method, Data: data}
	if state, ok := s.states[call.Key()]; ok {
		return state
	}
	if s.store != nil {
		s.store.request(call)
	}
	return Pending()
}

func (s *Snapshot) CallMany(h contract.Handle, method string, argSets [][]interface{}) []CallState {
	states := make([]CallState, 0, len(argSets))
	for _, args := range argSets {
		if args == nil {
			states = append(states, Pending())
			continue
		}
		states = append(states, s.Call(h, method, args...))
	}
	return states
}
