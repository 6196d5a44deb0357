package session

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
)

// ErrDuplicateSession is returned (or raised) when a session is started
// while another with the same key is still active.
var ErrDuplicateSession = errors.New("session already active")

// CompleteFunc runs the kind-specific completion body of a session. It is
// called exactly once per session, outside the registry lock.
type CompleteFunc func(s *Session, res Result, cs *changes.Set)

// Registry holds the active sessions of one game.
type Registry struct {
	mu        sync.Mutex
	sessions  map[Key]*Session
	deadlines deadlineHeap
	complete  CompleteFunc
	now       func() time.Time
}

// NewRegistry creates an empty registry. complete may be nil and set later
// with SetCompleter.
func NewRegistry(complete CompleteFunc) *Registry {
	return &Registry{
		sessions: make(map[Key]*Session),
		complete: complete,
		now:      time.Now,
	}
}

// SetCompleter installs the completion body dispatcher.
func (r *Registry) SetCompleter(fn CompleteFunc) {
	r.mu.Lock()
	r.complete = fn
	r.mu.Unlock()
}

// SetClock replaces the time source used for deadlines.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Begin starts an untimed session between a and b. Starting a session whose
// key is already active is a programming error and panics; use TryBegin
// where two callers can race for the same key.
func (r *Registry) Begin(a, b Party, p Payload) *Session {
	s, err := r.TryBegin(a, b, p)
	if err != nil {
		panic(err)
	}
	return s
}

// BeginTimed starts a session that completes with ResultTimedOut once
// timeout has elapsed, unless completed earlier. Duplicate keys panic.
func (r *Registry) BeginTimed(a, b Party, p Payload, timeout time.Duration) *Session {
	s, err := r.TryBeginTimed(a, b, p, timeout)
	if err != nil {
		panic(err)
	}
	return s
}

// TryBegin is Begin returning ErrDuplicateSession instead of panicking.
func (r *Registry) TryBegin(a, b Party, p Payload) (*Session, error) {
	return r.register(a, b, p, 0)
}

// TryBeginTimed is BeginTimed returning ErrDuplicateSession instead of panicking.
func (r *Registry) TryBeginTimed(a, b Party, p Payload, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timed %s session needs a positive timeout, got %s", p.Kind(), timeout)
	}
	return r.register(a, b, p, timeout)
}

func (r *Registry) register(a, b Party, p Payload, timeout time.Duration) (*Session, error) {
	s := &Session{
		key:     MakeKey(p.Kind(), a, b),
		first:   a,
		second:  b,
		payload: p,
		reg:     r,
		index:   -1,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[s.key]; ok && !old.Completed() {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, s.key)
	}
	r.sessions[s.key] = s
	if timeout > 0 {
		s.deadline = r.now().Add(timeout)
		heap.Push(&r.deadlines, s)
	}
	return s, nil
}

// Lookup returns the active session of kind k between a and b, or nil.
// A completed session found under the key is evicted.
func (r *Registry) Lookup(k Kind, a, b Party) *Session {
	key := MakeKey(k, a, b)

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil
	}
	if s.Completed() {
		delete(r.sessions, key)
		return nil
	}
	return s
}

// Active returns the sessions not yet completed, ordered by key.
func (r *Registry) Active() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !s.Completed() {
			out = append(out, s)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Len returns the number of sessions held, including completed ones not yet evicted.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Complete ends the session with res and runs its completion body. Only
// the first call has any effect; later calls return false.
func (s *Session) Complete(res Result, cs *changes.Set) bool {
	if !s.completed.CompareAndSwap(false, true) {
		return false
	}
	s.result.Store(uint32(res))

	r := s.reg
	r.mu.Lock()
	if s.index >= 0 {
		heap.Remove(&r.deadlines, s.index)
	}
	fn := r.complete
	r.mu.Unlock()

	if fn != nil {
		fn(s, res, cs)
	}
	return true
}

// CompleteAll force-completes every active session and empties the
// registry. Completion bodies run after the lock is released, so they may
// start new sessions. Returns the number of sessions completed.
func (r *Registry) CompleteAll(cs *changes.Set) int {
	r.mu.Lock()
	pending := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		pending = append(pending, s)
	}
	r.sessions = make(map[Key]*Session)
	for _, s := range r.deadlines {
		s.index = -1
	}
	r.deadlines = nil
	r.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].key < pending[j].key })

	n := 0
	for _, s := range pending {
		if s.Complete(ResultForced, cs) {
			n++
		}
	}
	return n
}

// ExpireDue completes every timed session whose deadline has passed with
// ResultTimedOut. It is called from the game loop, which serializes it with
// the rest of the simulation. Returns the number of sessions that timed out.
func (r *Registry) ExpireDue(cs *changes.Set) int {
	r.mu.Lock()
	now := r.now()
	var due []*Session
	for len(r.deadlines) > 0 && !r.deadlines[0].deadline.After(now) {
		s := heap.Pop(&r.deadlines).(*Session)
		due = append(due, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range due {
		if s.Complete(ResultTimedOut, cs) {
			n++
		}
	}
	return n
}

// NextDeadline returns the earliest pending deadline.
func (r *Registry) NextDeadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deadlines) == 0 {
		return time.Time{}, false
	}
	return r.deadlines[0].deadline, true
}

// deadlineHeap orders timed sessions by deadline, then key.
type deadlineHeap []*Session

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	return h[i].key < h[j].key
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	s := x.(*Session)
	s.index = len(*h)
	*h = append(*h, s)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}
