package session

import (
	"sync/atomic"
	"time"
)

// Result is how a session ended.
type Result uint8

const (
	ResultAccepted Result = iota + 1
	ResultRejected        // Declined or withdrawn by either party
	ResultTimedOut        // Deadline passed without an answer
	ResultForced          // Closed at the end of the turn
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "accepted"
	case ResultRejected:
		return "rejected"
	case ResultTimedOut:
		return "timed out"
	case ResultForced:
		return "forced"
	default:
		return "pending"
	}
}

// Accepted reports whether the session ended in agreement. Every other
// result takes the negative default.
func (r Result) Accepted() bool {
	return r == ResultAccepted
}

// Session is one ongoing interaction. Sessions are created through a
// Registry and completed exactly once.
type Session struct {
	key      Key
	first    Party
	second   Party
	payload  Payload
	deadline time.Time

	completed atomic.Bool
	result    atomic.Uint32

	reg   *Registry
	index int // Position in the registry's deadline heap, -1 when not scheduled
}

// Key returns the session's registry key.
func (s *Session) Key() Key { return s.key }

// Kind returns the interaction kind.
func (s *Session) Kind() Kind { return s.payload.Kind() }

// Parties returns both participants in the order the session was started.
func (s *Session) Parties() (Party, Party) { return s.first, s.second }

// Payload returns the kind-specific state.
func (s *Session) Payload() Payload { return s.payload }

// Deadline returns when a timed session expires. ok is false for untimed sessions.
func (s *Session) Deadline() (deadline time.Time, ok bool) {
	return s.deadline, !s.deadline.IsZero()
}

// Completed reports whether the session has been completed.
func (s *Session) Completed() bool {
	return s.completed.Load()
}

// Result returns the outcome, or zero while the session is still active.
func (s *Session) Result() Result {
	return Result(s.result.Load())
}
