package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	calls map[Key][]Result
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[Key][]Result)}
}

func (r *recorder) complete(s *Session, res Result, _ *changes.Set) {
	r.mu.Lock()
	r.calls[s.Key()] = append(r.calls[s.Key()], res)
	r.mu.Unlock()
}

func (r *recorder) results(k Key) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.calls[k]...)
}

func newTestRegistry() (*Registry, *recorder, *fakeClock) {
	rec := newRecorder()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(rec.complete)
	reg.SetClock(clock.Now)
	return reg, rec, clock
}

func TestKeyIsSymmetric(t *testing.T) {
	a, b := UnitParty(4), SettlementParty(9)
	for k := KindDiplomacy; k <= KindMercenaries; k++ {
		if MakeKey(k, a, b) != MakeKey(k, b, a) {
			t.Fatalf("%s key depends on argument order", k)
		}
	}
	if MakeKey(KindTrade, a, b) == MakeKey(KindDiplomacy, a, b) {
		t.Fatalf("kinds must not share keys")
	}
}

func TestLookupFindsEitherOrder(t *testing.T) {
	reg, _, _ := newTestRegistry()
	a, b := UnitParty(1), SettlementParty(2)
	s := reg.Begin(a, b, &Trade{Unit: 1, Settlement: 2})
	if got := reg.Lookup(KindTrade, b, a); got != s {
		t.Fatalf("Lookup(b, a) = %v, want the session", got)
	}
	if got := reg.Lookup(KindDiplomacy, a, b); got != nil {
		t.Fatalf("lookup of another kind found %v", got)
	}
}

func TestDuplicateBeginPanics(t *testing.T) {
	reg, _, _ := newTestRegistry()
	a, b := PlayerParty(1), PlayerParty(2)
	reg.Begin(a, b, &Diplomacy{Proposer: 1, Recipient: 2})

	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, ErrDuplicateSession) {
			t.Fatalf("recover() = %v, want ErrDuplicateSession", err)
		}
	}()
	reg.Begin(b, a, &Diplomacy{Proposer: 2, Recipient: 1})
}

func TestConcurrentBeginOnlyFirstSucceeds(t *testing.T) {
	reg, _, _ := newTestRegistry()
	a, b := UnitParty(7), SettlementParty(3)

	const racers = 32
	var wins atomic.Int32
	var dupes atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			first, second := a, b
			if i%2 == 1 {
				first, second = b, a
			}
			_, err := reg.TryBegin(first, second, &Trade{Unit: 7, Settlement: 3})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrDuplicateSession):
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 || dupes.Load() != racers-1 {
		t.Fatalf("wins = %d, duplicates = %d", wins.Load(), dupes.Load())
	}
}

func TestCompleteRunsBodyOnce(t *testing.T) {
	reg, rec, _ := newTestRegistry()
	s := reg.Begin(UnitParty(1), SettlementParty(1), &Trade{})

	if !s.Complete(ResultAccepted, changes.New()) {
		t.Fatalf("first Complete should report success")
	}
	if s.Complete(ResultRejected, changes.New()) {
		t.Fatalf("second Complete should report already complete")
	}
	got := rec.results(s.Key())
	if len(got) != 1 || got[0] != ResultAccepted {
		t.Fatalf("completion body calls = %v", got)
	}
	if s.Result() != ResultAccepted {
		t.Fatalf("Result() = %s", s.Result())
	}
}

func TestConcurrentCompleteRunsBodyOnce(t *testing.T) {
	reg, rec, _ := newTestRegistry()
	s := reg.Begin(UnitParty(1), SettlementParty(1), &Trade{})

	var wg sync.WaitGroup
	var successes atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Complete(ResultRejected, changes.New()) {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || len(rec.results(s.Key())) != 1 {
		t.Fatalf("successes = %d, body calls = %d", successes.Load(), len(rec.results(s.Key())))
	}
}

func TestLookupEvictsCompleted(t *testing.T) {
	reg, _, _ := newTestRegistry()
	a, b := PlayerParty(1), PlayerParty(2)
	s := reg.Begin(a, b, &Diplomacy{})
	s.Complete(ResultRejected, changes.New())

	if reg.Len() != 1 {
		t.Fatalf("completed session should linger until looked up, Len = %d", reg.Len())
	}
	if got := reg.Lookup(KindDiplomacy, a, b); got != nil {
		t.Fatalf("Lookup returned completed session")
	}
	if reg.Len() != 0 {
		t.Fatalf("Lookup should evict, Len = %d", reg.Len())
	}
	// The key is free again.
	if _, err := reg.TryBegin(a, b, &Diplomacy{}); err != nil {
		t.Fatalf("re-begin after completion: %v", err)
	}
}

func TestTimedSessionExpires(t *testing.T) {
	reg, rec, clock := newTestRegistry()
	s := reg.BeginTimed(UnitParty(5), SettlementParty(6), &NativeDemand{}, time.Minute)

	if n := reg.ExpireDue(changes.New()); n != 0 {
		t.Fatalf("expired %d sessions before the deadline", n)
	}
	clock.Advance(time.Minute)
	if n := reg.ExpireDue(changes.New()); n != 1 {
		t.Fatalf("expired %d sessions at the deadline, want 1", n)
	}
	if got := rec.results(s.Key()); len(got) != 1 || got[0] != ResultTimedOut {
		t.Fatalf("completion body calls = %v", got)
	}
}

func TestExplicitCompletionCancelsTimeout(t *testing.T) {
	reg, rec, clock := newTestRegistry()
	s := reg.BeginTimed(UnitParty(5), SettlementParty(6), &NativeDemand{}, time.Minute)

	clock.Advance(30 * time.Second)
	s.Complete(ResultAccepted, changes.New())
	if _, ok := reg.NextDeadline(); ok {
		t.Fatalf("deadline should be cancelled by explicit completion")
	}

	clock.Advance(time.Hour)
	if n := reg.ExpireDue(changes.New()); n != 0 {
		t.Fatalf("timeout body ran after explicit completion")
	}
	if got := rec.results(s.Key()); len(got) != 1 || got[0] != ResultAccepted {
		t.Fatalf("completion body calls = %v", got)
	}
}

func TestExpireDueOrdersByDeadline(t *testing.T) {
	var order []Key
	reg := NewRegistry(func(s *Session, _ Result, _ *changes.Set) { order = append(order, s.Key()) })
	clock := &fakeClock{now: time.Unix(0, 0)}
	reg.SetClock(clock.Now)

	late := reg.BeginTimed(PlayerParty(1), PlayerParty(2), &Diplomacy{}, 3*time.Second)
	early := reg.BeginTimed(PlayerParty(1), PlayerParty(3), &Diplomacy{}, time.Second)
	reg.BeginTimed(PlayerParty(1), PlayerParty(4), &Diplomacy{}, time.Hour)

	if next, ok := reg.NextDeadline(); !ok || !next.Equal(time.Unix(1, 0)) {
		t.Fatalf("NextDeadline = %v, %v", next, ok)
	}
	clock.Advance(5 * time.Second)
	if n := reg.ExpireDue(changes.New()); n != 2 {
		t.Fatalf("expired %d, want 2", n)
	}
	if len(order) != 2 || order[0] != early.Key() || order[1] != late.Key() {
		t.Fatalf("expiry order = %v", order)
	}
}

func TestCompleteAllEmptiesRegistry(t *testing.T) {
	reg, rec, clock := newTestRegistry()
	var started []*Session
	started = append(started, reg.Begin(UnitParty(1), SettlementParty(1), &Trade{}))
	started = append(started, reg.BeginTimed(UnitParty(2), SettlementParty(2), &NativeDemand{}, time.Minute))
	started = append(started, reg.Begin(PlayerParty(1), PlayerParty(2), &Diplomacy{}))
	done := reg.Begin(PlayerParty(3), PlayerParty(4), &Mercenaries{})
	done.Complete(ResultAccepted, changes.New())

	if n := reg.CompleteAll(changes.New()); n != len(started) {
		t.Fatalf("CompleteAll completed %d, want %d", n, len(started))
	}
	if reg.Len() != 0 || len(reg.Active()) != 0 {
		t.Fatalf("registry not empty: Len = %d", reg.Len())
	}
	for _, s := range started {
		got := rec.results(s.Key())
		if len(got) != 1 || got[0] != ResultForced {
			t.Fatalf("%s completion calls = %v", s.Key(), got)
		}
	}
	if got := rec.results(done.Key()); len(got) != 1 {
		t.Fatalf("already completed session ran again: %v", got)
	}

	clock.Advance(time.Hour)
	if n := reg.ExpireDue(changes.New()); n != 0 {
		t.Fatalf("force-completed timed session expired again")
	}
}

func TestCompletionBodyMayBeginSession(t *testing.T) {
	var reg *Registry
	reg = NewRegistry(func(s *Session, res Result, cs *changes.Set) {
		if d, ok := s.Payload().(*Diplomacy); ok && res == ResultForced {
			reg.Begin(PlayerParty(d.Proposer), PlayerParty(d.Recipient), &Diplomacy{Proposer: d.Proposer, Recipient: d.Recipient, Rounds: d.Rounds + 1})
		}
	})
	reg.Begin(PlayerParty(1), PlayerParty(2), &Diplomacy{Proposer: 1, Recipient: 2})

	if n := reg.CompleteAll(changes.New()); n != 1 {
		t.Fatalf("CompleteAll = %d", n)
	}
	next := reg.Lookup(KindDiplomacy, PlayerParty(2), PlayerParty(1))
	if next == nil || next.Payload().(*Diplomacy).Rounds != 1 {
		t.Fatalf("follow-up session not registered: %v", next)
	}
}

func TestBeginTimedRejectsNonPositiveTimeout(t *testing.T) {
	reg, _, _ := newTestRegistry()
	if _, err := reg.TryBeginTimed(PlayerParty(1), PlayerParty(2), &Diplomacy{}, 0); err == nil {
		t.Fatalf("zero timeout accepted")
	}
}
