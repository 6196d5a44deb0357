// Package engine runs the turn cascade of a game and the loop that
// serializes every mutation of it.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/game"
)

// ErrStopped is returned for requests sent to a loop that has stopped.
var ErrStopped = errors.New("game loop stopped")

// DefaultPollInterval is how often session deadlines are checked.
const DefaultPollInterval = time.Second

// Sink receives the changes of every turn and every command.
type Sink interface {
	Deliver(turn int, cs *changes.Set, observers []changes.Observer)
}

// LoopConfig sets the loop's cadence.
type LoopConfig struct {
	TurnInterval time.Duration // Zero advances turns only on request
	PollInterval time.Duration // Session deadline checks
}

// Env is what a command sees while it runs on the loop.
type Env struct {
	Engine  *Engine
	Game    *game.Game
	Rand    *rand.Rand
	Changes *changes.Set
}

// Command mutates the game on the loop. Domain failures are returned; the
// changes it queued are delivered either way.
type Command func(env *Env) error

type request struct {
	cmd   Command
	query bool
	resp  chan error
}

// Loop is the single goroutine that owns a game. Commands, queries, turn
// advancement and session deadlines all run on it in arrival order.
type Loop struct {
	engine *Engine
	rng    *rand.Rand
	log    *slog.Logger
	cfg    LoopConfig
	sinks  []Sink

	inbox    chan request
	stop     chan struct{}
	stopOnce sync.Once

	// OnTurn, when set, runs on the loop after each turn has been delivered.
	OnTurn func(g *game.Game, stats TurnStats)
}

// NewLoop creates a loop for e. rng is the game's only source of
// randomness.
func NewLoop(e *Engine, rng *rand.Rand, log *slog.Logger, cfg LoopConfig, sinks ...Sink) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Loop{
		engine: e,
		rng:    rng,
		log:    log,
		cfg:    cfg,
		sinks:  sinks,
		inbox:  make(chan request),
		stop:   make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	g := l.engine.Game
	poll := time.NewTicker(l.cfg.PollInterval)
	defer poll.Stop()
	var turns <-chan time.Time
	if l.cfg.TurnInterval > 0 {
		t := time.NewTicker(l.cfg.TurnInterval)
		defer t.Stop()
		turns = t.C
	}

	l.log.Info("game loop started", "game", g.ID, "turn", g.Turn, "date", DateString(g.Turn))
	defer l.log.Info("game loop stopped", "game", g.ID, "turn", g.Turn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.inbox:
			req.resp <- l.handle(req)
		case <-poll.C:
			l.expire()
		case <-turns:
			l.step()
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Do runs cmd on the loop and returns its error.
func (l *Loop) Do(ctx context.Context, cmd Command) error {
	return l.submit(ctx, request{cmd: cmd})
}

// Query runs fn on the loop. fn must only read the game.
func (l *Loop) Query(ctx context.Context, fn func(g *game.Game)) error {
	return l.submit(ctx, request{query: true, cmd: func(env *Env) error {
		fn(env.Game)
		return nil
	}})
}

// AdvanceTurn runs one full turn on the loop.
func (l *Loop) AdvanceTurn(ctx context.Context) (TurnStats, error) {
	var stats TurnStats
	err := l.Do(ctx, func(*Env) error {
		stats = l.step()
		return nil
	})
	return stats, err
}

func (l *Loop) submit(ctx context.Context, req request) error {
	req.resp = make(chan error, 1)
	select {
	case l.inbox <- req:
	case <-l.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) handle(req request) error {
	env := &Env{
		Engine:  l.engine,
		Game:    l.engine.Game,
		Rand:    l.rng,
		Changes: changes.New(),
	}
	err := req.cmd(env)
	if !req.query {
		l.deliver(env.Changes)
	}
	return err
}

// expire completes timed sessions whose deadline has passed.
func (l *Loop) expire() {
	cs := changes.New()
	if n := l.engine.Game.Sessions.ExpireDue(cs); n > 0 {
		l.log.Debug("sessions timed out", "count", n)
		l.deliver(cs)
	}
}

func (l *Loop) step() TurnStats {
	cs := changes.New()
	stats := l.engine.AdvanceTurn(l.rng, l.log, cs)
	l.deliver(cs)
	if l.OnTurn != nil {
		l.OnTurn(l.engine.Game, stats)
	}
	return stats
}

func (l *Loop) deliver(cs *changes.Set) {
	g := l.engine.Game
	observers := g.Observers()
	g.ForgetEliminated()
	if cs.Len() == 0 || len(l.sinks) == 0 {
		return
	}
	for _, s := range l.sinks {
		s.Deliver(g.Turn, cs, observers)
	}
}
