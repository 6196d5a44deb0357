package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/world"
)

const (
	defaultQueueSize = 64
	writeTimeout     = 5 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = pongTimeout * 9 / 10
	maxCommandSize   = 64 * 1024
)

// Dispatcher runs work on the game loop.
type Dispatcher interface {
	Do(ctx context.Context, cmd engine.Command) error
	Query(ctx context.Context, fn func(g *game.Game)) error
}

// Hub keeps the websocket connections of every player. It is the game
// loop's delivery sink.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	// QueueSize bounds the frames waiting for a slow client before it is
	// dropped.
	QueueSize int

	mu      sync.Mutex
	loop    Dispatcher
	clients map[world.PlayerID]map[*client]struct{}
}

type client struct {
	id     uuid.UUID
	player world.PlayerID
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// send queues b without blocking. It reports false when the client is gone
// or too far behind.
func (c *client) send(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// NewHub creates an empty hub. Bind must be called before serving.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		QueueSize: defaultQueueSize,
		clients:   make(map[world.PlayerID]map[*client]struct{}),
	}
}

// Bind sets the loop commands are dispatched to.
func (h *Hub) Bind(d Dispatcher) {
	h.mu.Lock()
	h.loop = d
	h.mu.Unlock()
}

func (h *Hub) dispatcher() Dispatcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loop
}

// Clients returns how many connections pid has open.
func (h *Hub) Clients(pid world.PlayerID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[pid])
}

// Deliver sends each observer its share of cs. A client that cannot keep
// up is disconnected; the others are not affected.
func (h *Hub) Deliver(turn int, cs *changes.Set, observers []changes.Observer) {
	h.mu.Lock()
	targets := make(map[world.PlayerID][]*client, len(h.clients))
	for pid, set := range h.clients {
		for c := range set {
			targets[pid] = append(targets[pid], c)
		}
	}
	h.mu.Unlock()

	for _, obs := range observers {
		list := targets[obs.PlayerID()]
		if len(list) == 0 {
			continue
		}
		visible := cs.For(obs)
		if len(visible) == 0 {
			continue
		}
		b, err := json.Marshal(ChangesFrame{Type: FrameChanges, Turn: turn, Changes: visible})
		if err != nil {
			h.log.Error("encode changes failed", "player", obs.PlayerID(), "turn", turn, "error", err)
			continue
		}
		for _, c := range list {
			if !c.send(b) {
				h.log.Warn("dropping slow client", "player", c.player, "conn", c.id)
				h.remove(c)
			}
		}
	}
}

// Close disconnects everybody.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[world.PlayerID]map[*client]struct{})
	h.mu.Unlock()
	for _, c := range all {
		c.close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.player]
	if set == nil {
		set = make(map[*client]struct{})
		h.clients[c.player] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if set := h.clients[c.player]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.player)
		}
	}
	h.mu.Unlock()
	c.close()
}

// ServeHTTP upgrades a player's connection: GET /ws?player=<id>.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	loop := h.dispatcher()
	if loop == nil {
		http.Error(w, "game not running", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("player"), 10, 32)
	if err != nil {
		http.Error(w, "player required", http.StatusBadRequest)
		return
	}
	pid := world.PlayerID(id)

	welcome := Welcome{Type: FrameWelcome, Player: pid}
	known := false
	err = loop.Query(r.Context(), func(g *game.Game) {
		if p := g.Player(pid); p != nil && !p.Dead {
			known = true
			welcome.Turn = g.Turn
			welcome.Date = engine.DateString(g.Turn)
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !known {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{
		id:     uuid.New(),
		player: pid,
		conn:   conn,
		out:    make(chan []byte, max(h.QueueSize, 1)),
		done:   make(chan struct{}),
	}
	b, _ := json.Marshal(welcome)
	c.out <- b
	h.add(c)
	h.log.Info("player connected", "player", pid, "conn", c.id)

	go h.writePump(c)
	h.readPump(loop, c)

	h.remove(c)
	h.log.Info("player disconnected", "player", pid, "conn", c.id)
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			return
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

func (h *Hub) readPump(loop Dispatcher, c *client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.done
		cancel()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))

		res := Result{Type: FrameResult}
		cmd, err := DecodeCommand(msg)
		if err == nil {
			res.ID = cmd.ID
			err = loop.Do(ctx, func(env *engine.Env) error {
				v, err := Execute(env, c.player, cmd)
				res.Value = v
				return err
			})
		}
		if errors.Is(err, engine.ErrStopped) || errors.Is(err, context.Canceled) {
			return
		}
		res.OK = err == nil
		if err != nil {
			res.Error = err.Error()
			h.log.Debug("command refused", "player", c.player, "type", cmd.Type, "error", err)
		}
		b, err := json.Marshal(res)
		if err != nil {
			h.log.Error("encode result failed", "player", c.player, "error", err)
			continue
		}
		if !c.send(b) {
			return
		}
	}
}
