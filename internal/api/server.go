// Package api provides the HTTP API for observing a running game.
// GET endpoints are public and read-only.
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/persistence"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/world"
)

// Loop is the part of the game loop the API needs.
type Loop interface {
	Query(ctx context.Context, fn func(g *game.Game)) error
	AdvanceTurn(ctx context.Context) (engine.TurnStats, error)
}

// Server serves the game state over HTTP.
type Server struct {
	Loop     Loop
	DB       *persistence.DB // Optional; snapshots and message history need it
	Players  http.Handler    // Websocket endpoint mounted at /ws
	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// AdminLimit bounds admin requests per client and minute. Zero uses 30.
	AdminLimit int
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	limit := s.AdminLimit
	if limit <= 0 {
		limit = 30
	}
	adminLimiter := NewRateLimiter(limit, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/players", s.handlePlayers)
	mux.HandleFunc("GET /api/v1/settlements", s.handleSettlements)
	mux.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/messages", s.handleMessages)

	mux.HandleFunc("POST /api/v1/turn", RateLimitMiddleware(adminLimiter, s.adminOnly(s.handleTurn)))
	mux.HandleFunc("POST /api/v1/snapshot", RateLimitMiddleware(adminLimiter, s.adminOnly(s.handleSnapshot)))

	if s.Players != nil {
		mux.Handle("/ws", s.Players)
	}
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. Shut the returned
// server down to stop it.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no COLONY_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// query runs fn on the game loop, answering 503 when the loop is gone.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(g *game.Game)) bool {
	if err := s.Loop.Query(r.Context(), fn); err != nil {
		http.Error(w, "game not running", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Game        uuid.UUID `json:"game"`
		Turn        int       `json:"turn"`
		Date        string    `json:"date"`
		Players     int       `json:"players"`
		Alive       int       `json:"alive"`
		Settlements int       `json:"settlements"`
		Units       int       `json:"units"`
		Sessions    int       `json:"sessions"`
		Tiles       int       `json:"tiles"`
	}
	var st status
	ok := s.query(w, r, func(g *game.Game) {
		st = status{
			Game:        g.ID,
			Turn:        g.Turn,
			Date:        engine.DateString(g.Turn),
			Players:     len(g.Players),
			Alive:       len(g.LivePlayers()),
			Settlements: len(g.AllSettlements()),
			Units:       len(g.AllUnits()),
			Sessions:    len(g.Sessions.Active()),
			Tiles:       g.Map.TileCount(),
		}
	})
	if ok {
		writeJSON(w, st)
	}
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	type playerSummary struct {
		ID          world.PlayerID            `json:"id"`
		Name        string                    `json:"name"`
		Nation      string                    `json:"nation"`
		Kind        string                    `json:"kind"`
		Gold        int                       `json:"gold"`
		Score       int                       `json:"score"`
		Dead        bool                      `json:"dead"`
		Settlements int                       `json:"settlements"`
		Units       int                       `json:"units"`
		Stances     map[world.PlayerID]string `json:"stances"`
		Tensions    map[world.PlayerID]string `json:"tensions"`
	}

	var result []playerSummary
	ok := s.query(w, r, func(g *game.Game) {
		for _, p := range g.Players {
			ps := playerSummary{
				ID:          p.ID,
				Name:        p.Name,
				Nation:      p.Nation,
				Kind:        p.Kind.String(),
				Gold:        p.Gold,
				Score:       p.Score,
				Dead:        p.Dead,
				Settlements: len(p.Settlements),
				Units:       len(g.UnitsOf(p.ID)),
				Stances:     make(map[world.PlayerID]string),
				Tensions:    make(map[world.PlayerID]string),
			}
			for other, st := range p.Stances {
				ps.Stances[other] = st.String()
			}
			for other, t := range p.Tensions {
				ps.Tensions[other] = t.Level().String()
			}
			result = append(result, ps)
		}
	})
	if ok {
		writeJSON(w, result)
	}
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	type settlementSummary struct {
		ID         world.SettlementID `json:"id"`
		Name       string             `json:"name"`
		Kind       string             `json:"kind"`
		Owner      world.PlayerID     `json:"owner"`
		Q          int                `json:"q"`
		R          int                `json:"r"`
		Population int                `json:"population"`
		Capital    bool               `json:"capital,omitempty"`
		Buildings  int                `json:"buildings,omitempty"`
	}

	owner, _ := strconv.ParseUint(r.URL.Query().Get("owner"), 10, 32)
	var result []settlementSummary
	ok := s.query(w, r, func(g *game.Game) {
		for _, st := range g.AllSettlements() {
			if owner != 0 && st.OwnerID() != world.PlayerID(owner) {
				continue
			}
			sum := settlementSummary{
				ID:         st.SettlementID(),
				Name:       st.Label(),
				Owner:      st.OwnerID(),
				Q:          st.Center().Q,
				R:          st.Center().R,
				Population: len(st.Residents()),
			}
			switch v := st.(type) {
			case *social.Colony:
				sum.Kind = "colony"
				sum.Buildings = len(v.Buildings)
			case *social.NativeSettlement:
				sum.Kind = "native"
				sum.Capital = v.Capital
			}
			result = append(result, sum)
		}
	})
	if ok {
		writeJSON(w, result)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	type sessionSummary struct {
		Key      string     `json:"key"`
		Kind     string     `json:"kind"`
		First    string     `json:"first"`
		Second   string     `json:"second"`
		Deadline *time.Time `json:"deadline,omitempty"`
		Payload  any        `json:"payload"`
	}

	var result []sessionSummary
	ok := s.query(w, r, func(g *game.Game) {
		for _, ss := range g.Sessions.Active() {
			a, b := ss.Parties()
			sum := sessionSummary{
				Key:    string(ss.Key()),
				Kind:   ss.Kind().String(),
				First:  string(a),
				Second: string(b),
			}
			if d, timed := ss.Deadline(); timed {
				sum.Deadline = &d
			}
			// Encoded here so the payload is read on the loop.
			if raw, err := json.Marshal(ss.Payload()); err == nil {
				sum.Payload = json.RawMessage(raw)
			}
			result = append(result, sum)
		}
	})
	if ok {
		writeJSON(w, result)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50, 500)
	category := r.URL.Query().Get("category")

	var events []game.Event
	ok := s.query(w, r, func(g *game.Game) {
		for _, e := range g.Events {
			if category == "" || e.Category == category {
				events = append(events, e)
			}
		}
	})
	if !ok {
		return
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	player, err := strconv.ParseUint(r.URL.Query().Get("player"), 10, 32)
	if err != nil {
		http.Error(w, "player required", http.StatusBadRequest)
		return
	}
	msgs, err := s.DB.Messages(world.PlayerID(player), intParam(r, "limit", 50, 500))
	if err != nil {
		slog.Error("message history failed", "player", player, "error", err)
		http.Error(w, "message history failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, msgs)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Loop.AdvanceTurn(r.Context())
	if err != nil {
		http.Error(w, "game not running", http.StatusServiceUnavailable)
		return
	}
	slog.Info("turn advanced by admin", "turn", stats.Turn+1)
	writeJSON(w, map[string]any{
		"stats": stats,
		"turn":  stats.Turn + 1,
		"date":  engine.DateString(stats.Turn + 1),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var turn int
	var saveErr error
	if !s.query(w, r, func(g *game.Game) {
		turn = g.Turn
		saveErr = s.DB.SaveGame(g)
	}) {
		return
	}
	if saveErr != nil {
		slog.Error("snapshot save failed", "error", saveErr)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"turn":    turn,
		"message": "snapshot saved",
	})
}

func intParam(r *http.Request, name string, def, ceiling int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
