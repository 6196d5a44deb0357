package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/interaction"
	"github.com/talgya/colonyserver/internal/persistence"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/world"
)

const dutch world.PlayerID = 1

func startServer(t *testing.T, s *Server) (*httptest.Server, *game.Game) {
	t.Helper()
	m := world.NewMap(4)
	for q := -4; q <= 4; q++ {
		for r := -4; r <= 4; r++ {
			c := world.HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&world.Tile{Coord: c, Terrain: world.TerrainPlains})
			}
		}
	}
	g := game.New(m)
	g.AddPlayer(social.NewPlayer(dutch, "Dutch", "dutch", social.KindColonial, 1000))
	g.FoundColony(dutch, "Fort Oranje", world.HexCoord{})

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := engine.NewLoop(engine.New(g, nil, interaction.Timeouts{}), rand.New(rand.NewSource(1)), quiet,
		engine.LoopConfig{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	s.Loop = l
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, g
}

func do(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatusAndPlayers(t *testing.T) {
	srv, g := startServer(t, &Server{})

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/status", "")
	var st struct {
		Game        string `json:"game"`
		Turn        int    `json:"turn"`
		Date        string `json:"date"`
		Settlements int    `json:"settlements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Game != g.ID.String() || st.Turn != 1 || st.Settlements != 1 || st.Date != engine.DateString(1) {
		t.Fatalf("status = %+v", st)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/players", "")
	var players []struct {
		Name        string `json:"name"`
		Kind        string `json:"kind"`
		Gold        int    `json:"gold"`
		Settlements int    `json:"settlements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	if len(players) != 1 || players[0].Name != "Dutch" || players[0].Gold != 1000 || players[0].Settlements != 1 {
		t.Fatalf("players = %+v", players)
	}
}

func TestAdminEndpointsNeedToken(t *testing.T) {
	srv, _ := startServer(t, &Server{})
	if resp := do(t, http.MethodPost, srv.URL+"/api/v1/turn", "anything"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("without admin key: status %d", resp.StatusCode)
	}

	srv, _ = startServer(t, &Server{AdminKey: "secret"})
	if resp := do(t, http.MethodPost, srv.URL+"/api/v1/turn", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", resp.StatusCode)
	}
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/turn", "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn: status %d", resp.StatusCode)
	}
	var out struct {
		Turn int `json:"turn"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Turn != 2 {
		t.Fatalf("turn after advance = %d", out.Turn)
	}
}

func TestSnapshotAndMessages(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "colony.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv, g := startServer(t, &Server{DB: db, AdminKey: "secret"})
	if resp := do(t, http.MethodPost, srv.URL+"/api/v1/snapshot", "secret"); resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot: status %d", resp.StatusCode)
	}
	loaded, err := db.LoadGame()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != g.ID || len(loaded.AllSettlements()) != 1 {
		t.Fatalf("snapshot holds game %v with %d settlements", loaded.ID, len(loaded.AllSettlements()))
	}

	if resp := do(t, http.MethodGet, srv.URL+"/api/v1/messages", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("messages without player: status %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/api/v1/messages?player=1", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("messages: status %d", resp.StatusCode)
	}
}

func TestAdminRateLimit(t *testing.T) {
	srv, _ := startServer(t, &Server{AdminKey: "secret", AdminLimit: 2})
	for i := 0; i < 2; i++ {
		if resp := do(t, http.MethodPost, srv.URL+"/api/v1/snapshot", "wrong"); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("request %d: status %d", i, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/turn", "secret")
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Fatalf("third request: status %d, retry %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests refused")
	}
	if rl.Allow("a") {
		t.Fatal("third request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client refused")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("retry after = %d", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("new window refused")
	}

	now = now.Add(5 * time.Minute)
	rl.Allow("c")
	if _, ok := rl.buckets["b"]; ok {
		t.Fatal("stale bucket kept")
	}
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	if got := clientAddr(r); got != "10.0.0.7" {
		t.Fatalf("peer = %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := clientAddr(r); !strings.EqualFold(got, "203.0.113.9") {
		t.Fatalf("forwarded = %q", got)
	}
}
