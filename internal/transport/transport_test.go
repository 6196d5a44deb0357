package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/interaction"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

const (
	dutch  world.PlayerID = 1
	french world.PlayerID = 2
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Player  world.PlayerID  `json:"player"`
	Turn    int             `json:"turn"`
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Value   json.RawMessage `json:"value"`
	Changes []struct {
		Kind    string           `json:"kind"`
		Message *changes.Message `json:"message"`
	} `json:"changes"`
}

type fixture struct {
	game *game.Game
	loop *engine.Loop
	hub  *Hub
	srv  *httptest.Server
	unit *units.Unit
}

func start(t *testing.T) *fixture {
	t.Helper()
	m := world.NewMap(6)
	for q := -6; q <= 6; q++ {
		for r := -6; r <= 6; r++ {
			c := world.HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&world.Tile{Coord: c, Terrain: world.TerrainPlains})
			}
		}
	}
	g := game.New(m)
	g.AddPlayer(social.NewPlayer(dutch, "Dutch", "dutch", social.KindColonial, 1000))
	g.AddPlayer(social.NewPlayer(french, "French", "french", social.KindColonial, 1000))
	u := g.NewUnit(units.TypeVeteranSoldier, dutch, world.HexCoord{Q: 1, R: 0})

	hub := NewHub(quiet)
	l := engine.NewLoop(engine.New(g, nil, interaction.Timeouts{}), rand.New(rand.NewSource(1)), quiet,
		engine.LoopConfig{PollInterval: time.Hour}, hub)
	hub.Bind(l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		cancel()
		<-done
	})
	return &fixture{game: g, loop: l, hub: hub, srv: srv, unit: u}
}

func (f *fixture) dial(t *testing.T, pid world.PlayerID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?player=" + strconv.Itoa(int(pid))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if fr := read(t, conn); fr.Type != FrameWelcome || fr.Player != pid || fr.Turn != 1 {
		t.Fatalf("welcome = %+v", fr)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var fr frame
	if err := conn.ReadJSON(&fr); err != nil {
		t.Fatalf("read: %v", err)
	}
	return fr
}

func TestDeliverFiltersPerPlayer(t *testing.T) {
	f := start(t)
	dc := f.dial(t, dutch)
	fc := f.dial(t, french)

	err := f.loop.Do(context.Background(), func(env *engine.Env) error {
		env.Changes.Message(changes.Only(dutch), changes.Messagef(changes.MessageInfo, "test.dutch", "for the dutch"))
		env.Changes.Message(changes.Only(french), changes.Messagef(changes.MessageInfo, "test.french", "for the french"))
		env.Changes.Message(changes.All(), changes.Messagef(changes.MessageInfo, "test.all", "for everybody"))
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	for _, tc := range []struct {
		conn *websocket.Conn
		want string
	}{{dc, "test.dutch"}, {fc, "test.french"}} {
		fr := read(t, tc.conn)
		if fr.Type != FrameChanges || len(fr.Changes) != 2 {
			t.Fatalf("frame = %+v", fr)
		}
		if fr.Changes[0].Message.Key != tc.want || fr.Changes[1].Message.Key != "test.all" {
			t.Fatalf("got %q and %q, want %q first", fr.Changes[0].Message.Key, fr.Changes[1].Message.Key, tc.want)
		}
	}
}

func TestCommandsRunOnTheLoop(t *testing.T) {
	f := start(t)
	conn := f.dial(t, dutch)

	send := func(v string) frame {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(v)); err != nil {
			t.Fatalf("write: %v", err)
		}
		return read(t, conn)
	}

	if fr := send(`{"type":"explode"}`); fr.Type != FrameResult || fr.OK || !strings.Contains(fr.Error, "invalid command") {
		t.Fatalf("unknown type answered %+v", fr)
	}
	if fr := send(`{"id":"a1","type":"queue_attack","unit":1}`); fr.OK || fr.Error == "" {
		t.Fatalf("missing target answered %+v", fr)
	}
	fr := send(`{"id":"a2","type":"queue_attack","unit":1,"target":{"q":2,"r":0}}`)
	if !fr.OK || fr.ID != "a2" {
		t.Fatalf("queue_attack answered %+v", fr)
	}
	var target *world.HexCoord
	f.loop.Query(context.Background(), func(g *game.Game) {
		if u := g.Unit(f.unit.ID); u.Orders != nil {
			tc := u.Orders.Target
			target = &tc
		}
	})
	if target == nil || *target != (world.HexCoord{Q: 2, R: 0}) {
		t.Fatalf("orders = %v", target)
	}
}

func TestCommandsCheckOwnership(t *testing.T) {
	f := start(t)
	conn := f.dial(t, french)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"queue_attack","unit":1,"target":{"q":2,"r":0}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	fr := read(t, conn)
	if fr.OK || !strings.Contains(fr.Error, ErrBadCommand.Error()) {
		t.Fatalf("foreign unit answered %+v", fr)
	}
}

func TestUnknownPlayerIsRefused(t *testing.T) {
	f := start(t)
	resp, err := http.Get(f.srv.URL + "/ws?player=9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		kind string
	}{
		{`{"type":"respond","session":"diplomacy/player:2/unit:1","accept":true}`, true, CmdRespond},
		{`{"type":"respond"}`, false, ""},
		{`{"type":"buy","session":"s","goods":3,"amount":10}`, true, CmdBuy},
		{`{"type":"buy","session":"s","goods":40,"amount":10}`, false, ""},
		{`{"type":"propose_treaty","unit":4,"recipient":2,"terms":[{"kind":0,"stance":1}]}`, true, CmdProposeTreaty},
		{`{"type":"propose_treaty","unit":4,"recipient":2,"terms":[{"kind":9}]}`, false, ""},
		{`not json`, false, ""},
	}
	for _, tc := range tests {
		cmd, err := DecodeCommand([]byte(tc.raw))
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err = %v", tc.raw, err)
		}
		if tc.ok && cmd.Type != tc.kind {
			t.Fatalf("%s: type = %q", tc.raw, cmd.Type)
		}
	}
}

func TestExecuteUnknownSession(t *testing.T) {
	f := start(t)
	var err error
	f.loop.Do(context.Background(), func(env *engine.Env) error {
		_, err = Execute(env, dutch, Command{Type: CmdWithdraw, Session: "trade/unit:1/settlement:9"})
		return nil
	})
	if !errors.Is(err, ErrBadCommand) {
		t.Fatalf("err = %v", err)
	}
}
