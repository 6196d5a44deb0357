// Package persistence provides SQLite-based game state storage and the
// compressed tick log.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// ErrNoGame is returned by LoadGame when nothing has been saved yet.
var ErrNoGame = errors.New("no saved game")

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		terrain INTEGER NOT NULL,
		elevation REAL NOT NULL,
		rainfall REAL NOT NULL,
		temperature REAL NOT NULL,
		owner INTEGER NOT NULL,
		owning_settlement INTEGER NOT NULL,
		settlement INTEGER NOT NULL,
		PRIMARY KEY (q, r)
	);

	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		nation TEXT NOT NULL,
		kind INTEGER NOT NULL,
		gold INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		owner INTEGER NOT NULL,
		name TEXT NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		population INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY,
		type INTEGER NOT NULL,
		owner INTEGER NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		location INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		player INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		player INTEGER NOT NULL,
		type TEXT NOT NULL,
		key TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);
	CREATE INDEX IF NOT EXISTS idx_messages_player ON messages(player, turn);
	CREATE INDEX IF NOT EXISTS idx_units_owner ON units(owner);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type tileRow struct {
	Q                int     `db:"q"`
	R                int     `db:"r"`
	Terrain          uint8   `db:"terrain"`
	Elevation        float64 `db:"elevation"`
	Rainfall         float64 `db:"rainfall"`
	Temperature      float64 `db:"temperature"`
	Owner            uint32  `db:"owner"`
	OwningSettlement uint64  `db:"owning_settlement"`
	Settlement       uint64  `db:"settlement"`
}

type stateRow struct {
	Kind  string `db:"kind"`
	State string `db:"state_json"`
}

// Event is a stored game event.
type Event struct {
	Turn        int    `db:"turn" json:"turn"`
	Player      uint32 `db:"player" json:"player,omitempty"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}

// Message is a stored player message.
type Message struct {
	Turn   int    `db:"turn" json:"turn"`
	Player uint32 `db:"player" json:"player"`
	Type   string `db:"type" json:"type"`
	Key    string `db:"key" json:"key"`
	Text   string `db:"text" json:"text"`
}

// SaveGame writes the whole game to the database (full replace). It must
// run on the game's loop.
func (db *DB) SaveGame(g *game.Game) error {
	slog.Info("saving game", "game", g.ID, "turn", g.Turn, "players", len(g.Players))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"tiles", "players", "settlements", "units", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := saveTiles(tx, g.Map); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}
	if err := savePlayers(tx, g.Players); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := saveSettlements(tx, g.AllSettlements()); err != nil {
		return fmt.Errorf("save settlements: %w", err)
	}
	if err := saveUnits(tx, g.AllUnits()); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	for _, e := range g.Events {
		_, err := tx.Exec(
			"INSERT INTO events (turn, player, description, category) VALUES (?, ?, ?, ?)",
			e.Turn, e.Player, e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("save events: %w", err)
		}
	}
	meta := map[string]string{
		"game_id":    g.ID.String(),
		"turn":       strconv.Itoa(g.Turn),
		"map_radius": strconv.Itoa(g.Map.Radius),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("game saved", "turn", g.Turn)
	return nil
}

func saveTiles(tx *sqlx.Tx, m *world.Map) error {
	stmt, err := tx.Preparex(`INSERT INTO tiles
		(q, r, terrain, elevation, rainfall, temperature, owner, owning_settlement, settlement)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range m.Tiles {
		_, err := stmt.Exec(
			t.Coord.Q, t.Coord.R, uint8(t.Terrain),
			t.Elevation, t.Rainfall, t.Temperature,
			uint32(t.Owner), uint64(t.OwningSettlement), uint64(t.Settlement),
		)
		if err != nil {
			return fmt.Errorf("insert tile %v: %w", t.Coord, err)
		}
	}
	return nil
}

func savePlayers(tx *sqlx.Tx, players []*social.Player) error {
	for i, p := range players {
		state, err := json.Marshal(p)
		if err != nil {
			return err
		}
		dead := 0
		if p.Dead {
			dead = 1
		}
		_, err = tx.Exec(`INSERT INTO players
			(id, seq, name, nation, kind, gold, dead, state_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uint32(p.ID), i, p.Name, p.Nation, uint8(p.Kind), p.Gold, dead, string(state),
		)
		if err != nil {
			return fmt.Errorf("insert player %d: %w", p.ID, err)
		}
	}
	return nil
}

func saveSettlements(tx *sqlx.Tx, settlements []social.Settlement) error {
	for _, s := range settlements {
		kind := "colony"
		if _, ok := s.(*social.NativeSettlement); ok {
			kind = "native"
		}
		state, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO settlements
			(id, kind, owner, name, pos_q, pos_r, population, state_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uint64(s.SettlementID()), kind, uint32(s.OwnerID()), s.Label(),
			s.Center().Q, s.Center().R, len(s.Residents()), string(state),
		)
		if err != nil {
			return fmt.Errorf("insert settlement %d: %w", s.SettlementID(), err)
		}
	}
	return nil
}

func saveUnits(tx *sqlx.Tx, list []*units.Unit) error {
	stmt, err := tx.Preparex(`INSERT INTO units
		(id, type, owner, pos_q, pos_r, location, state_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range list {
		state, err := json.Marshal(u)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(
			uint64(u.ID), uint8(u.Type), uint32(u.Owner),
			u.Coord.Q, u.Coord.R, uint8(u.Location), string(state),
		)
		if err != nil {
			return fmt.Errorf("insert unit %d: %w", u.ID, err)
		}
	}
	return nil
}

// LoadGame rebuilds the last saved game. Interaction sessions are not
// stored; a game is saved between turns, when none are open.
func (db *DB) LoadGame() (*game.Game, error) {
	radius, err := db.metaInt("map_radius")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoGame
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	m := world.NewMap(radius)
	var tiles []tileRow
	if err := db.conn.Select(&tiles, "SELECT * FROM tiles"); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	for _, t := range tiles {
		m.Set(&world.Tile{
			Coord:            world.HexCoord{Q: t.Q, R: t.R},
			Terrain:          world.Terrain(t.Terrain),
			Elevation:        t.Elevation,
			Rainfall:         t.Rainfall,
			Temperature:      t.Temperature,
			Owner:            world.PlayerID(t.Owner),
			OwningSettlement: world.SettlementID(t.OwningSettlement),
			Settlement:       world.SettlementID(t.Settlement),
		})
	}

	g := game.New(m)
	if g.Turn, err = db.metaInt("turn"); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	id, err := db.GetMeta("game_id")
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("game id: %w", err)
	}

	var players []stateRow
	if err := db.conn.Select(&players, "SELECT '' AS kind, state_json FROM players ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	for _, row := range players {
		var p social.Player
		if err := json.Unmarshal([]byte(row.State), &p); err != nil {
			return nil, fmt.Errorf("decode player: %w", err)
		}
		g.AddPlayer(&p)
	}

	var settlements []stateRow
	if err := db.conn.Select(&settlements, "SELECT kind, state_json FROM settlements ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	for _, row := range settlements {
		var s social.Settlement
		switch row.Kind {
		case "colony":
			s = &social.Colony{}
		case "native":
			s = &social.NativeSettlement{}
		default:
			return nil, fmt.Errorf("load settlements: unknown kind %q", row.Kind)
		}
		if err := json.Unmarshal([]byte(row.State), s); err != nil {
			return nil, fmt.Errorf("decode settlement: %w", err)
		}
		g.RestoreSettlement(s)
	}

	var unitStates []string
	if err := db.conn.Select(&unitStates, "SELECT state_json FROM units ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	for _, state := range unitStates {
		var u units.Unit
		if err := json.Unmarshal([]byte(state), &u); err != nil {
			return nil, fmt.Errorf("decode unit: %w", err)
		}
		g.AddUnit(&u)
	}

	events, err := db.RecentEvents(game.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		g.Events = append(g.Events, game.Event{
			Turn:        e.Turn,
			Player:      world.PlayerID(e.Player),
			Description: e.Description,
			Category:    e.Category,
		})
	}

	slog.Info("game loaded", "game", g.ID, "turn", g.Turn,
		"players", len(g.Players), "settlements", len(settlements), "units", len(unitStates))
	return g, nil
}

// SaveMeta stores a key-value pair in game metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM game_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) metaInt(key string) (int, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]Event, error) {
	var events []Event
	err := db.conn.Select(&events,
		"SELECT turn, player, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// Deliver appends every message of cs to the message log of each player
// that receives it. It implements the game loop's sink.
func (db *DB) Deliver(turn int, cs *changes.Set, observers []changes.Observer) {
	var rows []Message
	for _, obs := range observers {
		for _, m := range cs.Messages(obs) {
			rows = append(rows, Message{
				Turn:   turn,
				Player: uint32(obs.PlayerID()),
				Type:   string(m.Type),
				Key:    m.Key,
				Text:   m.Text,
			})
		}
	}
	if len(rows) == 0 {
		return
	}
	_, err := db.conn.NamedExec(
		`INSERT INTO messages (turn, player, type, key, text)
		VALUES (:turn, :player, :type, :key, :text)`, rows)
	if err != nil {
		slog.Error("message log write failed", "turn", turn, "messages", len(rows), "error", err)
	}
}

// Messages returns a player's most recent messages, newest first.
func (db *DB) Messages(player world.PlayerID, limit int) ([]Message, error) {
	var out []Message
	err := db.conn.Select(&out,
		"SELECT turn, player, type, key, text FROM messages WHERE player = ? ORDER BY id DESC LIMIT ?",
		uint32(player), limit,
	)
	return out, err
}
