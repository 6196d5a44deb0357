package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/world"
)

// DefaultTurnsPerFile is how many turns share one tick log file.
const DefaultTurnsPerFile = 50

const tickLogPrefix = "ticks-"

// TickEntry is one delivered change set. A turn may have several: one per
// command applied on it plus the turn advance itself.
type TickEntry struct {
	Turn      int              `json:"turn"`
	At        time.Time        `json:"at"`
	Observers []world.PlayerID `json:"observers"`
	Changes   []changes.Change `json:"changes"`
}

// RecordedChange is a change read back from the log.
type RecordedChange struct {
	Kind    string           `json:"kind"`
	Tiles   []world.HexCoord `json:"tiles,omitempty"`
	Object  *changes.Ref     `json:"object,omitempty"`
	Value   json.RawMessage  `json:"value,omitempty"`
	Fields  json.RawMessage  `json:"fields,omitempty"`
	Message *changes.Message `json:"message,omitempty"`
	Attack  *changes.Attack  `json:"attack,omitempty"`
	Stance  *changes.Stance  `json:"stance,omitempty"`
	Turn    int              `json:"turn,omitempty"`
}

// RecordedEntry is a TickEntry read back from the log.
type RecordedEntry struct {
	Turn      int              `json:"turn"`
	At        time.Time        `json:"at"`
	Observers []world.PlayerID `json:"observers"`
	Changes   []RecordedChange `json:"changes"`
}

// TickLog writes delivered change sets as zstd-compressed JSON lines,
// starting a new file every TurnsPerFile turns.
type TickLog struct {
	dir          string
	turnsPerFile int
	now          func() time.Time

	mu    sync.Mutex
	block int
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

// NewTickLog creates a tick log under dir.
func NewTickLog(dir string, turnsPerFile int) *TickLog {
	if turnsPerFile <= 0 {
		turnsPerFile = DefaultTurnsPerFile
	}
	return &TickLog{dir: dir, turnsPerFile: turnsPerFile, now: time.Now, block: -1}
}

// Deliver records cs. Write failures are logged; the game goes on.
func (l *TickLog) Deliver(turn int, cs *changes.Set, observers []changes.Observer) {
	entry := TickEntry{Turn: turn, At: l.now().UTC(), Changes: cs.Changes()}
	for _, obs := range observers {
		entry.Observers = append(entry.Observers, obs.PlayerID())
	}
	if err := l.Write(entry); err != nil {
		slog.Error("tick log write failed", "turn", turn, "error", err)
	}
}

// Write appends one entry and flushes it so readers see it at once.
func (l *TickLog) Write(e TickEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	block := (max(e.Turn, 1) - 1) / l.turnsPerFile
	if block != l.block || l.w == nil {
		if err := l.rotateLocked(block); err != nil {
			return err
		}
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.enc.Flush()
}

// Close finishes the current file.
func (l *TickLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *TickLog) rotateLocked(block int) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, fmt.Sprintf("%s%06d.jsonl.zst", tickLogPrefix, block*l.turnsPerFile+1))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 128*1024)
	l.block = block
	return nil
}

func (l *TickLog) closeLocked() error {
	var err error
	if l.w != nil {
		err = l.w.Flush()
	}
	if l.enc != nil {
		err = errors.Join(err, l.enc.Close())
		l.enc = nil
	}
	if l.f != nil {
		err = errors.Join(err, l.f.Close())
		l.f = nil
	}
	l.w = nil
	return err
}

// TickLogFiles lists the tick log files in dir, oldest first.
func TickLogFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, tickLogPrefix) && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadTickLog calls fn for every entry in dir in write order. A truncated
// final frame ends its file.
func ReadTickLog(dir string, fn func(RecordedEntry) error) error {
	files, err := TickLogFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := readTickFile(path, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func readTickFile(path string, fn func(RecordedEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var e RecordedEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}
