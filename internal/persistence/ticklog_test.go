package persistence

import (
	"testing"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
)

func TestTickLogRotatesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLog(dir, 2)
	l.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	observers := []changes.Observer{changes.Viewer{ID: dutch}}

	for turn := 1; turn <= 3; turn++ {
		cs := changes.New()
		cs.Message(changes.Only(dutch), changes.Messagef(changes.MessageInfo, "test.turn", "turn %d", turn))
		cs.NewTurn(turn + 1)
		l.Deliver(turn, cs, observers)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := TickLogFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}

	var entries []RecordedEntry
	if err := ReadTickLog(dir, func(e RecordedEntry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Turn != i+1 {
			t.Fatalf("entry %d has turn %d", i, e.Turn)
		}
		if len(e.Observers) != 1 || e.Observers[0] != dutch {
			t.Fatalf("entry %d observers %v", i, e.Observers)
		}
		if len(e.Changes) != 2 || e.Changes[0].Kind != "message" || e.Changes[1].Kind != "new_turn" {
			t.Fatalf("entry %d changes %+v", i, e.Changes)
		}
		if e.Changes[1].Turn != i+2 {
			t.Fatalf("entry %d announces turn %d", i, e.Changes[1].Turn)
		}
	}
}
