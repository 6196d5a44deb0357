package changes

import (
	"testing"

	"github.com/talgya/colonyserver/internal/world"
)

func viewer(id world.PlayerID, visible ...world.HexCoord) Viewer {
	return Viewer{ID: id, Sees: func(c world.HexCoord) bool {
		for _, v := range visible {
			if v == c {
				return true
			}
		}
		return false
	}}
}

func TestScopes(t *testing.T) {
	here := world.HexCoord{Q: 1, R: 1}
	there := world.HexCoord{Q: 5, R: -2}
	near := viewer(1, here)
	far := viewer(2)
	owner := viewer(3)

	cases := []struct {
		name  string
		scope Scope
		tiles []world.HexCoord
		want  map[world.PlayerID]bool
	}{
		{"all", All(), nil, map[world.PlayerID]bool{1: true, 2: true, 3: true}},
		{"only", Only(2), nil, map[world.PlayerID]bool{2: true}},
		{"perhaps", Perhaps(), []world.HexCoord{here}, map[world.PlayerID]bool{1: true}},
		{"perhaps always", Perhaps().Always(3), []world.HexCoord{here}, map[world.PlayerID]bool{1: true, 3: true}},
		{"perhaps elsewhere", Perhaps(), []world.HexCoord{there}, map[world.PlayerID]bool{}},
		{"all except", All().Except(1), nil, map[world.PlayerID]bool{2: true, 3: true}},
		{"perhaps except", Perhaps().Always(3).Except(1), []world.HexCoord{here}, map[world.PlayerID]bool{3: true}},
	}
	for _, tc := range cases {
		for _, obs := range []Viewer{near, far, owner} {
			if got := tc.scope.includes(obs, tc.tiles); got != tc.want[obs.ID] {
				t.Fatalf("%s: player %d included = %v, want %v", tc.name, obs.ID, got, tc.want[obs.ID])
			}
		}
	}
}

func TestAlwaysDoesNotAlias(t *testing.T) {
	base := Perhaps().Always(1)
	a := base.Always(2)
	b := base.Always(3)
	if len(a.always) != 2 || a.always[1] != 2 || b.always[1] != 3 {
		t.Fatalf("derived scopes share storage: %v %v", a.always, b.always)
	}
}

func TestForFiltersInOrder(t *testing.T) {
	cs := New()
	from := world.HexCoord{Q: 0, R: 0}
	to := world.HexCoord{Q: 1, R: 0}
	cs.Message(Only(1), Messagef(MessageInfo, "hello", "hello %d", 1))
	cs.Move(Perhaps().Always(1), UnitRef(7), from, to)
	cs.Message(Only(2), Messagef(MessageInfo, "hello", "hello %d", 2))
	cs.NewTurn(3)

	watcher := viewer(2, to)
	got := cs.For(watcher)
	if len(got) != 3 {
		t.Fatalf("player 2 got %d changes, want 3", len(got))
	}
	if got[0].Kind != KindMove || got[1].Kind != KindMessage || got[2].Kind != KindNewTurn {
		t.Fatalf("unexpected order: %v %v %v", got[0].Kind, got[1].Kind, got[2].Kind)
	}
	if msgs := cs.Messages(viewer(1)); len(msgs) != 1 || msgs[0].Text != "hello 1" {
		t.Fatalf("player 1 messages = %+v", msgs)
	}
	if cs.Len() != 4 {
		t.Fatalf("Len = %d", cs.Len())
	}
}
