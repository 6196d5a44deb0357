// Package changes accumulates the world mutations produced during one tick
// and decides which players get to see each of them.
package changes

import (
	"fmt"

	"github.com/talgya/colonyserver/internal/world"
)

// Kind tags a change record.
type Kind uint8

const (
	KindUpdate Kind = iota // Full snapshot of an object
	KindPartial            // Selected fields of an object
	KindMessage            // Text for a player
	KindAttack             // Combat animation
	KindMove               // Unit movement
	KindRemove             // Object left the world
	KindStance             // Diplomatic stance changed
	KindNewTurn            // Turn boundary
)

var kindNames = [...]string{"update", "partial", "message", "attack", "move", "remove", "stance", "new_turn"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Ref names an object the client already knows about.
type Ref struct {
	Kind string `json:"kind"` // "unit", "colony", "settlement", "player", "tile", "building"
	ID   uint64 `json:"id"`
}

// UnitRef, SettlementRef, PlayerRef and TileRef build references.
func UnitRef(id uint64) Ref                 { return Ref{Kind: "unit", ID: id} }
func SettlementRef(id world.SettlementID) Ref { return Ref{Kind: "settlement", ID: uint64(id)} }
func PlayerRef(id world.PlayerID) Ref         { return Ref{Kind: "player", ID: uint64(id)} }
func TileRef() Ref                            { return Ref{Kind: "tile"} }

// MessageType classifies player messages.
type MessageType string

const (
	MessageInfo      MessageType = "info"
	MessageCombat    MessageType = "combat"
	MessageDiplomacy MessageType = "diplomacy"
	MessageDemand    MessageType = "demand"
	MessageWarning   MessageType = "warning"
	MessageFailure   MessageType = "failure"
)

// Message is human-readable text plus a stable key clients can localize.
type Message struct {
	Type MessageType `json:"type"`
	Key  string      `json:"key"`
	Text string      `json:"text"`
}

// Messagef builds a message.
func Messagef(t MessageType, key, format string, args ...any) Message {
	return Message{Type: t, Key: key, Text: fmt.Sprintf(format, args...)}
}

// Attack describes a combat animation.
type Attack struct {
	Attacker Ref            `json:"attacker"`
	Defender Ref            `json:"defender"`
	From     world.HexCoord `json:"from"`
	To       world.HexCoord `json:"to"`
	Success  bool           `json:"success"`
}

// Stance describes a diplomatic change between two players.
type Stance struct {
	First  world.PlayerID `json:"first"`
	Second world.PlayerID `json:"second"`
	Stance string         `json:"stance"`
}

// Change is one record of the accumulator.
type Change struct {
	Kind    Kind             `json:"kind"`
	Scope   Scope            `json:"-"`
	Tiles   []world.HexCoord `json:"tiles,omitempty"`
	Object  *Ref             `json:"object,omitempty"`
	Value   any              `json:"value,omitempty"`
	Fields  map[string]any   `json:"fields,omitempty"`
	Message *Message         `json:"message,omitempty"`
	Attack  *Attack          `json:"attack,omitempty"`
	Stance  *Stance          `json:"stance,omitempty"`
	Turn    int              `json:"turn,omitempty"`
}

// Set is an append-only list of changes for one tick. It is not safe for
// concurrent use; the game loop owns it.
type Set struct {
	changes []Change
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

func (s *Set) add(c Change) {
	s.changes = append(s.changes, c)
}

// Update queues a full snapshot of obj located at tile.
func (s *Set) Update(scope Scope, obj Ref, tile world.HexCoord, value any) {
	s.add(Change{Kind: KindUpdate, Scope: scope, Object: &obj, Tiles: []world.HexCoord{tile}, Value: value})
}

// Partial queues selected fields of obj.
func (s *Set) Partial(scope Scope, obj Ref, tile world.HexCoord, fields map[string]any) {
	s.add(Change{Kind: KindPartial, Scope: scope, Object: &obj, Tiles: []world.HexCoord{tile}, Fields: fields})
}

// Message queues a player message.
func (s *Set) Message(scope Scope, m Message) {
	s.add(Change{Kind: KindMessage, Scope: scope, Message: &m})
}

// Attack queues a combat animation visible around the defender's tile.
func (s *Set) Attack(scope Scope, a Attack) {
	s.add(Change{Kind: KindAttack, Scope: scope, Tiles: []world.HexCoord{a.From, a.To}, Attack: &a})
}

// Move queues a unit movement; players seeing either end receive it.
func (s *Set) Move(scope Scope, unit Ref, from, to world.HexCoord) {
	s.add(Change{Kind: KindMove, Scope: scope, Object: &unit, Tiles: []world.HexCoord{from, to}})
}

// Remove queues the disappearance of obj from tile.
func (s *Set) Remove(scope Scope, obj Ref, tile world.HexCoord) {
	s.add(Change{Kind: KindRemove, Scope: scope, Object: &obj, Tiles: []world.HexCoord{tile}})
}

// StanceChange queues a stance notification.
func (s *Set) StanceChange(scope Scope, first, second world.PlayerID, stance string) {
	s.add(Change{Kind: KindStance, Scope: scope, Stance: &Stance{First: first, Second: second, Stance: stance}})
}

// NewTurn queues the turn boundary for everybody.
func (s *Set) NewTurn(turn int) {
	s.add(Change{Kind: KindNewTurn, Scope: All(), Turn: turn})
}

// Len returns the number of queued changes.
func (s *Set) Len() int {
	return len(s.changes)
}

// Changes returns every queued change in order.
func (s *Set) Changes() []Change {
	return s.changes
}

// For returns the changes obs is allowed to receive, in order.
func (s *Set) For(obs Observer) []Change {
	var out []Change
	for _, c := range s.changes {
		if c.Scope.includes(obs, c.Tiles) {
			out = append(out, c)
		}
	}
	return out
}

// Messages returns the message texts obs would receive. Handy for logs and tests.
func (s *Set) Messages(obs Observer) []Message {
	var out []Message
	for _, c := range s.For(obs) {
		if c.Message != nil {
			out = append(out, *c.Message)
		}
	}
	return out
}
