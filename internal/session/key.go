// Package session tracks the multi-round interactions between players that
// outlive a single command: treaty talks, trade visits, tribute demands,
// and mercenary offers.
package session

import (
	"fmt"

	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Kind names the sort of interaction a session carries.
type Kind uint8

const (
	KindDiplomacy Kind = iota
	KindTrade
	KindNativeDemand
	KindMercenaries
)

func (k Kind) String() string {
	switch k {
	case KindDiplomacy:
		return "diplomacy"
	case KindTrade:
		return "trade"
	case KindNativeDemand:
		return "native-demand"
	case KindMercenaries:
		return "mercenaries"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// ParseKind maps a kind name back to its value.
func ParseKind(name string) (Kind, bool) {
	for k := KindDiplomacy; k <= KindMercenaries; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Party identifies one side of a session: a unit, a settlement, or a player.
type Party string

// UnitParty, SettlementParty and PlayerParty name session participants.
func UnitParty(id units.ID) Party                 { return Party(fmt.Sprintf("unit:%d", id)) }
func SettlementParty(id world.SettlementID) Party { return Party(fmt.Sprintf("settlement:%d", id)) }
func PlayerParty(id world.PlayerID) Party         { return Party(fmt.Sprintf("player:%d", id)) }

// Key identifies a session. Two sessions of the same kind between the same
// parties have the same key whichever side started them.
type Key string

// MakeKey builds the key for a session of kind k between a and b.
func MakeKey(k Kind, a, b Party) Key {
	if b < a {
		a, b = b, a
	}
	return Key(k.String() + "/" + string(a) + "/" + string(b))
}
