package session

import (
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Payload is the kind-specific state of a session. The variants are
// *Diplomacy, *Trade, *NativeDemand and *Mercenaries.
type Payload interface {
	Kind() Kind
}

// TermKind classifies a clause of a treaty.
type TermKind uint8

const (
	TermStance TermKind = iota // Both sides adopt Stance
	TermGold                   // From pays Amount gold to the other side
	TermGoods                  // From hands over Amount of Goods
	TermColony                 // From cedes Colony
)

// Term is one clause of an agreement.
type Term struct {
	Kind   TermKind           `json:"kind"`
	From   world.PlayerID     `json:"from,omitempty"`
	Stance social.Stance      `json:"stance,omitempty"`
	Amount int                `json:"amount,omitempty"`
	Goods  economy.GoodsType  `json:"goods,omitempty"`
	Colony world.SettlementID `json:"colony,omitempty"`
}

// Agreement is the treaty under negotiation.
type Agreement struct {
	Terms []Term `json:"terms"`
}

// Diplomacy is a treaty negotiation between two players, carried by a unit
// meeting a foreign settlement or unit.
type Diplomacy struct {
	Proposer   world.PlayerID     `json:"proposer"`
	Recipient  world.PlayerID     `json:"recipient"`
	Unit       units.ID           `json:"unit"`
	Settlement world.SettlementID `json:"settlement,omitempty"`
	Agreement  Agreement          `json:"agreement"`
	Rounds     int                `json:"rounds"`
}

func (*Diplomacy) Kind() Kind { return KindDiplomacy }

// Trade is a unit's trading visit at a native settlement. Buying, selling,
// and gifting may each happen once per visit.
type Trade struct {
	Unit       units.ID           `json:"unit"`
	Settlement world.SettlementID `json:"settlement"`
	Trader     world.PlayerID     `json:"trader"`
	Natives    world.PlayerID     `json:"natives"`
	Bought     bool               `json:"bought"`
	Sold       bool               `json:"sold"`
	Gifted     bool               `json:"gifted"`
}

func (*Trade) Kind() Kind { return KindTrade }

// ActionTaken reports whether anything changed hands during the visit.
func (t *Trade) ActionTaken() bool {
	return t.Bought || t.Sold || t.Gifted
}

// NativeDemand is a brave demanding goods or gold from a colony.
type NativeDemand struct {
	Brave   units.ID           `json:"brave"`
	Colony  world.SettlementID `json:"colony"`
	Natives world.PlayerID     `json:"natives"`
	Victim  world.PlayerID     `json:"victim"`
	Goods   economy.GoodsType  `json:"goods"`
	Amount  int                `json:"amount"` // Zero when gold is demanded
	Gold    int                `json:"gold"`
}

func (*NativeDemand) Kind() Kind { return KindNativeDemand }

// MercenaryUnit is one unit of a mercenary offer.
type MercenaryUnit struct {
	Type units.TypeID `json:"type"`
	Role units.Role   `json:"role"`
}

// Mercenaries is a crown or foreign offer of troops for gold.
type Mercenaries struct {
	Player world.PlayerID  `json:"player"`
	Units  []MercenaryUnit `json:"units"`
	Price  int             `json:"price"`
	At     world.HexCoord  `json:"at"` // Where accepted troops land
}

func (*Mercenaries) Kind() Kind { return KindMercenaries }
