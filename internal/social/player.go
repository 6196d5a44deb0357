package social

import (
	"slices"

	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/world"
)

// PlayerKind separates the colonizing powers from the natives.
type PlayerKind uint8

const (
	KindColonial PlayerKind = iota // A colonizing nation
	KindRoyal                      // The crown's expeditionary force, also colonizing
	KindNative                     // An indigenous tribe
)

func (k PlayerKind) String() string {
	switch k {
	case KindColonial:
		return "colonial"
	case KindRoyal:
		return "royal"
	default:
		return "native"
	}
}

// Player is one participant in the game, human or not.
type Player struct {
	ID     world.PlayerID `json:"id"`
	Name   string         `json:"name"`
	Nation string         `json:"nation"`
	Kind   PlayerKind     `json:"kind"`
	Gold   int            `json:"gold"`
	Score  int            `json:"score"`
	Dead   bool           `json:"dead"`

	Stances   map[world.PlayerID]Stance  `json:"stances"`
	Tensions  map[world.PlayerID]Tension `json:"tensions"`
	CeaseFire map[world.PlayerID]int     `json:"cease_fire,omitempty"` // Turns left before reverting to war

	// Set when a privateer has attacked this player's units. Privateer
	// attacks never change stance.
	AttackedByPrivateers bool `json:"attacked_by_privateers"`

	// Settlements in the order they are processed each turn.
	Settlements []world.SettlementID `json:"settlements"`

	TradingPost *TradingPost `json:"trading_post,omitempty"`
}

// NewPlayer creates a player with empty diplomatic state. Colonizing
// players get a trading post.
func NewPlayer(id world.PlayerID, name, nation string, kind PlayerKind, gold int) *Player {
	p := &Player{
		ID:        id,
		Name:      name,
		Nation:    nation,
		Kind:      kind,
		Gold:      gold,
		Stances:   make(map[world.PlayerID]Stance),
		Tensions:  make(map[world.PlayerID]Tension),
		CeaseFire: make(map[world.PlayerID]int),
	}
	if p.IsEuropean() {
		p.TradingPost = NewTradingPost()
	}
	return p
}

// IsEuropean reports whether the player is one of the colonizing kinds.
func (p *Player) IsEuropean() bool {
	return p.Kind == KindColonial || p.Kind == KindRoyal
}

// IsNative reports whether the player is a native tribe.
func (p *Player) IsNative() bool {
	return p.Kind == KindNative
}

// Stance returns the stance towards other.
func (p *Player) Stance(other world.PlayerID) Stance {
	return p.Stances[other]
}

// SetStance records the stance towards other and reports whether it changed.
func (p *Player) SetStance(other world.PlayerID, s Stance) bool {
	if p.Stances[other] == s {
		return false
	}
	p.Stances[other] = s
	if s == StanceCeaseFire {
		p.CeaseFire[other] = CeaseFireTurns
	} else {
		delete(p.CeaseFire, other)
	}
	return true
}

// AtWarWith reports whether the player is at war with other.
func (p *Player) AtWarWith(other world.PlayerID) bool {
	return p.Stances[other] == StanceWar
}

// Tension returns the tension felt towards other.
func (p *Player) Tension(other world.PlayerID) Tension {
	return p.Tensions[other]
}

// ModifyTension adds delta to the tension towards other and returns the result.
func (p *Player) ModifyTension(other world.PlayerID, delta int) Tension {
	t := p.Tensions[other]
	t.Modify(delta)
	p.Tensions[other] = t
	return t
}

// SetTension overwrites the tension towards other.
func (p *Player) SetTension(other world.PlayerID, value int) {
	p.Tensions[other] = Tension{Value: min(max(value, 0), TensionMax)}
}

// CheckGold reports whether the player can spend amount.
func (p *Player) CheckGold(amount int) bool {
	return p.Gold >= amount
}

// ModifyGold adds amount (which may be negative) to the treasury.
func (p *Player) ModifyGold(amount int) {
	p.Gold += amount
}

// AddSettlement appends a settlement to the processing order.
func (p *Player) AddSettlement(id world.SettlementID) {
	if !slices.Contains(p.Settlements, id) {
		p.Settlements = append(p.Settlements, id)
	}
}

// RemoveSettlement drops a settlement from the processing order.
func (p *Player) RemoveSettlement(id world.SettlementID) {
	p.Settlements = slices.DeleteFunc(p.Settlements, func(s world.SettlementID) bool { return s == id })
}

// TradingPost is a colonizing player's overseas market and recruiting office.
type TradingPost struct {
	Market          *economy.Market `json:"market"`
	RecruitPrice    int             `json:"recruit_price"`
	RecruitLowerCap int             `json:"recruit_lower_cap"`
}

// Recruit price bounds and drift.
const (
	InitialRecruitPrice = 200
	RecruitPriceStep    = 20
	RecruitPriceDecay   = 2
)

// NewTradingPost opens a trading post at base prices.
func NewTradingPost() *TradingPost {
	return &TradingPost{
		Market:          economy.NewMarket(),
		RecruitPrice:    InitialRecruitPrice,
		RecruitLowerCap: InitialRecruitPrice / 2,
	}
}
