package units

import "github.com/talgya/colonyserver/internal/economy"

// Role is the equipment a unit carries and the job that comes with it.
type Role uint8

const (
	RoleDefault Role = iota
	RoleSoldier
	RoleDragoon
	RolePioneer
	RoleMissionary
	RoleScout
	RoleArmedBrave
	RoleMountedBrave
	RoleNativeDragoon
)

// Equipment is an amount of goods a role consumes when taken up.
type Equipment struct {
	Goods  economy.GoodsType `json:"goods"`
	Amount int               `json:"amount"`
}

type roleInfo struct {
	name      string
	offence   int
	defence   int
	moves     int // Extra move points
	military  bool
	native    bool
	equipment []Equipment
	downgrade Role // Role after losing a fight, RoleDefault if the equipment is gone entirely
}

var roles = map[Role]roleInfo{
	RoleDefault: {name: "default"},
	RoleSoldier: {name: "soldier", offence: 2, defence: 1, military: true,
		equipment: []Equipment{{economy.GoodsMuskets, 50}}},
	RoleDragoon: {name: "dragoon", offence: 3, defence: 2, moves: 9, military: true,
		equipment: []Equipment{{economy.GoodsMuskets, 50}, {economy.GoodsHorses, 50}},
		downgrade: RoleSoldier},
	RolePioneer: {name: "pioneer",
		equipment: []Equipment{{economy.GoodsTools, 20}}},
	RoleMissionary: {name: "missionary"},
	RoleScout: {name: "scout", moves: 9,
		equipment: []Equipment{{economy.GoodsHorses, 50}}},
	RoleArmedBrave: {name: "armed brave", offence: 2, defence: 1, military: true, native: true,
		equipment: []Equipment{{economy.GoodsMuskets, 25}}},
	RoleMountedBrave: {name: "mounted brave", offence: 1, defence: 1, moves: 9, military: true, native: true,
		equipment: []Equipment{{economy.GoodsHorses, 25}}},
	RoleNativeDragoon: {name: "native dragoon", offence: 3, defence: 2, moves: 9, military: true, native: true,
		equipment: []Equipment{{economy.GoodsMuskets, 25}, {economy.GoodsHorses, 25}},
		downgrade: RoleArmedBrave},
}

func (r Role) String() string {
	return roles[r].name
}

// Military reports whether the role fights.
func (r Role) Military() bool {
	return roles[r].military
}

// Equipment returns the goods the role requires.
func (r Role) Equipment() []Equipment {
	return roles[r].equipment
}

// Downgrade is the role a unit falls back to after losing a fight.
func (r Role) Downgrade() Role {
	return roles[r].downgrade
}

// Lost returns the equipment shed when a unit in this role is downgraded.
func (r Role) Lost() []Equipment {
	kept := make(map[economy.GoodsType]int)
	for _, e := range r.Downgrade().Equipment() {
		kept[e.Goods] += e.Amount
	}
	var lost []Equipment
	for _, e := range r.Equipment() {
		if n := e.Amount - kept[e.Goods]; n > 0 {
			lost = append(lost, Equipment{Goods: e.Goods, Amount: n})
		}
	}
	return lost
}

// Capture returns the role a native unit holding r takes after seizing the
// given goods, and false when the goods do not improve it.
func (r Role) Capture(g economy.GoodsType) (Role, bool) {
	switch g {
	case economy.GoodsMuskets:
		switch r {
		case RoleDefault:
			return RoleArmedBrave, true
		case RoleMountedBrave:
			return RoleNativeDragoon, true
		}
	case economy.GoodsHorses:
		switch r {
		case RoleDefault:
			return RoleMountedBrave, true
		case RoleArmedBrave:
			return RoleNativeDragoon, true
		}
	}
	return r, false
}

// AutoequipGoods is the colony stock a defender picks up when attacked
// inside a colony without its own arms.
var AutoequipGoods = Equipment{Goods: economy.GoodsMuskets, Amount: 50}
