// Package economy provides goods, storage, and the trading-post market.
package economy

import "fmt"

// GoodsType enumerates storable and tradeable goods.
type GoodsType uint8

const (
	GoodsFood GoodsType = iota
	GoodsSugar
	GoodsTobacco
	GoodsCotton
	GoodsFurs
	GoodsLumber
	GoodsOre
	GoodsSilver
	GoodsHorses
	GoodsRum
	GoodsCigars
	GoodsCloth
	GoodsCoats
	GoodsTradeGoods
	GoodsTools
	GoodsMuskets
	GoodsHammers // Construction progress; never traded
)

// NumGoods is the total number of goods types.
const NumGoods = 17

var goodsNames = [NumGoods]string{
	"food", "sugar", "tobacco", "cotton", "furs", "lumber", "ore", "silver",
	"horses", "rum", "cigars", "cloth", "coats", "trade goods", "tools",
	"muskets", "hammers",
}

func (g GoodsType) String() string {
	if int(g) < NumGoods {
		return goodsNames[g]
	}
	return fmt.Sprintf("goods(%d)", g)
}

// ParseGoods maps a goods name back to its type.
func ParseGoods(name string) (GoodsType, bool) {
	for i, n := range goodsNames {
		if n == name {
			return GoodsType(i), true
		}
	}
	return 0, false
}

// Storable reports whether the goods count against warehouse capacity.
func (g GoodsType) Storable() bool {
	return g != GoodsFood && g != GoodsHammers
}

// Tradeable reports whether the goods can be bought or sold.
func (g GoodsType) Tradeable() bool {
	return g != GoodsHammers
}

// Inventory is a fixed-size array holding quantities of each goods type.
type Inventory [NumGoods]int

// IsEmpty returns true if no goods are held.
func (inv Inventory) IsEmpty() bool {
	for _, v := range inv {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clear zeroes every slot.
func (inv *Inventory) Clear() {
	*inv = Inventory{}
}

// Add stores amount units of g.
func (inv *Inventory) Add(g GoodsType, amount int) {
	inv[g] += amount
}

// Remove takes up to amount units of g and returns how many were taken.
func (inv *Inventory) Remove(g GoodsType, amount int) int {
	if amount > inv[g] {
		amount = inv[g]
	}
	if amount < 0 {
		amount = 0
	}
	inv[g] -= amount
	return amount
}

// Has reports whether at least amount units of g are held.
func (inv Inventory) Has(g GoodsType, amount int) bool {
	return inv[g] >= amount
}

// Total is the number of storable units held.
func (inv Inventory) Total() int {
	n := 0
	for g, v := range inv {
		if GoodsType(g).Storable() {
			n += v
		}
	}
	return n
}

// Holds returns the goods types with a positive amount, in type order.
func (inv Inventory) Holds() []GoodsType {
	var out []GoodsType
	for g, v := range inv {
		if v > 0 {
			out = append(out, GoodsType(g))
		}
	}
	return out
}

// CargoSlot is the number of goods units one hold of a ship or wagon carries.
const CargoSlot = 100

// Slots returns the number of cargo holds the inventory occupies.
func (inv Inventory) Slots() int {
	n := 0
	for g, v := range inv {
		if GoodsType(g).Tradeable() && v > 0 {
			n += (v + CargoSlot - 1) / CargoSlot
		}
	}
	return n
}
