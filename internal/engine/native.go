// Native settlement turn: food and growth, missions, calming alarm.
package engine

import (
	"cmp"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
)

const (
	NativeFoodToGrow  = 200
	ConvertThreshold  = 10
	JesuitConvertRate = 2
)

// NativeCapacity is the most residents a settlement supports.
func NativeCapacity(ns *social.NativeSettlement) int {
	if ns.Capital {
		return 8
	}
	return 5
}

func nativeRef(ns *social.NativeSettlement) EntityRef {
	return EntityRef{Kind: EntityNativeSettlement, ID: uint64(ns.ID)}
}

func (c *cascade) nativeSettlement(ns *social.NativeSettlement, rng *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(nativeRef(ns))

	if !c.feedNatives(ns, log, cs) {
		return
	}
	c.convert(ns, log, cs)
	for p, t := range ns.Alarm {
		ns.ModifyAlarm(p, -t.Decay())
	}
	cs.Update(changes.Perhaps(), changes.SettlementRef(ns.ID), ns.Coord, ns)

	for _, id := range slices.Clone(ns.Units) {
		if u := c.Game.Unit(id); u != nil && !c.ledger.done(unitRef(u)) {
			c.unit(u, rng, log, cs)
		}
	}
}

// feedNatives grows or starves the settlement. It reports false when the
// settlement starved out.
func (c *cascade) feedNatives(ns *social.NativeSettlement, log *slog.Logger, cs *changes.Set) bool {
	pop := len(ns.Units)
	yields := make([]int, 0)
	for _, t := range c.Game.Map.OwnedBy(ns.ID) {
		yields = append(yields, t.Terrain.FoodYield())
	}
	slices.SortFunc(yields, func(a, b int) int { return cmp.Compare(b, a) })
	food := 0
	for _, y := range yields[:min(len(yields), pop+1)] {
		food += y
	}
	ns.Goods[economy.GoodsFood] += food - pop*FoodPerColonist

	switch {
	case ns.Goods[economy.GoodsFood] < 0:
		ns.Goods[economy.GoodsFood] = 0
		if pop == 0 {
			break
		}
		c.Game.DisposeUnit(c.Game.Unit(ns.Units[pop-1]), cs)
		c.stats.Starved++
		if len(ns.Units) == 0 {
			c.Game.EmitEvent(game.Event{Player: ns.Owner, Category: "native",
				Description: fmt.Sprintf("%s was abandoned", ns.Name)})
			log.Info("settlement starved out")
			c.Game.DisposeSettlement(ns, cs)
			return false
		}
	case ns.Goods[economy.GoodsFood] >= NativeFoodToGrow && pop < NativeCapacity(ns):
		ns.Goods[economy.GoodsFood] -= NativeFoodToGrow
		brave := c.Game.NewUnit(units.TypeBrave, ns.Owner, ns.Coord)
		brave.HomeSettlement = ns.ID
		c.Game.JoinSettlement(brave, ns, 0)
		c.stats.Born++
	}
	return true
}

// convert advances the resident mission. Each full round of progress sends
// a convert to the missionary's nation.
func (c *cascade) convert(ns *social.NativeSettlement, log *slog.Logger, cs *changes.Set) {
	if ns.Missionary == 0 {
		return
	}
	m := c.Game.Unit(ns.Missionary)
	if m == nil {
		ns.Missionary = 0
		return
	}
	rate := 1
	if m.Type == units.TypeJesuitMissionary {
		rate = JesuitConvertRate
	}
	ns.ConvertProgress += rate
	if ns.ConvertProgress < ConvertThreshold {
		return
	}
	ns.ConvertProgress -= ConvertThreshold
	u := c.Game.NewUnit(units.TypeIndianConvert, m.Owner, ns.Coord)
	c.Game.UpdateUnit(u, cs)
	c.tell(cs, m.Owner, changes.MessageInfo, "model.mission.convert",
		"A convert from %s has joined your people", ns.Name)
	log.Debug("native converted", "to", m.Owner)
}
