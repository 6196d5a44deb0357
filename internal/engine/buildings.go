package engine

import (
	"log/slog"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
)

// ShipRepairPerTurn is the hull a ship regains each turn in dock.
const ShipRepairPerTurn = 2

// LibertyPerStatesman is what each town hall worker adds per turn.
const LibertyPerStatesman = 3

func (c *cascade) building(col *social.Colony, b *social.Building, log *slog.Logger, cs *changes.Set) {
	c.enter(EntityRef{Kind: EntityBuilding, ID: b.ID})

	info := b.Type.Info()
	switch {
	case info.Produces:
		c.produce(col, b, info)
	case b.Type == social.BuildingTownHall:
		col.Liberty += len(b.Workers) * LibertyPerStatesman
	case b.Type == social.BuildingSchoolhouse:
		c.teach(col, b, log, cs)
	case b.Type == social.BuildingDocks:
		c.repairShips(col, cs)
	}
}

// produce turns the building's input into output, limited by stock.
func (c *cascade) produce(col *social.Colony, b *social.Building, info social.BuildingInfo) {
	potential := 0
	for _, id := range b.Workers {
		u := c.Game.Unit(id)
		if u == nil {
			continue
		}
		n := social.BaseProductionPerWorker
		if ut := u.UnitType(); ut.IsExpert && ut.Expertise == info.Output {
			n *= 2
		}
		potential += n
	}
	made := min(potential, col.Goods[info.Input])
	if made <= 0 {
		return
	}
	col.Goods.Remove(info.Input, made)
	col.Goods.Add(info.Output, made)
}

// trainable lists who a unit of each type becomes once taught.
var trainable = map[units.TypeID]units.TypeID{
	units.TypePettyCriminal:     units.TypeIndenturedServant,
	units.TypeIndenturedServant: units.TypeFreeColonist,
}

// teach lets the schoolhouse's teacher train one student. A colony with a
// teacher but nobody to teach is told so.
func (c *cascade) teach(col *social.Colony, b *social.Building, log *slog.Logger, cs *changes.Set) {
	if len(b.Workers) == 0 {
		return
	}
	teacher := c.Game.Unit(b.Workers[0])
	if teacher == nil || !teacher.UnitType().IsExpert {
		return
	}
	student := c.student(col, teacher)
	if student == nil {
		teacher.TrainingTurns = 0
		c.tell(cs, col.Owner, changes.MessageFailure, "model.building.noStudent",
			"The %s teaching in %s has no student", teacher.UnitType().Name, col.Name)
		return
	}
	teacher.TrainingTurns++
	if teacher.TrainingTurns < social.TeachingTurns {
		return
	}
	teacher.TrainingTurns = 0
	was := student.UnitType().Name
	next, ok := trainable[student.Type]
	if !ok {
		next = teacher.Type
	}
	student.ChangeType(next)
	c.Game.UpdateUnit(student, cs)
	c.tell(cs, col.Owner, changes.MessageInfo, "model.building.unitEducated",
		"A %s in %s has been educated as a %s", was, col.Name, student.UnitType().Name)
	log.Debug("student educated", "unit", student.ID, "type", student.UnitType().Name)
}

// student picks the first resident the teacher can improve.
func (c *cascade) student(col *social.Colony, teacher *units.Unit) *units.Unit {
	for _, id := range col.Units {
		u := c.Game.Unit(id)
		if u == nil || u.ID == teacher.ID {
			continue
		}
		if _, ok := trainable[u.Type]; ok || u.Type == units.TypeFreeColonist {
			return u
		}
	}
	return nil
}

// repairShips patches up the damaged ships laid up in the colony's docks.
func (c *cascade) repairShips(col *social.Colony, cs *changes.Set) {
	for _, ship := range c.Game.NavalUnitsIn(col) {
		if !ship.Damaged() {
			continue
		}
		if c.repair(ship) {
			c.tell(cs, col.Owner, changes.MessageInfo, "model.unit.repaired",
				"The %s has been repaired in %s", ship.UnitType().Name, col.Name)
		}
		c.Game.UpdateUnit(ship, cs)
	}
}

// repair mends a ship and reports whether it is seaworthy again.
func (c *cascade) repair(ship *units.Unit) bool {
	full := ship.UnitType().HitPoints
	ship.HitPoints = min(ship.HitPoints+ShipRepairPerTurn, full)
	if ship.HitPoints < full {
		return false
	}
	ship.State = units.StateActive
	return true
}
