package combat

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// ErrCannotAttack is returned when a requested attack is not legal. It is
// a normal refusal, reported to the player, not a programming error.
var ErrCannotAttack = errors.New("cannot attack")

// Attack has u attack whatever defends target, letting the model pick the
// outcome.
func (e *Engine) Attack(u *units.Unit, target world.HexCoord, rng *rand.Rand, cs *changes.Set) (Report, error) {
	switch {
	case u.Disposed || u.Location != units.OnTile:
		return Report{}, fmt.Errorf("%w: unit %d is not in the field", ErrCannotAttack, u.ID)
	case !u.IsOffensive():
		return Report{}, fmt.Errorf("%w: %s is not an offensive unit", ErrCannotAttack, u.UnitType().Name)
	case u.MovesLeft <= 0:
		return Report{}, fmt.Errorf("%w: unit %d has no moves left", ErrCannotAttack, u.ID)
	case !world.Adjacent(u.Coord, target):
		return Report{}, fmt.Errorf("%w: %v is not adjacent to %v", ErrCannotAttack, target, u.Coord)
	}
	d := e.game.DefenderAt(target)
	if d == nil || d.Owner == u.Owner {
		return Report{}, fmt.Errorf("%w: nothing hostile at %v", ErrCannotAttack, target)
	}
	if d.IsNaval() != u.IsNaval() {
		return Report{}, fmt.Errorf("%w: ships and land units cannot fight", ErrCannotAttack)
	}
	return e.Resolve(Unit(u), Unit(d), nil, rng, cs), nil
}

// Bombard fires a colony's guns at every enemy ship next to it. Only ships
// of players the colony's owner is at war with are targeted.
func (e *Engine) Bombard(c *social.Colony, rng *rand.Rand, cs *changes.Set) []Report {
	if !c.CanBombard() {
		return nil
	}
	owner := e.game.MustPlayer(c.Owner)
	var reports []Report
	for _, n := range c.Coord.Neighbors() {
		for _, ship := range e.game.UnitsAt(n) {
			if !ship.IsNaval() || ship.Disposed || ship.Location != units.OnTile || ship.Owner == c.Owner || !owner.AtWarWith(ship.Owner) {
				continue
			}
			reports = append(reports, e.Resolve(Settlement(c), Unit(ship), nil, rng, cs))
		}
	}
	return reports
}
