package engine

import (
	"errors"
	"fmt"
)

// ErrAdvancedTwice is raised when an entity's turn is advanced a second
// time within one tick.
var ErrAdvancedTwice = errors.New("entity advanced twice in one turn")

// EntityKind tags the entity kinds the cascade advances.
type EntityKind uint8

const (
	EntityWorld EntityKind = iota
	EntityPlayer
	EntityColony
	EntityNativeSettlement
	EntityBuilding
	EntityUnit
	EntityTradingPost
)

var entityNames = [...]string{"world", "player", "colony", "native-settlement", "building", "unit", "trading-post"}

func (k EntityKind) String() string {
	if int(k) < len(entityNames) {
		return entityNames[k]
	}
	return fmt.Sprintf("entity(%d)", k)
}

// EntityRef names one advanced entity.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uint64     `json:"id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ledger records which entities have been advanced during one tick.
type ledger map[EntityRef]struct{}

// enter marks r as advanced. Entering twice panics.
func (l ledger) enter(r EntityRef) {
	if _, ok := l[r]; ok {
		panic(fmt.Errorf("%w: %s", ErrAdvancedTwice, r))
	}
	l[r] = struct{}{}
}

func (l ledger) done(r EntityRef) bool {
	_, ok := l[r]
	return ok
}
