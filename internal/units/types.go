// Package units holds the unit type catalogue, equipment roles, and the
// plain unit record the server mutates.
package units

import (
	"errors"
	"fmt"

	"github.com/talgya/colonyserver/internal/economy"
)

// ErrUnknownType is raised when code refers to a unit type missing from the catalogue.
var ErrUnknownType = errors.New("unknown unit type")

// TypeID identifies an entry of the unit type catalogue.
type TypeID uint8

const (
	TypeNone TypeID = iota
	TypeFreeColonist
	TypeIndenturedServant
	TypePettyCriminal
	TypeExpertFarmer
	TypeExpertFurTrapper
	TypeMasterCarpenter
	TypeMasterBlacksmith
	TypeElderStatesman
	TypeFirmPreacher
	TypeVeteranSoldier
	TypeHardyPioneer
	TypeSeasonedScout
	TypeJesuitMissionary
	TypeIndianConvert
	TypeBrave
	TypeKingsRegular
	TypeArtillery
	TypeDamagedArtillery
	TypeCaravel
	TypeMerchantman
	TypeGalleon
	TypePrivateer
	TypeFrigate
	TypeManOWar
	TypeTreasureTrain
	TypeWagonTrain
)

// Ability is a bit set of special rules a unit type follows.
type Ability uint16

const (
	AbilityNaval           Ability = 1 << iota // Moves on water, carries cargo
	AbilityMultipleAttacks                     // May attack again while it has moves
	AbilityPiracy                              // Attacks without declaring war
	AbilityCanBeCaptured                       // Changes hands instead of dying
	AbilityCanBeEquipped                       // May take soldier, dragoon, pioneer roles
	AbilityExpertSoldier                       // Bonus when armed
	AbilityNative                              // Belongs to a native tribe
	AbilityRoyal                               // Part of the expeditionary force
	AbilityCarryTreasure                       // Galleons only
	AbilityBornInColony                        // Produced by colony food growth
)

// UnitType is one catalogue entry.
type UnitType struct {
	ID          TypeID
	Name        string
	Offence     int
	Defence     int
	Moves       int // Move points per turn
	LineOfSight int
	Price       int // Trading-post recruit or purchase price, 0 if not for sale
	Space       int // Cargo holds
	HitPoints   int // Naval units only
	Skill       int
	Expertise   economy.GoodsType
	IsExpert    bool
	Abilities   Ability

	PromoteTo TypeID // Type after a victory, if any
	DemoteTo  TypeID // Type after a defeat, if any
	CaptureAs TypeID // Type a capturing player receives, if different
}

// Has reports whether the type carries every ability in a.
func (t *UnitType) Has(a Ability) bool {
	return t.Abilities&a == a
}

var catalogue = map[TypeID]*UnitType{
	TypeFreeColonist: {Name: "Free Colonist", Defence: 1, Moves: 3, LineOfSight: 1, Price: 600,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped | AbilityBornInColony, PromoteTo: TypeVeteranSoldier},
	TypeIndenturedServant: {Name: "Indentured Servant", Defence: 1, Moves: 3, LineOfSight: 1, Price: 400,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, PromoteTo: TypeFreeColonist},
	TypePettyCriminal: {Name: "Petty Criminal", Defence: 1, Moves: 3, LineOfSight: 1, Price: 300, Skill: -2,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, PromoteTo: TypeIndenturedServant},
	TypeExpertFarmer: {Name: "Expert Farmer", Defence: 1, Moves: 3, LineOfSight: 1, Price: 1100, Skill: 1,
		Expertise: economy.GoodsFood, IsExpert: true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeExpertFurTrapper: {Name: "Expert Fur Trapper", Defence: 1, Moves: 3, LineOfSight: 1, Price: 2000, Skill: 2,
		Expertise: economy.GoodsFurs, IsExpert: true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeMasterCarpenter: {Name: "Master Carpenter", Defence: 1, Moves: 3, LineOfSight: 1, Price: 2500, Skill: 3,
		Expertise: economy.GoodsHammers, IsExpert: true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeMasterBlacksmith: {Name: "Master Blacksmith", Defence: 1, Moves: 3, LineOfSight: 1, Price: 2000, Skill: 2,
		Expertise: economy.GoodsTools, IsExpert: true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeElderStatesman: {Name: "Elder Statesman", Defence: 1, Moves: 3, LineOfSight: 1, Price: 1900, Skill: 3,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeFirmPreacher: {Name: "Firm Preacher", Defence: 1, Moves: 3, LineOfSight: 1, Price: 1500, Skill: 3,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeVeteranSoldier: {Name: "Veteran Soldier", Defence: 1, Moves: 3, LineOfSight: 1, Price: 2000, Skill: 2,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped | AbilityExpertSoldier, CaptureAs: TypeFreeColonist},
	TypeHardyPioneer: {Name: "Hardy Pioneer", Defence: 1, Moves: 3, LineOfSight: 1, Price: 1200, Skill: 1,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeSeasonedScout: {Name: "Seasoned Scout", Defence: 1, Moves: 3, LineOfSight: 2, Price: 600, Skill: 2,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeJesuitMissionary: {Name: "Jesuit Missionary", Defence: 1, Moves: 3, LineOfSight: 1, Price: 0, Skill: 3,
		IsExpert:  true,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped, CaptureAs: TypeFreeColonist},
	TypeIndianConvert: {Name: "Indian Convert", Defence: 1, Moves: 3, LineOfSight: 1,
		Abilities: AbilityCanBeCaptured | AbilityCanBeEquipped},
	TypeBrave: {Name: "Brave", Offence: 1, Defence: 1, Moves: 3, LineOfSight: 1,
		Abilities: AbilityCanBeEquipped | AbilityNative, CaptureAs: TypeIndianConvert},
	TypeKingsRegular: {Name: "King's Regular", Offence: 4, Defence: 2, Moves: 3, LineOfSight: 1,
		Abilities: AbilityCanBeEquipped | AbilityExpertSoldier | AbilityRoyal | AbilityMultipleAttacks},
	TypeArtillery: {Name: "Artillery", Offence: 7, Defence: 5, Moves: 3, LineOfSight: 1, Price: 500,
		DemoteTo: TypeDamagedArtillery},
	TypeDamagedArtillery: {Name: "Damaged Artillery", Offence: 5, Defence: 3, Moves: 3, LineOfSight: 1},
	TypeCaravel: {Name: "Caravel", Defence: 2, Moves: 12, LineOfSight: 1, Price: 1000, Space: 2, HitPoints: 6,
		Abilities: AbilityNaval},
	TypeMerchantman: {Name: "Merchantman", Defence: 6, Moves: 15, LineOfSight: 1, Price: 2000, Space: 4, HitPoints: 6,
		Abilities: AbilityNaval},
	TypeGalleon: {Name: "Galleon", Defence: 10, Moves: 18, LineOfSight: 1, Price: 3000, Space: 6, HitPoints: 10,
		Abilities: AbilityNaval | AbilityCarryTreasure},
	TypePrivateer: {Name: "Privateer", Offence: 8, Defence: 8, Moves: 24, LineOfSight: 2, Price: 2000, Space: 2, HitPoints: 8,
		Abilities: AbilityNaval | AbilityPiracy},
	TypeFrigate: {Name: "Frigate", Offence: 16, Defence: 16, Moves: 18, LineOfSight: 2, Price: 5000, Space: 4, HitPoints: 12,
		Abilities: AbilityNaval},
	TypeManOWar: {Name: "Man-O-War", Offence: 24, Defence: 24, Moves: 18, LineOfSight: 2, Space: 6, HitPoints: 20,
		Abilities: AbilityNaval | AbilityRoyal | AbilityMultipleAttacks},
	TypeTreasureTrain: {Name: "Treasure Train", Moves: 1, LineOfSight: 1,
		Abilities: AbilityCanBeCaptured},
	TypeWagonTrain: {Name: "Wagon Train", Defence: 1, Moves: 6, LineOfSight: 1, Price: 500, Space: 2,
		Abilities: AbilityCanBeCaptured},
}

func init() {
	for id, t := range catalogue {
		t.ID = id
	}
}

// Lookup returns the catalogue entry for id. An unknown id is a programming
// error and panics.
func Lookup(id TypeID) *UnitType {
	t, ok := catalogue[id]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownType, id))
	}
	return t
}

// ParseType finds a unit type by its display name.
func ParseType(name string) (TypeID, bool) {
	for id, t := range catalogue {
		if t.Name == name {
			return id, true
		}
	}
	return TypeNone, false
}

func (id TypeID) String() string {
	if t, ok := catalogue[id]; ok {
		return t.Name
	}
	return fmt.Sprintf("type(%d)", id)
}
