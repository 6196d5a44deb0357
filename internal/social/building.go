package social

import (
	"errors"
	"fmt"

	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/units"
)

// ErrUnknownBuilding is raised for a building type missing from the catalogue.
var ErrUnknownBuilding = errors.New("unknown building type")

// BuildingType identifies a kind of colony work site.
type BuildingType uint8

const (
	BuildingTownHall BuildingType = iota
	BuildingCarpenterHouse
	BuildingBlacksmithHouse
	BuildingTobacconistHouse
	BuildingWeaverHouse
	BuildingDistillerHouse
	BuildingFurTraderHouse
	BuildingArmory
	BuildingChurch
	BuildingSchoolhouse
	BuildingDocks
	BuildingWarehouse
	BuildingStockade
	BuildingFort
	BuildingFortress
)

// BuildingInfo is the catalogue entry for a building type.
type BuildingInfo struct {
	Name           string
	Input          economy.GoodsType
	Output         economy.GoodsType
	Produces       bool
	Workplaces     int
	Hammers        int // Construction cost
	Tools          int
	MinPopulation  int
	Requires       BuildingType // Must already stand, if HasRequirement
	HasRequirement bool
	Defence        int  // Percentage bonus for defenders
	Bombard        bool // Colony may fire on adjacent enemy ships
	Damageable     bool // Can be wrecked by pillage
}

var buildings = map[BuildingType]BuildingInfo{
	BuildingTownHall: {Name: "Town Hall", Workplaces: 3},
	BuildingCarpenterHouse: {Name: "Carpenter's House", Input: economy.GoodsLumber, Output: economy.GoodsHammers,
		Produces: true, Workplaces: 3},
	BuildingBlacksmithHouse: {Name: "Blacksmith's House", Input: economy.GoodsOre, Output: economy.GoodsTools,
		Produces: true, Workplaces: 3, Damageable: true},
	BuildingTobacconistHouse: {Name: "Tobacconist's House", Input: economy.GoodsTobacco, Output: economy.GoodsCigars,
		Produces: true, Workplaces: 3, Damageable: true},
	BuildingWeaverHouse: {Name: "Weaver's House", Input: economy.GoodsCotton, Output: economy.GoodsCloth,
		Produces: true, Workplaces: 3, Damageable: true},
	BuildingDistillerHouse: {Name: "Distiller's House", Input: economy.GoodsSugar, Output: economy.GoodsRum,
		Produces: true, Workplaces: 3, Damageable: true},
	BuildingFurTraderHouse: {Name: "Fur Trader's House", Input: economy.GoodsFurs, Output: economy.GoodsCoats,
		Produces: true, Workplaces: 3, Damageable: true},
	BuildingArmory: {Name: "Armory", Input: economy.GoodsTools, Output: economy.GoodsMuskets,
		Produces: true, Workplaces: 3, Hammers: 52, MinPopulation: 1, Damageable: true},
	BuildingChurch: {Name: "Church", Workplaces: 3, Hammers: 64, MinPopulation: 3, Damageable: true},
	BuildingSchoolhouse: {Name: "Schoolhouse", Workplaces: 1, Hammers: 64, Tools: 30, MinPopulation: 4,
		Damageable: true},
	BuildingDocks: {Name: "Docks", Hammers: 52, MinPopulation: 1, Damageable: true},
	BuildingWarehouse: {Name: "Warehouse", Hammers: 80, MinPopulation: 1, Damageable: true},
	BuildingStockade: {Name: "Stockade", Hammers: 64, MinPopulation: 3, Defence: 100},
	BuildingFort: {Name: "Fort", Hammers: 120, Tools: 100, MinPopulation: 4, Defence: 150, Bombard: true,
		Requires: BuildingStockade, HasRequirement: true},
	BuildingFortress: {Name: "Fortress", Hammers: 320, Tools: 100, MinPopulation: 8, Defence: 200, Bombard: true,
		Requires: BuildingFort, HasRequirement: true},
}

// Info returns the catalogue entry for t. Unknown types panic.
func (t BuildingType) Info() BuildingInfo {
	info, ok := buildings[t]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownBuilding, t))
	}
	return info
}

func (t BuildingType) String() string {
	if info, ok := buildings[t]; ok {
		return info.Name
	}
	return fmt.Sprintf("building(%d)", t)
}

// StartingBuildings is what a newly founded colony stands up with.
var StartingBuildings = []BuildingType{
	BuildingTownHall,
	BuildingCarpenterHouse,
	BuildingBlacksmithHouse,
	BuildingTobacconistHouse,
	BuildingWeaverHouse,
	BuildingDistillerHouse,
	BuildingFurTraderHouse,
}

// Building is a work site inside a colony.
type Building struct {
	ID      uint64       `json:"id"`
	Type    BuildingType `json:"type"`
	Workers []units.ID   `json:"workers"`
}

// BaseProductionPerWorker is the output of a non-expert worker per turn.
const BaseProductionPerWorker = 3

// TeachingTurns is how long a schoolhouse teacher needs to train a student.
const TeachingTurns = 4
