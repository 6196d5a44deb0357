package economy

// MarketEntry is the trading-post state for one goods type.
type MarketEntry struct {
	Goods     GoodsType `json:"goods"`
	BasePrice int       `json:"base_price"` // Price the market drifts back to
	Price     int       `json:"price"`      // Current buy price per unit
	Spread    int       `json:"spread"`     // Sell price = Price - Spread
	Traded    int       `json:"traded"`     // Net units sold into the market since last recovery
}

// SellPrice is what the market pays per unit.
func (e *MarketEntry) SellPrice() int {
	return max(1, e.Price-e.Spread)
}

// Market is one player's view of the overseas trading post.
type Market struct {
	Entries [NumGoods]*MarketEntry `json:"entries"`
}

var basePrices = [NumGoods]int{
	GoodsFood:       2,
	GoodsSugar:      4,
	GoodsTobacco:    5,
	GoodsCotton:     3,
	GoodsFurs:       5,
	GoodsLumber:     1,
	GoodsOre:        3,
	GoodsSilver:     19,
	GoodsHorses:     2,
	GoodsRum:        11,
	GoodsCigars:     11,
	GoodsCloth:      11,
	GoodsCoats:      11,
	GoodsTradeGoods: 2,
	GoodsTools:      2,
	GoodsMuskets:    3,
}

// BasePrice is the opening trading-post price for g.
func BasePrice(g GoodsType) int {
	return basePrices[g]
}

// NewMarket creates a market with base prices for all tradeable goods.
func NewMarket() *Market {
	m := &Market{}
	for g := range NumGoods {
		gt := GoodsType(g)
		if !gt.Tradeable() {
			continue
		}
		m.Entries[g] = &MarketEntry{
			Goods:     gt,
			BasePrice: basePrices[g],
			Price:     basePrices[g],
			Spread:    1,
		}
	}
	return m
}

// CostToBuy returns the gold needed to buy amount units of g, or -1 if the
// goods cannot be bought.
func (m *Market) CostToBuy(g GoodsType, amount int) int {
	e := m.Entries[g]
	if e == nil {
		return -1
	}
	return e.Price * amount
}

// SalePrice returns the gold paid for selling amount units of g.
func (m *Market) SalePrice(g GoodsType, amount int) int {
	e := m.Entries[g]
	if e == nil {
		return 0
	}
	return e.SellPrice() * amount
}

// Record notes a completed trade; positive amounts were sold into the market.
func (m *Market) Record(g GoodsType, amount int) {
	e := m.Entries[g]
	if e == nil {
		return
	}
	e.Traded += amount
	e.ResolvePrice()
}

// ResolvePrice moves the price against the net volume traded. Every full
// cargo slot sold lowers the price by one; every slot bought raises it.
func (e *MarketEntry) ResolvePrice() {
	price := e.BasePrice - e.Traded/CargoSlot

	// Price bounded by a floor and a ceiling around the base price.
	floor := max(1, e.BasePrice/2)
	ceiling := e.BasePrice*2 + 1
	e.Price = min(max(price, floor), ceiling)
}

// Recover lets every entry forget part of its trading pressure. Called once
// per turn for each trading post.
func (m *Market) Recover() {
	for _, e := range m.Entries {
		if e == nil {
			continue
		}
		e.Traded -= e.Traded / 10
		if e.Traded > -CargoSlot && e.Traded < CargoSlot {
			e.Traded = 0
		}
		e.ResolvePrice()
	}
}
