package economy

import "testing"

func TestInventoryRemoveClamps(t *testing.T) {
	var inv Inventory
	inv.Add(GoodsMuskets, 30)
	if got := inv.Remove(GoodsMuskets, 50); got != 30 {
		t.Fatalf("removed %d, want 30", got)
	}
	if !inv.IsEmpty() {
		t.Fatalf("inventory should be empty: %v", inv)
	}
}

func TestInventoryTotalsSkipFood(t *testing.T) {
	var inv Inventory
	inv.Add(GoodsFood, 500)
	inv.Add(GoodsFurs, 120)
	inv.Add(GoodsTools, 20)
	if got := inv.Total(); got != 140 {
		t.Fatalf("total = %d, want 140", got)
	}
	if got := inv.Slots(); got != 8 {
		t.Fatalf("slots = %d, want 8", got)
	}
}

func TestParseGoodsRoundTrip(t *testing.T) {
	for g := range NumGoods {
		name := GoodsType(g).String()
		back, ok := ParseGoods(name)
		if !ok || back != GoodsType(g) {
			t.Fatalf("ParseGoods(%q) = %v, %v", name, back, ok)
		}
	}
}

func TestMarketPriceFallsWithSalesAndRecovers(t *testing.T) {
	m := NewMarket()
	base := m.Entries[GoodsFurs].Price
	m.Record(GoodsFurs, 3*CargoSlot)
	if got := m.Entries[GoodsFurs].Price; got != base-3 {
		t.Fatalf("price after sales = %d, want %d", got, base-3)
	}
	for range 50 {
		m.Recover()
	}
	if got := m.Entries[GoodsFurs].Price; got != base {
		t.Fatalf("price after recovery = %d, want %d", got, base)
	}
	if m.CostToBuy(GoodsHammers, 1) != -1 {
		t.Fatalf("hammers should not be buyable")
	}
}
