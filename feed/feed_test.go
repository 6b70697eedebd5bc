package feed

import (
	"testing"
	"time"

	"matchbook/domain/book"
	"matchbook/engine"
)

func TestFeedOrdersAreAlwaysValid(t *testing.T) {
	eng := engine.New(engine.Config{Symbol: "ACME", TickSize: 1}, nil)
	f := New(eng, time.Second, nil)

	for i := 0; i < 500; i++ {
		f.placeOne()
	}
	// every placed order either rested or traded; rejects would have
	// shown up as warnings and, more to the point, missing liquidity
	total := int64(0)
	for _, tr := range eng.Trades() {
		total += tr.Qty
	}
	depth := len(eng.Depth(book.Buy)) + len(eng.Depth(book.Sell))
	if total == 0 && depth == 0 {
		t.Fatal("500 orders produced neither trades nor resting depth")
	}
}

func TestQuantityIsPositiveAndRound(t *testing.T) {
	eng := engine.New(engine.Config{Symbol: "ACME", TickSize: 1}, nil)
	f := New(eng, time.Second, nil)

	for trader := range Accounts {
		for i := 0; i < 20; i++ {
			qty := f.quantityFor(trader)
			if qty <= 0 || qty%100 != 0 {
				t.Fatalf("trader %s produced qty %d", trader, qty)
			}
		}
	}
}

func TestPricesAlignToTick(t *testing.T) {
	eng := engine.New(engine.Config{Symbol: "ACME", TickSize: 5}, nil)
	f := New(eng, time.Second, nil)

	for i := 0; i < 200; i++ {
		f.placeOne()
	}
	// with tick 5 every accepted limit order must be grid-aligned;
	// Submit would have rejected anything else and left gaps
	for _, o := range append(eng.Depth(book.Buy), eng.Depth(book.Sell)...) {
		if o.Price%5 != 0 {
			t.Fatalf("resting order off-grid: %+v", o)
		}
	}
}
