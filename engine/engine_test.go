package engine

import (
	"errors"
	"testing"

	"matchbook/domain/book"
	"matchbook/domain/tape"
)

func newTestEngine() *Engine {
	return New(Config{Symbol: "ACME", TickSize: 1}, nil)
}

func submit(t *testing.T, e *Engine, o book.Order) {
	t.Helper()
	if err := e.Submit(o); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}

func buy(price, qty int64, trader string) book.Order {
	return book.Order{Side: book.Buy, Type: book.Limit, Price: price, Qty: qty, Trader: trader}
}

func sell(price, qty int64, trader string) book.Order {
	return book.Order{Side: book.Sell, Type: book.Limit, Price: price, Qty: qty, Trader: trader}
}

// --- Validation ---

func TestRejectsLimitWithoutPrice(t *testing.T) {
	e := newTestEngine()
	err := e.Submit(book.Order{Side: book.Buy, Type: book.Limit, Qty: 100, Trader: "p1"})
	if !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("expected ErrMissingPrice, got %v", err)
	}
}

func TestRejectsNonPositiveQuantity(t *testing.T) {
	e := newTestEngine()
	for _, qty := range []int64{0, -5} {
		err := e.Submit(buy(50, qty, "p1"))
		if !errors.Is(err, ErrNonPositiveQty) {
			t.Fatalf("qty %d: expected ErrNonPositiveQty, got %v", qty, err)
		}
	}
}

func TestRejectsInvalidSide(t *testing.T) {
	e := newTestEngine()
	err := e.Submit(book.Order{Side: book.Side(7), Type: book.Limit, Price: 50, Qty: 1})
	if !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestRejectsMisalignedPrice(t *testing.T) {
	e := New(Config{Symbol: "ACME", TickSize: 5}, nil)
	err := e.Submit(buy(52, 100, "p1"))
	if !errors.Is(err, ErrPriceNotAligned) {
		t.Fatalf("expected ErrPriceNotAligned, got %v", err)
	}
	if err := e.Submit(buy(55, 100, "p1")); err != nil {
		t.Fatalf("aligned price rejected: %v", err)
	}
}

func TestRejectedOrderNeverEntersBook(t *testing.T) {
	e := newTestEngine()
	_ = e.Submit(book.Order{Side: book.Buy, Type: book.Limit, Qty: 100})
	if _, ok := e.BestBid(); ok {
		t.Fatal("rejected order must not rest")
	}
}

func TestMarketOrderPriceIgnored(t *testing.T) {
	e := newTestEngine()
	// a market order with a stray price must not use it
	submit(t, e, book.Order{Side: book.Sell, Type: book.Market, Price: 999, Qty: 50, Trader: "s1"})
	best, ok := e.BestAsk()
	if !ok || best.Price != 0 {
		t.Fatalf("market order price must be cleared, got %+v", best)
	}
}

// --- Matching scenarios ---

func TestScenarioExactCross(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 100, "b1"))
	submit(t, e, sell(50, 100, "s1"))

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Price != 50 || tr.Qty != 100 || tr.BuyTrader != "b1" || tr.SellTrader != "s1" {
		t.Fatalf("wrong trade: %+v", tr)
	}
	if _, ok := e.BestBid(); ok {
		t.Error("bid side must be empty")
	}
	if _, ok := e.BestAsk(); ok {
		t.Error("ask side must be empty")
	}
}

func TestScenarioPartialSellRests(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 100, "b1"))
	submit(t, e, sell(48, 150, "s1"))

	trades := e.Trades()
	if len(trades) != 1 || trades[0].Qty != 100 {
		t.Fatalf("expected one 100-lot trade, got %+v", trades)
	}
	// passive resting buyer sets the price
	if trades[0].Price != 50 {
		t.Errorf("expected trade at the resting buyer's 50, got %d", trades[0].Price)
	}
	if _, ok := e.BestBid(); ok {
		t.Error("buyer was fully filled and must be popped")
	}
	ask, ok := e.BestAsk()
	if !ok || ask.Price != 48 || ask.Qty != 50 {
		t.Fatalf("expected resting 50@48, got %+v ok=%v", ask, ok)
	}
}

func TestScenarioSweepTwoLevels(t *testing.T) {
	e := newTestEngine()
	submit(t, e, sell(40, 50, "s1"))
	submit(t, e, sell(45, 50, "s2"))
	submit(t, e, buy(50, 100, "b1"))

	trades := e.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Price != 40 || trades[0].Qty != 50 {
		t.Errorf("first fill must be 50@40, got %d@%d", trades[0].Qty, trades[0].Price)
	}
	if trades[1].Price != 45 || trades[1].Qty != 50 {
		t.Errorf("second fill must be 50@45, got %d@%d", trades[1].Qty, trades[1].Price)
	}
	if _, ok := e.BestAsk(); ok {
		t.Error("sell side must be swept clean")
	}
	if _, ok := e.BestBid(); ok {
		t.Error("buyer must be fully filled")
	}
}

func TestScenarioNonCrossingRests(t *testing.T) {
	e := newTestEngine()
	submit(t, e, sell(50, 100, "s1"))
	submit(t, e, buy(45, 40, "b1"))

	if len(e.Trades()) != 0 {
		t.Fatal("non-crossing orders must not trade")
	}
	bid, _ := e.BestBid()
	ask, _ := e.BestAsk()
	if bid.Price != 45 || bid.Qty != 40 {
		t.Errorf("expected best bid 40@45, got %+v", bid)
	}
	if ask.Price != 50 || ask.Qty != 100 {
		t.Errorf("expected best ask 100@50, got %+v", ask)
	}
}

func TestScenarioMarketSellHitsRestingBid(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 100, "b1"))
	submit(t, e, book.Order{Side: book.Sell, Type: book.Market, Qty: 100, Trader: "s1"})

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != 50 || trades[0].Qty != 100 {
		t.Fatalf("expected 100 at the resting buyer's 50, got %+v", trades[0])
	}
	if _, ok := e.BestBid(); ok {
		t.Error("bid side must be empty")
	}
	if _, ok := e.BestAsk(); ok {
		t.Error("ask side must be empty")
	}
}

// --- Properties ---

func TestBookNeverCrossedAfterReconcile(t *testing.T) {
	e := newTestEngine()
	orders := []book.Order{
		buy(50, 100, "a"), sell(55, 100, "b"), buy(56, 30, "c"),
		sell(49, 200, "d"), buy(52, 80, "e"), sell(52, 80, "f"),
		buy(44, 10, "g"), sell(61, 500, "h"), buy(61, 500, "i"),
	}
	for _, o := range orders {
		submit(t, e, o)
		bid, okB := e.BestBid()
		ask, okA := e.BestAsk()
		if okB && okA && bid.Price >= ask.Price {
			t.Fatalf("crossed book after submit: bid %d >= ask %d", bid.Price, ask.Price)
		}
	}
}

func TestQuantityConservation(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 70, "b1"))
	submit(t, e, sell(50, 100, "s1"))

	var filled int64
	for _, tr := range e.Trades() {
		filled += tr.Qty
	}
	if filled != 70 {
		t.Fatalf("fills must sum to min(70,100)=70, got %d", filled)
	}
	ask, ok := e.BestAsk()
	if !ok || ask.Qty != 30 {
		t.Fatalf("seller must rest with the 30 leftover, got %+v", ask)
	}
}

func TestPriceTimePriority(t *testing.T) {
	e := newTestEngine()
	submit(t, e, sell(50, 10, "first"))
	submit(t, e, sell(50, 10, "second"))
	submit(t, e, buy(50, 10, "b1"))

	trades := e.Trades()
	if len(trades) != 1 || trades[0].SellTrader != "first" {
		t.Fatalf("earlier order at the same price must fill first, got %+v", trades)
	}
	ask, _ := e.BestAsk()
	if ask.Trader != "second" {
		t.Error("later order must still rest")
	}
}

func TestCascadeAcrossBuyers(t *testing.T) {
	// one large sell must sweep through several resting buyers
	e := newTestEngine()
	submit(t, e, buy(52, 30, "b1"))
	submit(t, e, buy(51, 30, "b2"))
	submit(t, e, buy(50, 30, "b3"))
	submit(t, e, sell(50, 90, "s1"))

	trades := e.Trades()
	if len(trades) != 3 {
		t.Fatalf("expected 3 fills, got %d", len(trades))
	}
	buyers := []string{trades[0].BuyTrader, trades[1].BuyTrader, trades[2].BuyTrader}
	want := []string{"b1", "b2", "b3"}
	for i := range want {
		if buyers[i] != want[i] {
			t.Fatalf("fill order %v, want %v", buyers, want)
		}
	}
	if _, ok := e.BestBid(); ok {
		t.Error("all buyers must be consumed")
	}
	if _, ok := e.BestAsk(); ok {
		t.Error("the sell must be fully filled too")
	}
}

func TestQueriesAreIdempotent(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 100, "b1"))

	a, _ := e.BestBid()
	b, _ := e.BestBid()
	if a != b {
		t.Error("repeated BestBid must return the same value")
	}
	if len(e.Depth(book.Buy)) != 1 || len(e.Depth(book.Buy)) != 1 {
		t.Error("Depth must not mutate the book")
	}
}

func TestMarketPairNeedsReferencePrice(t *testing.T) {
	e := newTestEngine()
	submit(t, e, book.Order{Side: book.Buy, Type: book.Market, Qty: 10, Trader: "b1"})
	submit(t, e, book.Order{Side: book.Sell, Type: book.Market, Qty: 10, Trader: "s1"})

	// no limit ever printed, so the pair cannot be priced
	if len(e.Trades()) != 0 {
		t.Fatal("two market orders with no reference price must not trade")
	}

	// arriving limit liquidity provides a reference for the pair
	submit(t, e, buy(50, 10, "b2"))
	submit(t, e, sell(50, 10, "s2"))

	trades := e.Trades()
	var marketFill bool
	for _, tr := range trades {
		if tr.BuyTrader == "b1" && tr.SellTrader == "s1" && tr.Price == 50 {
			marketFill = true
		}
	}
	if !marketFill {
		t.Fatalf("market pair must print at the reference price, trades: %+v", trades)
	}
}

func TestMarketBuySweepsBook(t *testing.T) {
	e := newTestEngine()
	submit(t, e, sell(40, 50, "s1"))
	submit(t, e, sell(45, 50, "s2"))
	submit(t, e, book.Order{Side: book.Buy, Type: book.Market, Qty: 120, Trader: "b1"})

	trades := e.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(trades))
	}
	if trades[0].Price != 40 || trades[1].Price != 45 {
		t.Errorf("market buy must lift asks cheapest-first, got %+v", trades)
	}
	// unfilled remainder rests at the top of the bid queue
	bid, ok := e.BestBid()
	if !ok || bid.Type != book.Market || bid.Qty != 20 {
		t.Fatalf("expected resting market remainder of 20, got %+v", bid)
	}
}

func TestLastPriceTracksExecutions(t *testing.T) {
	e := newTestEngine()
	if e.LastPrice() != 0 {
		t.Fatal("no trades yet")
	}
	submit(t, e, buy(50, 10, "b1"))
	submit(t, e, sell(50, 10, "s1"))
	if e.LastPrice() != 50 {
		t.Fatalf("expected last price 50, got %d", e.LastPrice())
	}
}

func TestTradeHookSeesEveryFill(t *testing.T) {
	e := newTestEngine()
	var seqs []uint64
	e.SetTradeHook(func(en tape.Entry) { seqs = append(seqs, en.Seq) })

	submit(t, e, sell(40, 50, "s1"))
	submit(t, e, sell(45, 50, "s2"))
	submit(t, e, buy(50, 100, "b1"))

	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("hook must fire per trade in order, got %v", seqs)
	}
}

func TestQuoteAggregatesBestLevel(t *testing.T) {
	e := newTestEngine()
	submit(t, e, buy(50, 100, "b1"))
	submit(t, e, buy(50, 50, "b2"))
	submit(t, e, sell(55, 30, "s1"))

	q := e.Quote()
	if q.Bid == nil || q.Bid.Price != 50 || q.Bid.Qty != 150 {
		t.Fatalf("bid level must aggregate, got %+v", q.Bid)
	}
	if q.Ask == nil || q.Ask.Price != 55 || q.Ask.Qty != 30 {
		t.Fatalf("wrong ask level: %+v", q.Ask)
	}
}
