// Package feed simulates the external order flow: a fixed table of
// traders submits randomized limit and market orders on a cadence.
// The engine treats it like any other collaborator; it only ever
// calls Submit.
package feed

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"matchbook/domain/book"
	"matchbook/engine"
)

// Accounts is the simulated trader float. Balances only weight order
// sizes here; bookkeeping them stays outside the core.
var Accounts = map[string]int64{
	"p1":  40000,
	"p2":  10000,
	"p3":  2000,
	"p4":  0,
	"p5":  2000,
	"p6":  5000,
	"p7":  1000,
	"p8":  0,
	"p9":  10000,
	"p10": 5000,
}

const (
	seedPrice  = 40 // reference before any trade prints
	rangeTicks = 3
	marketOdds = 8 // one in marketOdds orders is a market order
)

type Feed struct {
	engine   *engine.Engine
	interval time.Duration
	rng      *rand.Rand
	logger   *zap.Logger
	traders  []string
}

func New(eng *engine.Engine, interval time.Duration, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	traders := make([]string, 0, len(Accounts))
	for id := range Accounts {
		traders = append(traders, id)
	}
	return &Feed{
		engine:   eng,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
		traders:  traders,
	}
}

// Run submits one order per tick until the context ends.
func (f *Feed) Run(ctx context.Context) {
	f.logger.Info("order feed started", zap.Duration("interval", f.interval))
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.placeOne()
		}
	}
}

func (f *Feed) placeOne() {
	trader := f.traders[f.rng.Intn(len(f.traders))]
	order := book.Order{
		Trader: trader,
		Qty:    f.quantityFor(trader),
	}
	if f.rng.Intn(2) == 0 {
		order.Side = book.Buy
	} else {
		order.Side = book.Sell
	}
	if f.rng.Intn(marketOdds) == 0 {
		order.Type = book.Market
	} else {
		order.Type = book.Limit
		order.Price = f.priceFor(order.Side)
	}

	if err := f.engine.Submit(order); err != nil {
		f.logger.Warn("feed order rejected", zap.Error(err))
	}
}

// quantityFor scales order size with the trader's float, floored so
// even empty accounts keep the tape moving.
func (f *Feed) quantityFor(trader string) int64 {
	base := Accounts[trader] / 40
	if base < 100 {
		base = 100
	}
	return (1 + f.rng.Int63n(base/100+1)) * 100
}

// priceFor prices around the last trade: mostly a few ticks behind
// the touch (resting), sometimes through it (crossing).
func (f *Feed) priceFor(side book.Side) int64 {
	tick := f.engine.TickSize()
	if tick <= 0 {
		tick = 1
	}
	ref := f.engine.LastPrice()
	if ref == 0 {
		ref = seedPrice * tick
	}
	delta := f.rng.Int63n(rangeTicks+1) * tick
	if f.rng.Intn(4) == 0 {
		delta = -delta // price through the touch
	}
	var price int64
	if side == book.Buy {
		price = ref - delta
	} else {
		price = ref + delta
	}
	if price < tick {
		price = tick
	}
	// snap to tick; ref may drift off-grid when tick > 1
	return price - price%tick
}
