// Package engine implements the matching engine: the sole write entry
// point into the book. Each submitted order is validated, inserted,
// and fully reconciled before the next one is accepted.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchbook/domain/book"
	"matchbook/domain/tape"
	"matchbook/infra/sequence"
)

// Config carries the per-instrument parameters. TickSize <= 1 disables
// alignment checks.
type Config struct {
	Symbol   string
	TickSize int64
}

// QuoteLevel is one side of a level-one quote: best limit price and
// the total quantity resting at it.
type QuoteLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

// Quote is the level-one view published after every submission.
type Quote struct {
	Symbol string      `json:"symbol"`
	Bid    *QuoteLevel `json:"bid,omitempty"`
	Ask    *QuoteLevel `json:"ask,omitempty"`
	Last   int64       `json:"last,omitempty"`
	Time   time.Time   `json:"ts"`
}

// Engine owns the order book and the time-of-sales tape. All access
// is serialized through one mutex held for the whole submit+reconcile,
// so no two orders are ever mid-reconciliation concurrently.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	book      *book.OrderBook
	tape      *tape.Tape
	seq       *sequence.Sequencer
	tradeSeq  uint64
	lastPrice int64
	logger    *zap.Logger

	onTrade func(tape.Entry) // synchronous delivery hook (outbox)
	trades  chan tape.Entry  // lossy display stream
	updates chan Quote       // lossy display stream

	now func() time.Time
}

func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		book:    book.NewOrderBook(),
		tape:    tape.New(),
		seq:     sequence.New(0),
		logger:  logger,
		trades:  make(chan tape.Entry, 64),
		updates: make(chan Quote, 64),
		now:     time.Now,
	}
}

// SetTradeHook registers a synchronous per-trade callback, invoked
// under the engine lock in execution order. Must be set before the
// first Submit.
func (e *Engine) SetTradeHook(fn func(tape.Entry)) { e.onTrade = fn }

func (e *Engine) Symbol() string  { return e.cfg.Symbol }
func (e *Engine) TickSize() int64 { return e.cfg.TickSize }

// Updates streams level-one quotes. The channel is buffered and
// updates are dropped when no one keeps up; consumers that need every
// trade use the tape or the trade hook.
func (e *Engine) Updates() <-chan Quote { return e.updates }

// TradeStream streams executed trades for display. Lossy, like
// Updates.
func (e *Engine) TradeStream() <-chan tape.Entry { return e.trades }

// Submit validates an order, inserts it into the book, and runs
// reconciliation to completion. It is the only mutating entry point.
func (e *Engine) Submit(o book.Order) error {
	if err := e.validate(&o); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	o.Seq = e.seq.Next()
	if o.Type == book.Market {
		o.Price = 0 // price is ignored for market orders
	}
	resting := o
	e.book.Add(&resting)
	e.reconcile()
	e.publishQuote()
	return nil
}

func (e *Engine) validate(o *book.Order) error {
	if o.Side != book.Buy && o.Side != book.Sell {
		return fmt.Errorf("%w: %d", ErrInvalidSide, o.Side)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveQty, o.Qty)
	}
	if o.Type == book.Limit {
		if o.Price <= 0 {
			return ErrMissingPrice
		}
		if e.cfg.TickSize > 1 && o.Price%e.cfg.TickSize != 0 {
			return fmt.Errorf("%w: price %d, tick %d", ErrPriceNotAligned, o.Price, e.cfg.TickSize)
		}
	}
	return nil
}

// reconcile matches the best buyer against the sell queue until no
// cross remains. The "next buyer" step is an explicit outer loop, not
// recursion, so adversarial sequences cannot grow the call stack.
func (e *Engine) reconcile() {
	bids, asks := e.book.Bids, e.book.Asks
	for {
		buyer := bids.PeekBest()
		if buyer == nil {
			return
		}
		// remaining is a local counter; the buyer's resting quantity
		// is only written back once its fate for this pass is known.
		remaining := buyer.Qty
		for remaining > 0 {
			seller := asks.PeekBest()
			if seller == nil {
				break
			}
			price, ok := e.crossPrice(buyer, seller)
			if !ok {
				break
			}
			qty := min(remaining, seller.Qty)
			e.execute(price, qty, buyer, seller)
			remaining -= qty
			if qty == seller.Qty {
				asks.PopBest()
			} else {
				asks.ReduceBest(qty)
			}
		}

		switch {
		case remaining == 0:
			// Buyer fully filled; the next buyer may cross too.
			bids.PopBest()
		case remaining < buyer.Qty:
			bids.ReduceBest(buyer.Qty - remaining)
			return
		default:
			// No fill at all: the sorted sell queue guarantees no
			// deeper seller can be cheaper, and no deeper buyer can
			// be more aggressive.
			return
		}
	}
}

// crossPrice decides whether the pair can trade and at what price.
// The passive side (earlier arrival) sets the price; market orders
// are infinitely aggressive and never set it. A market-market pair
// needs a reference price and cannot trade without one.
func (e *Engine) crossPrice(buyer, seller *book.Order) (int64, bool) {
	buyMkt := buyer.Type == book.Market
	sellMkt := seller.Type == book.Market
	switch {
	case buyMkt && sellMkt:
		return e.referencePrice()
	case buyMkt:
		return seller.Price, true
	case sellMkt:
		return buyer.Price, true
	case buyer.Price < seller.Price:
		return 0, false
	case buyer.Seq < seller.Seq:
		return buyer.Price, true
	default:
		return seller.Price, true
	}
}

// referencePrice prices a market-market cross: the last trade if one
// printed, otherwise the best limit price anywhere in the book. With
// no limit order in the book at all there is no price formation and
// the pair waits.
func (e *Engine) referencePrice() (int64, bool) {
	if e.lastPrice != 0 {
		return e.lastPrice, true
	}
	if p, _, ok := e.book.Asks.BestLimit(); ok {
		return p, true
	}
	if p, _, ok := e.book.Bids.BestLimit(); ok {
		return p, true
	}
	return 0, false
}

func (e *Engine) execute(price, qty int64, buyer, seller *book.Order) {
	e.tradeSeq++
	entry := tape.Entry{
		TradeID:    uuid.NewString(),
		Seq:        e.tradeSeq,
		Time:       e.now(),
		Symbol:     e.cfg.Symbol,
		Price:      price,
		Qty:        qty,
		BuyTrader:  buyer.Trader,
		SellTrader: seller.Trader,
	}
	e.tape.Append(entry)
	e.lastPrice = price
	if e.onTrade != nil {
		e.onTrade(entry)
	}
	select {
	case e.trades <- entry:
	default:
	}
	e.logger.Debug("trade executed",
		zap.Uint64("seq", entry.Seq),
		zap.Int64("price", price),
		zap.Int64("qty", qty),
		zap.String("buyer", buyer.Trader),
		zap.String("seller", seller.Trader),
	)
}

func (e *Engine) publishQuote() {
	select {
	case e.updates <- e.quoteLocked():
	default:
	}
}

func (e *Engine) quoteLocked() Quote {
	q := Quote{Symbol: e.cfg.Symbol, Last: e.lastPrice, Time: e.now()}
	if price, qty, ok := e.book.Bids.BestLimit(); ok {
		q.Bid = &QuoteLevel{Price: price, Qty: qty}
	}
	if price, qty, ok := e.book.Asks.BestLimit(); ok {
		q.Ask = &QuoteLevel{Price: price, Qty: qty}
	}
	return q
}

// BestBid returns the highest-priority resting buy order.
func (e *Engine) BestBid() (book.Order, bool) {
	return e.bestOf(book.Buy)
}

// BestAsk returns the highest-priority resting sell order.
func (e *Engine) BestAsk() (book.Order, bool) {
	return e.bestOf(book.Sell)
}

func (e *Engine) bestOf(s book.Side) (book.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.book.BestOf(s)
	if o == nil {
		return book.Order{}, false
	}
	return o.Copy(), true
}

// Depth returns the level-two view of one side.
func (e *Engine) Depth(s book.Side) []book.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.SideSnapshot(s)
}

// Trades returns a snapshot of the time-of-sales tape.
func (e *Engine) Trades() []tape.Entry {
	return e.tape.All()
}

// LastPrice is the most recent execution price, zero before the first
// trade.
func (e *Engine) LastPrice() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPrice
}

// Quote builds the current level-one quote.
func (e *Engine) Quote() Quote {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quoteLocked()
}
