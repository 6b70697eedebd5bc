package book

// OrderBook owns exactly one PriceQueue per side. It has no matching
// logic of its own.
type OrderBook struct {
	Bids *PriceQueue
	Asks *PriceQueue
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		Bids: NewPriceQueue(Buy),
		Asks: NewPriceQueue(Sell),
	}
}

// Add routes an order to its side's queue.
func (b *OrderBook) Add(o *Order) {
	b.Queue(o.Side).Insert(o)
}

func (b *OrderBook) Queue(s Side) *PriceQueue {
	if s == Buy {
		return b.Bids
	}
	return b.Asks
}

// BestOf returns the highest-priority resting order on a side, or nil.
func (b *OrderBook) BestOf(s Side) *Order {
	return b.Queue(s).PeekBest()
}

// SideSnapshot returns detached copies of a side's resting orders in
// matching priority order (the level-two view).
func (b *OrderBook) SideSnapshot(s Side) []Order {
	q := b.Queue(s)
	out := make([]Order, 0, q.Len())
	q.Walk(func(o *Order) bool {
		out = append(out, o.Copy())
		return true
	})
	return out
}
