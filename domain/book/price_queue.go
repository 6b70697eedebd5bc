package book

// PriceQueue holds one side's resting orders in matching priority
// order: market orders first (FIFO among themselves), then limit
// levels by price aggressiveness, FIFO within each level. Buy levels
// rank descending, sell levels ascending.
type PriceQueue struct {
	side   Side
	levels *rbTree
	market priceLevel // market-order lane, outranks every limit level
	size   int
}

func NewPriceQueue(side Side) *PriceQueue {
	return &PriceQueue{side: side, levels: newRBTree()}
}

func (q *PriceQueue) Side() Side { return q.side }

// Len is the number of resting orders on this side.
func (q *PriceQueue) Len() int { return q.size }

func (q *PriceQueue) Insert(o *Order) {
	if o.Type == Market {
		q.market.enqueue(o)
	} else {
		q.levels.upsert(o.Price).enqueue(o)
	}
	q.size++
}

// PeekBest returns the highest-priority resting order without
// removing it, or nil when the side is empty. The pointer stays owned
// by the queue; callers mutate only through ReduceBest/PopBest.
func (q *PriceQueue) PeekBest() *Order {
	lvl := q.bestLevel()
	if lvl == nil {
		return nil
	}
	return lvl.head
}

// PopBest removes and returns the highest-priority order, dropping
// the price level once it empties.
func (q *PriceQueue) PopBest() *Order {
	lvl := q.bestLevel()
	if lvl == nil {
		return nil
	}
	o := lvl.popHead()
	if lvl != &q.market && lvl.empty() {
		q.levels.remove(lvl.price)
	}
	q.size--
	return o
}

// ReduceBest writes a partial fill back onto the best order. Only a
// strict reduction is valid: the order's price is untouched so its
// rank cannot change, and full fills must go through PopBest instead.
func (q *PriceQueue) ReduceBest(by int64) {
	lvl := q.bestLevel()
	if lvl == nil {
		panic("book: ReduceBest on empty queue")
	}
	lvl.reduceHead(by)
}

// BestLimit reports the best limit price level (price, total resting
// quantity), skipping the market lane. Used for level-one quotes.
func (q *PriceQueue) BestLimit() (price, qty int64, ok bool) {
	var lvl *priceLevel
	if q.side == Buy {
		lvl = q.levels.max()
	} else {
		lvl = q.levels.min()
	}
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.price, lvl.qty, true
}

// Walk visits every resting order in matching priority order until fn
// returns false.
func (q *PriceQueue) Walk(fn func(*Order) bool) {
	for o := q.market.head; o != nil; o = o.next {
		if !fn(o) {
			return
		}
	}
	visit := func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			if !fn(o) {
				return false
			}
		}
		return true
	}
	if q.side == Buy {
		q.levels.descend(visit)
	} else {
		q.levels.ascend(visit)
	}
}

func (q *PriceQueue) bestLevel() *priceLevel {
	if q.market.head != nil {
		return &q.market
	}
	var lvl *priceLevel
	if q.side == Buy {
		lvl = q.levels.max()
	} else {
		lvl = q.levels.min()
	}
	if lvl == nil || lvl.empty() {
		return nil
	}
	return lvl
}
