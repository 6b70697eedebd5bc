package book

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "limit"
	case Market:
		return "market"
	default:
		return "unknown"
	}
}

// Order is a single order intent. Qty is the remaining quantity and
// shrinks as partial fills occur; a resting order's Qty is always > 0,
// the queue removes it the moment it would reach zero.
type Order struct {
	Side   Side
	Type   OrderType
	Price  int64 // in ticks; zero and ignored for market orders
	Qty    int64
	Trader string
	Seq    uint64 // arrival sequence, stamped by the engine

	next *Order
	prev *Order
}

// Next walks the FIFO chain within a price level.
func (o *Order) Next() *Order { return o.next }

// Copy returns a detached value copy safe to hand outside the book.
func (o *Order) Copy() Order {
	c := *o
	c.next = nil
	c.prev = nil
	return c
}
