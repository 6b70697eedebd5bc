package book

// priceLevel is a FIFO of resting orders at one price. Orders are
// intrusively linked so unlink and head removal stay O(1).
type priceLevel struct {
	price int64
	head  *Order
	tail  *Order
	qty   int64 // total resting quantity at this level
	count int
}

func (l *priceLevel) enqueue(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.qty += o.Qty
	l.count++
}

func (l *priceLevel) popHead() *Order {
	o := l.head
	if o == nil {
		return nil
	}
	l.head = o.next
	if l.head == nil {
		l.tail = nil
	} else {
		l.head.prev = nil
	}
	o.next = nil
	l.qty -= o.Qty
	l.count--
	return o
}

// reduceHead writes a partial fill back onto the head order. The head
// must remain strictly positive; full fills go through popHead.
func (l *priceLevel) reduceHead(by int64) {
	if l.head == nil || by <= 0 || by >= l.head.Qty {
		panic("book: invalid head reduction")
	}
	l.head.Qty -= by
	l.qty -= by
}

func (l *priceLevel) empty() bool { return l.head == nil }
