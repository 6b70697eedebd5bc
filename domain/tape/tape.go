// Package tape is the time-of-sales log: an append-only record of
// executed trades. Entries are immutable once appended and live for
// the process lifetime; durable delivery to collaborators goes
// through the outbox, not the tape.
package tape

import (
	"sync"
	"time"
)

// Entry is one executed trade.
type Entry struct {
	TradeID    string    `json:"tradeId"`
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	Symbol     string    `json:"symbol"`
	Price      int64     `json:"price"`
	Qty        int64     `json:"quantity"`
	BuyTrader  string    `json:"buyTrader"`
	SellTrader string    `json:"sellTrader"`
}

type Tape struct {
	mu      sync.RWMutex
	entries []Entry
}

func New() *Tape {
	return &Tape{}
}

func (t *Tape) Append(e Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

// All returns a fresh copy of the tape. The returned slice is the
// caller's to iterate as often as it likes; reading never consumes.
func (t *Tape) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
