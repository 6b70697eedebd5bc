// Package outbox is the durable trade-delivery outbox. Every executed
// trade is written here before the broadcaster publishes it, so a
// crash between execution and publish cannot lose a trade. Records
// move PENDING → SENT → ACKED; acked records are swept.
//
// Only delivery state is durable. The order book itself is never
// persisted.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StatePending State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one trade awaiting delivery. Payload is the encoded trade
// event, stored inline so the broadcaster needs no second lookup.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// encoding: [state:1][retries:4][lastAttempt:8][payload...]
const headerLen = 1 + 4 + 8

func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.New("outbox: record too short")
	}
	payload := make([]byte, len(b)-headerLen)
	copy(payload, b[headerLen:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stores a new pending delivery. Synced: the trade must survive a
// crash once the engine has reported it executed.
func (o *Outbox) Put(seq uint64, payload []byte) error {
	rec := Record{Seq: seq, State: StatePending, Payload: payload}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent flags a record as handed to the transport and counts the
// attempt.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.update(seq, func(r *Record) {
		r.State = StateSent
		r.Retries++
		r.LastAttempt = time.Now().UnixNano()
	})
}

// MarkAcked flags a record as confirmed by the transport.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.update(seq, func(r *Record) {
		r.State = StateAcked
	})
}

func (o *Outbox) update(seq uint64, mutate func(*Record)) error {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return err
	}
	rec, err := decodeRecord(seq, val)
	closer.Close()
	if err != nil {
		return err
	}
	mutate(&rec)
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the record for one trade.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

// ScanPending visits every unacked record in sequence order. SENT but
// unacked records are included: after a restart they must be retried,
// delivery is at-least-once.
func (o *Outbox) ScanPending(fn func(rec Record) error) error {
	return o.scan(func(rec Record) error {
		if rec.State == StateAcked {
			return nil
		}
		return fn(rec)
	})
}

// SweepAcked deletes acked records and reports how many were removed.
func (o *Outbox) SweepAcked() (int, error) {
	var seqs []uint64
	err := o.scan(func(rec Record) error {
		if rec.State == StateAcked {
			seqs = append(seqs, rec.Seq)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, seq := range seqs {
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return 0, err
		}
	}
	return len(seqs), nil
}

func (o *Outbox) scan(fn func(rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(b), "trade/%d", &seq)
	return seq, err
}
