// Package sequence generates strictly monotonic sequence IDs. The
// engine stamps every accepted order with one; matching uses the
// stamp to decide which side of a cross was resting first.
package sequence

import "sync/atomic"

type Sequencer struct {
	next atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
