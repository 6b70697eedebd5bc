package sequence

import "testing"

func TestMonotonic(t *testing.T) {
	s := New(0)
	if s.Current() != 0 {
		t.Fatal("fresh sequencer must start at the seed")
	}
	for want := uint64(1); want <= 100; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if s.Current() != 100 {
		t.Fatalf("Current() = %d, want 100", s.Current())
	}
}

func TestStartsFromSeed(t *testing.T) {
	s := New(41)
	if got := s.Next(); got != 42 {
		t.Fatalf("Next() = %d, want 42", got)
	}
}
