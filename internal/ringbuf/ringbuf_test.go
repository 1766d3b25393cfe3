package ringbuf

import (
	"testing"

	"algotradingv1/internal/model"
)

func snap(close float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{Ticker: "SBIN", Close: close}
}

func TestRing_PushAndLastPair(t *testing.T) {
	r := New(4)

	if _, _, ok := r.LastPair(); ok {
		t.Fatal("LastPair on empty ring should report not ok")
	}

	r.Push(snap(100))
	if _, _, ok := r.LastPair(); ok {
		t.Fatal("LastPair with one snapshot should report not ok")
	}

	r.Push(snap(101))
	prev, curr, ok := r.LastPair()
	if !ok {
		t.Fatal("LastPair should be ready after two pushes")
	}
	if prev.Close != 100 || curr.Close != 101 {
		t.Fatalf("pair = (%v, %v), want (100, 101)", prev.Close, curr.Close)
	}
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := New(4)

	for i := 0; i < 10; i++ {
		r.Push(snap(float64(100 + i)))
	}

	if r.Len() != 4 {
		t.Fatalf("len = %d, want 4", r.Len())
	}

	// Oldest surviving entry is push #6 (close 106)
	for i := 0; i < 4; i++ {
		s, ok := r.At(i)
		if !ok {
			t.Fatalf("At(%d) not ok", i)
		}
		if want := float64(106 + i); s.Close != want {
			t.Errorf("At(%d).Close = %v, want %v", i, s.Close, want)
		}
	}

	prev, curr, ok := r.LastPair()
	if !ok || prev.Close != 108 || curr.Close != 109 {
		t.Fatalf("pair = (%v, %v, %v), want (108, 109, true)", prev.Close, curr.Close, ok)
	}
}

func TestRing_AtOutOfRange(t *testing.T) {
	r := New(2)
	r.Push(snap(100))

	if _, ok := r.At(-1); ok {
		t.Error("At(-1) should not be ok")
	}
	if _, ok := r.At(1); ok {
		t.Error("At(1) past count should not be ok")
	}
}

func TestRing_NextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		got := nextPow2(tc.in)
		if got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
