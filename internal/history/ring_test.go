package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, v := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		r.Push(v)
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	if diff := cmp.Diff([]float64{0.3, 0.4, 0.5}, r.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	last, ok := r.Last()
	if !ok || last != 0.5 {
		t.Fatalf("expected last 0.5, got %v %v", last, ok)
	}
}

func TestRingMean(t *testing.T) {
	r := NewRing(4)
	if _, ok := r.Mean(); ok {
		t.Fatal("empty ring should have no mean")
	}
	r.Push(0.5)
	r.Push(1.0)
	m, ok := r.Mean()
	if !ok || m != 0.75 {
		t.Fatalf("expected mean 0.75, got %v", m)
	}
}

func TestRingPartialValues(t *testing.T) {
	r := NewRing(5)
	r.Push(0.9)
	r.Push(0.8)
	if diff := cmp.Diff([]float64{0.9, 0.8}, r.Values()); diff != "" {
		t.Fatalf("values mismatch:\n%s", diff)
	}
	vals := r.Values()
	vals[0] = 0
	if r.Values()[0] != 0.9 {
		t.Fatal("Values must return a copy")
	}
}

func TestRingLastWrapsAround(t *testing.T) {
	r := NewRing(2)
	r.Push(0.1)
	r.Push(0.2)
	if last, _ := r.Last(); last != 0.2 {
		t.Fatalf("expected 0.2, got %v", last)
	}
}

func TestRingRestoreKeepsNewest(t *testing.T) {
	r := NewRing(2)
	r.Restore([]float64{0.1, 0.2, 0.3})
	if diff := cmp.Diff([]float64{0.2, 0.3}, r.Values()); diff != "" {
		t.Fatalf("values mismatch:\n%s", diff)
	}
}

func TestNewRingDefaultCapacity(t *testing.T) {
	if c := NewRing(0).Cap(); c != DefaultCapacity {
		t.Fatalf("expected %d, got %d", DefaultCapacity, c)
	}
}
