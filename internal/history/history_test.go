package history

import (
	"math"
	"reflect"
	"testing"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/smoothing"
)

func TestRing(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		if _, evicted := r.Push(i); evicted {
			t.Fatalf("push %d evicted before full", i)
		}
	}
	old, evicted := r.Push(4)
	if !evicted || old != 1 {
		t.Fatalf("expected eviction of 1, got %d (%v)", old, evicted)
	}
	if got := r.Values(); !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Fatalf("Values() = %v", got)
	}
	if got := r.LastN(2); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Fatalf("LastN(2) = %v", got)
	}
	if got := r.LastN(10); len(got) != 3 {
		t.Fatalf("LastN(10) returned %d values", len(got))
	}
	if r.Len() != 3 || r.Cap() != 3 {
		t.Fatalf("len=%d cap=%d", r.Len(), r.Cap())
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[bool](0)
	r.Push(true)
	r.Push(false)
	if got := r.Values(); !reflect.DeepEqual(got, []bool{false}) {
		t.Fatalf("Values() = %v", got)
	}
}

func TestStoreRecord(t *testing.T) {
	s := NewStore(4)
	s.SetRetention("gh-2", 2)

	for _, v := range []float64{10, 20, 30, 40, 50} {
		s.Record("gh-1", v, v > 25)
		s.Record("gh-2", v, false)
	}

	h, ok := s.Get("gh-1")
	if !ok {
		t.Fatalf("gh-1 missing")
	}
	if !reflect.DeepEqual(h.Moisture, []float64{20, 30, 40, 50}) {
		t.Fatalf("moisture = %v", h.Moisture)
	}
	if !reflect.DeepEqual(h.Alerts, []bool{false, true, true, true}) {
		t.Fatalf("alerts = %v", h.Alerts)
	}
	if got := s.RecentAlerts("gh-1", 3); !reflect.DeepEqual(got, []bool{true, true, true}) {
		t.Fatalf("recent = %v", got)
	}

	h2, _ := s.Get("gh-2")
	if !reflect.DeepEqual(h2.Moisture, []float64{40, 50}) {
		t.Fatalf("gh-2 moisture = %v", h2.Moisture)
	}

	sma, ema, ok := s.Latest("gh-1")
	if !ok {
		t.Fatalf("no latest point")
	}
	wantSMA := smoothing.SimpleMovingAverage(h.Moisture)
	wantEMA := smoothing.ExponentialMovingAverage(h.Moisture)
	if math.Abs(sma-wantSMA[3]) > 1e-9 || math.Abs(ema-wantEMA[3]) > 1e-9 {
		t.Fatalf("latest (%v, %v), want (%v, %v)", sma, ema, wantSMA[3], wantEMA[3])
	}

	if ids := s.IDs(); !reflect.DeepEqual(ids, []string{"gh-1", "gh-2"}) {
		t.Fatalf("IDs() = %v", ids)
	}
}

func TestStoreUnknown(t *testing.T) {
	s := NewStore(10)
	h, ok := s.Get("nope")
	if ok || h.Moisture == nil || len(h.Moisture) != 0 {
		t.Fatalf("unexpected history for unknown greenhouse: %+v", h)
	}
	if _, _, ok := s.Latest("nope"); ok {
		t.Fatalf("latest for unknown greenhouse")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(5)
	s.Record("gh", 10, true)
	h, _ := s.Get("gh")
	h.Moisture[0] = 99
	h2, _ := s.Get("gh")
	if h2.Moisture[0] != 10 {
		t.Fatalf("history mutated through copy")
	}
}
