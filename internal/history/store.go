package history

import (
	"sort"
	"sync"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/smoothing"
)

// Greenhouse holds the histories of one greenhouse.
type Greenhouse struct {
	Moisture *Ring[float64]
	Alerts   *Ring[bool]
	acc      smoothing.Accumulator
}

func newGreenhouse(retention int) *Greenhouse {
	return &Greenhouse{
		Moisture: NewRing[float64](retention),
		Alerts:   NewRing[bool](retention),
	}
}

// Append records one evaluation cycle. The accumulator follows the moisture
// window, including evictions.
func (g *Greenhouse) Append(moisture float64, alert bool) {
	if old, evicted := g.Moisture.Push(moisture); evicted {
		g.acc.Shift(old, g.Moisture.At(0))
	}
	g.acc.Push(moisture)
	g.Alerts.Push(alert)
}

// Latest returns the last SMA and EMA points over the retained moisture window.
func (g *Greenhouse) Latest() (sma, ema float64, ok bool) {
	return g.acc.Latest()
}

// Snapshot is a copy of a greenhouse's histories.
type Snapshot struct {
	Moisture []float64
	Alerts   []bool
}

// Store manages histories for all greenhouses, keyed by greenhouse ID.
type Store struct {
	mu        sync.RWMutex
	data      map[string]*Greenhouse
	retention map[string]int
	def       int
}

// NewStore creates a store whose histories keep defaultRetention points
// unless a per-greenhouse retention is set.
func NewStore(defaultRetention int) *Store {
	if defaultRetention < 1 {
		defaultRetention = 1
	}
	return &Store{
		data:      make(map[string]*Greenhouse),
		retention: make(map[string]int),
		def:       defaultRetention,
	}
}

// SetRetention overrides the retention of one greenhouse. It takes effect
// when that greenhouse's histories are first created.
func (s *Store) SetRetention(id string, n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	s.retention[id] = n
	s.mu.Unlock()
}

// Record appends one cycle for greenhouse id.
func (s *Store) Record(id string, moisture float64, alert bool) *Greenhouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.data[id]
	if !ok {
		r := s.def
		if n, ok := s.retention[id]; ok {
			r = n
		}
		g = newGreenhouse(r)
		s.data[id] = g
	}
	g.Append(moisture, alert)
	return g
}

// Get returns a copy of the histories of greenhouse id.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.data[id]
	if !ok {
		return Snapshot{Moisture: []float64{}, Alerts: []bool{}}, false
	}
	return Snapshot{Moisture: g.Moisture.Values(), Alerts: g.Alerts.Values()}, true
}

// RecentAlerts returns up to n newest alert flags, oldest first.
func (s *Store) RecentAlerts(id string, n int) []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.data[id]
	if !ok {
		return []bool{}
	}
	return g.Alerts.LastN(n)
}

// Latest returns the last SMA and EMA points of greenhouse id.
func (s *Store) Latest(id string) (sma, ema float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, found := s.data[id]
	if !found {
		return 0, 0, false
	}
	return g.Latest()
}

// IDs returns the known greenhouse IDs, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
