package sensor_simulator

import (
	"math/rand"
	"sync"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// Range bounds the random walk of one channel. Values move by at most Step
// per tick and never leave [Min, Max].
type Range struct {
	Min, Max, Step int
}

func (r Range) clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// DefaultRanges follows the operator dashboard's slider bounds.
func DefaultRanges() map[entities.Channel]Range {
	return map[entities.Channel]Range{
		entities.SoilMoisture:  {Min: 10, Max: 100, Step: 3},
		entities.Light:         {Min: 20, Max: 2200, Step: 80},
		entities.Humidity:      {Min: 0, Max: 100, Step: 3},
		entities.Temperature:   {Min: 0, Max: 100, Step: 2},
		entities.CarbonDioxide: {Min: 20, Max: 2000, Step: 60},
	}
}

// DataGenerator mantiene lo stato dei cinque canali e lo aggiorna a ogni tick.
type DataGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	ranges map[entities.Channel]Range
	values map[entities.Channel]int
	// effetti delle decisioni, applicati al prossimo Next
	pending map[entities.Channel]int
}

// NewDataGenerator starts every channel at the middle of its range.
func NewDataGenerator(seed int64, ranges map[entities.Channel]Range) *DataGenerator {
	if ranges == nil {
		ranges = DefaultRanges()
	}
	g := &DataGenerator{
		rng:     rand.New(rand.NewSource(seed)),
		ranges:  ranges,
		values:  make(map[entities.Channel]int, len(ranges)),
		pending: make(map[entities.Channel]int),
	}
	for ch, r := range ranges {
		g.values[ch] = (r.Min + r.Max) / 2
	}
	return g
}

// Set pins a channel to v (clamped), e.g. to replay a scenario.
func (g *DataGenerator) Set(ch entities.Channel, v int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.ranges[ch]; ok {
		g.values[ch] = r.clamp(v)
	}
}

// Nudge queues an offset for ch, applied on the next tick.
func (g *DataGenerator) Nudge(ch entities.Channel, delta int) {
	g.mu.Lock()
	g.pending[ch] += delta
	g.mu.Unlock()
}

// Next advances the walk one step and returns the new snapshot.
func (g *DataGenerator) Next() entities.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(entities.Snapshot, len(g.ranges))
	for _, ch := range entities.Channels {
		r, ok := g.ranges[ch]
		if !ok {
			continue
		}
		step := 0
		if r.Step > 0 {
			step = g.rng.Intn(2*r.Step+1) - r.Step
		}
		v := r.clamp(g.values[ch] + step + g.pending[ch])
		g.values[ch] = v
		out[ch] = v
	}
	g.pending = make(map[entities.Channel]int)
	return out
}
