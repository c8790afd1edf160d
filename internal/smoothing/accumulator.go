package smoothing

import "math"

// Accumulator tracks one stream and yields the last point of both moving
// averages without recomputing the series. It follows a sliding window:
// Push appends, Shift drops the oldest point.
type Accumulator struct {
	n     int
	sum   float64
	first float64
	last  float64
}

// Push appends v to the window.
func (a *Accumulator) Push(v float64) {
	if a.n == 0 {
		a.first = v
	}
	a.n++
	a.sum += v
	a.last = v
}

// Shift removes the oldest point, whose value was evicted, and records the
// value that is now oldest.
func (a *Accumulator) Shift(evicted, newFirst float64) {
	if a.n == 0 {
		return
	}
	a.n--
	a.sum -= evicted
	if a.n == 0 {
		a.sum, a.first, a.last = 0, 0, 0
		return
	}
	a.first = newFirst
}

// Len returns the number of points in the window.
func (a *Accumulator) Len() int { return a.n }

// Latest returns the final point of SimpleMovingAverage and
// ExponentialMovingAverage over the current window. ok is false when empty.
func (a *Accumulator) Latest() (sma, ema float64, ok bool) {
	switch a.n {
	case 0:
		return 0, 0, false
	case 1:
		return a.first, a.first, true
	}
	sma = (a.sum - a.last) / float64(a.n-1)
	// closed form of the recurrence: every step pulls out[i-1] toward last
	ema = a.last + math.Pow(1-Alpha(a.n), float64(a.n-1))*(a.first-a.last)
	return sma, ema, true
}

// Reset empties the window.
func (a *Accumulator) Reset() { *a = Accumulator{} }
