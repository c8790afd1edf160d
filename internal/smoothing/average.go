// Package smoothing computes the soil-moisture moving averages shown next to
// the decisions.
package smoothing

// SimpleMovingAverage returns a series the same length as history. The first
// point is history[0]; every later point i is the mean of history[0..i-1],
// so the window excludes the current point and lags it by one step.
func SimpleMovingAverage(history []float64) []float64 {
	out := make([]float64, len(history))
	sum := 0.0
	for i, v := range history {
		if i == 0 {
			out[i] = v
		} else {
			out[i] = sum / float64(i)
		}
		sum += v
	}
	return out
}

// Alpha is the smoothing factor for a history of n points.
func Alpha(n int) float64 {
	return 2 / (float64(n) + 1)
}

// ExponentialMovingAverage returns a series the same length as history.
//
// The factor depends on the whole history length, so earlier points change
// as the history grows. Every step blends the most recent reading, not
// history[i], into the previous point:
//
//	out[0] = history[0]
//	out[i] = alpha*history[n-1] + (1-alpha)*out[i-1]
func ExponentialMovingAverage(history []float64) []float64 {
	n := len(history)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	alpha := Alpha(n)
	last := history[n-1]
	out[0] = history[0]
	for i := 1; i < n; i++ {
		out[i] = alpha*last + (1-alpha)*out[i-1]
	}
	return out
}
