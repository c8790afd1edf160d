package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// toFloat converts the value shapes a snapshot can carry (Go numbers,
// json.Number, numeric strings) into a float64.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// channelInt reads a channel and truncates it toward zero. Fractions are
// dropped, not rounded.
func channelInt(s entities.Snapshot, ch entities.Channel) (int, error) {
	raw, ok := s[ch]
	if !ok || raw == nil {
		return 0, &ChannelError{Channel: ch, Err: ErrMissingChannel}
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, &ChannelError{Channel: ch, Value: raw, Err: ErrInvalidNumeric}
	}
	return int(math.Trunc(f)), nil
}

// SoilMoisture returns the coerced soil-moisture value of a snapshot, the
// value callers append to the moisture history.
func SoilMoisture(s entities.Snapshot) (int, error) {
	return channelInt(s, entities.SoilMoisture)
}
