// Package replay runs recorded snapshots through the evaluation cycle offline
// and renders the outcome for a terminal.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/history"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
)

// columns maps CSV header names onto channels.
var columns = map[string]entities.Channel{
	"soil_moisture": entities.SoilMoisture,
	"light":         entities.Light,
	"humidity":      entities.Humidity,
	"temperature":   entities.Temperature,
	"co2":           entities.CarbonDioxide,
}

// Row is one recorded snapshot and the CSV line it came from.
type Row struct {
	Line     int
	Snapshot entities.Snapshot
}

// Load reads a CSV with a header naming the channel columns
// (soil_moisture,light,humidity,temperature,co2, any order). Cells are kept
// as strings; the evaluator coerces them. Empty cells leave the channel out.
func Load(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("replay: read header: %w", err)
	}
	idx := make(map[int]entities.Channel, len(header))
	for i, h := range header {
		ch, ok := columns[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			return nil, fmt.Errorf("replay: unknown column %q", h)
		}
		idx[i] = ch
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		line, _ := cr.FieldPos(0)
		s := make(entities.Snapshot, len(rec))
		for i, cell := range rec {
			if cell = strings.TrimSpace(cell); cell != "" {
				s[idx[i]] = cell
			}
		}
		rows = append(rows, Row{Line: line, Snapshot: s})
	}
	return rows, nil
}

// Step is the outcome of one replayed snapshot. Err is set when the snapshot
// was rejected; rejected snapshots do not enter the histories.
type Step struct {
	Line       int
	Evaluation rules.Evaluation
	Escalation rules.Signal
	SMA, EMA   float64
	Err        error
}

// Run evaluates rows in order for a single greenhouse, keeping retention
// points of history.
func Run(rows []Row, policy rules.Policy, retention int) ([]Step, history.Snapshot) {
	const id = "replay"
	store := history.NewStore(retention)
	steps := make([]Step, 0, len(rows))
	for _, row := range rows {
		ev, err := policy.Evaluate(row.Snapshot)
		if err != nil {
			steps = append(steps, Step{Line: row.Line, Err: err})
			continue
		}
		g := store.Record(id, float64(ev.Watering.SoilMoisture), ev.Alert)
		sma, ema, _ := g.Latest()
		steps = append(steps, Step{
			Line:       row.Line,
			Evaluation: ev,
			Escalation: rules.Escalate(g.Alerts.LastN(3)),
			SMA:        sma,
			EMA:        ema,
		})
	}
	h, _ := store.Get(id)
	return steps, h
}
