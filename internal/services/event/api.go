package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
)

// Decision is the dashboard view of one stored decision event.
type Decision struct {
	GreenhouseID string  `json:"greenhouse_id"`
	DecisionID   string  `json:"decision_id,omitempty"`
	SoilMoisture int64   `json:"soil_moisture"`
	Watering     string  `json:"watering"`
	Shading      string  `json:"shading"`
	Alert        bool    `json:"alert"`
	Escalation   string  `json:"escalation"`
	Severity     string  `json:"severity"`
	MoistureSMA  float64 `json:"moisture_sma"`
	MoistureEMA  float64 `json:"moisture_ema"`
	Time         string  `json:"time"` // RFC3339
}

// Querier is the subset of the Influx query API the handler uses.
type Querier interface {
	Query(ctx context.Context, flux string) (*api.QueryTableResult, error)
}

type decisionQueryParams struct {
	Greenhouse string
	Minutes    int
	Limit      int
	TimeoutMS  int
}

func parseDecisionQuery(r *http.Request, defMin, defLim, defTOms int) decisionQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return decisionQueryParams{
		Greenhouse: strings.TrimSpace(q.Get("greenhouse")),
		Minutes:    get("minutes", defMin, 1, 7*24*60),
		Limit:      get("limit", defLim, 1, 500),
		TimeoutMS:  get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildFlux(bucket string, p decisionQueryParams) string {
	ghFilter := ""
	if p.Greenhouse != "" {
		ghFilter = fmt.Sprintf("\n  |> filter(fn: (r) => r.greenhouse_id == %q)", p.Greenhouse)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q)%s
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, p.Minutes, Measurement, EventTypeDecision, ghFilter, p.Limit)
}

func recordToDecision(rec *query.FluxRecord) Decision {
	return Decision{
		GreenhouseID: asString(rec.ValueByKey("greenhouse_id")),
		DecisionID:   asString(rec.ValueByKey("decision_id")),
		SoilMoisture: int64(asFloat(rec.ValueByKey("soil_moisture"))),
		Watering:     asString(rec.ValueByKey("watering")),
		Shading:      asString(rec.ValueByKey("shading")),
		Alert:        asBool(rec.ValueByKey("alert")),
		Escalation:   asString(rec.ValueByKey("escalation")),
		Severity:     asString(rec.ValueByKey("severity")),
		MoistureSMA:  asFloat(rec.ValueByKey("moisture_sma")),
		MoistureEMA:  asFloat(rec.ValueByKey("moisture_ema")),
		Time:         rec.Time().UTC().Format(time.RFC3339),
	}
}

func runDecisions(w http.ResponseWriter, r *http.Request, q Querier, bucket string, defMin, defLim int) {
	p := parseDecisionQuery(r, defMin, defLim, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	res, err := q.Query(ctx, buildFlux(bucket, p))
	if err != nil {
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer func() { _ = res.Close() }()

	out := make([]Decision, 0, p.Limit)
	for res.Next() {
		out = append(out, recordToDecision(res.Record()))
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}
	_ = json.NewEncoder(w).Encode(out)
}

// NewDecisionsLatestHandler serves
// GET /events/decisions/latest?greenhouse=gh-1&limit=20[&minutes=1440][&timeout_ms=2000]
func NewDecisionsLatestHandler(q Querier, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runDecisions(w, r, q, bucket, 1440, 20)
	})
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(b)
		return ok
	}
	return false
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}
