package app

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
)

// HandleDashboard serves GET /dashboard/data?greenhouse=<id>.
func (g *Gateway) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gh := strings.TrimSpace(r.URL.Query().Get("greenhouse"))
	if gh == "" {
		http.Error(w, `{"ok":false,"message":"greenhouse is required"}`, http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	type res struct {
		key   string
		val   any
		stale bool
		err   error
	}
	const sources = 5
	ch := make(chan res, sources)
	base := "/greenhouses/" + url.PathEscape(gh)

	// Fetch in parallelo
	go func() {
		var a Averages
		stale, err := g.controller.GetJSON(ctx, base+"/averages", &a)
		ch <- res{"averages", a, stale, err}
	}()
	go func() {
		var a Alerts
		stale, err := g.controller.GetJSON(ctx, base+"/alerts", &a)
		ch <- res{"alerts", a, stale, err}
	}()
	go func() {
		var d *messages.DecisionEvent
		stale, err := g.controller.GetJSON(ctx, base+"/decision/latest", &d)
		ch <- res{"latest", d, stale, err}
	}()
	go func() {
		var rd []RecentDecision
		stale, err := g.events.GetJSON(ctx, "/events/decisions/latest?greenhouse="+url.QueryEscape(gh), &rd)
		ch <- res{"recent", rd, stale, err}
	}()
	go func() {
		ch <- res{key: "health", val: g.health.Status(ctx)}
	}()

	data := DashboardData{
		Greenhouse: gh,
		Moisture:   []float64{},
		SMA:        []float64{},
		EMA:        []float64{},
		Alerts:     []bool{},
		Escalation: "none",
		Recent:     []RecentDecision{},
		Stats:      map[string]float64{},
	}

	for i := 0; i < sources; i++ {
		rv := <-ch
		if rv.err != nil {
			g.cfg.Logger.Printf("gateway: %s for %s: %v", rv.key, gh, rv.err)
		}
		if rv.stale {
			data.Stale = append(data.Stale, rv.key)
		}
		switch v := rv.val.(type) {
		case Averages:
			if v.History != nil {
				data.Moisture, data.SMA, data.EMA = v.History, v.SMA, v.EMA
			}
		case Alerts:
			if v.Alerts != nil {
				data.Alerts = v.Alerts
			}
			if v.Escalation != "" {
				data.Escalation = v.Escalation
			}
		case *messages.DecisionEvent:
			data.Latest = v
		case []RecentDecision:
			if v != nil {
				data.Recent = v
			}
		case string:
			data.ControllerHealth = v
		}
	}
	sort.Strings(data.Stale)
	data.Stats = moistureStats(data.Moisture)
	data.Breakers = map[string]string{
		"controller": g.controller.State(),
		"events":     g.events.State(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)

	g.cfg.Logger.Printf("GET /dashboard/data?greenhouse=%s [%dms] cb[controller]=%s cb[events]=%s points=%d recent=%d",
		gh, time.Since(start).Milliseconds(), data.Breakers["controller"], data.Breakers["events"],
		len(data.Moisture), len(data.Recent))
}

// moistureStats returns mean, min and max of the moisture window.
func moistureStats(h []float64) map[string]float64 {
	stats := map[string]float64{}
	if len(h) == 0 {
		return stats
	}
	sum, minv, maxv := 0.0, math.Inf(1), math.Inf(-1)
	for _, v := range h {
		sum += v
		minv = math.Min(minv, v)
		maxv = math.Max(maxv, v)
	}
	stats["mean"] = math.Round(sum/float64(len(h))*100) / 100
	stats["min"] = minv
	stats["max"] = maxv
	return stats
}
