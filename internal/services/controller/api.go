package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/smoothing"
)

// API exposes the controller over HTTP.
type API struct {
	Ctrl *Controller
	// Ready reports whether the ingest path (MQTT) is up. Nil means always ready.
	Ready func() bool
}

// Router builds the chi router with every route mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	a.RegisterRoutes(r)
	return r
}

func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", a.Ctrl.metrics.Handler())

	r.Post("/evaluate", a.handleEvaluate)
	r.Post("/averages", a.handleAverages)

	r.Route("/greenhouses/{id}", func(r chi.Router) {
		r.Post("/snapshots", a.handleSnapshot)
		r.Get("/averages", a.handleGreenhouseAverages)
		r.Get("/alerts", a.handleAlerts)
		r.Get("/decision/latest", a.handleLatest)
	})
}

type evaluateResponse struct {
	SoilMoisture   int    `json:"soil_moisture"`
	Watering       string `json:"watering"`
	WateringAction string `json:"watering_action"`
	Shading        string `json:"shading"`
	Alert          bool   `json:"alert"`
	AlertCount     int    `json:"alert_count"`
}

func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var snap entities.Snapshot
	if err := decodeBody(w, r, &snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	ev, err := a.Ctrl.Policy().Evaluate(snap)
	if err != nil {
		writeEvalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{
		SoilMoisture:   ev.Watering.SoilMoisture,
		Watering:       ev.Watering.Message,
		WateringAction: string(ev.Watering.Action),
		Shading:        string(ev.Shading),
		Alert:          ev.Alert,
		AlertCount:     ev.AlertCount,
	})
}

type averagesRequest struct {
	History []float64 `json:"history"`
}

type averagesResponse struct {
	Greenhouse string    `json:"greenhouse,omitempty"`
	History    []float64 `json:"history"`
	SMA        []float64 `json:"sma"`
	EMA        []float64 `json:"ema"`
}

func (a *API) handleAverages(w http.ResponseWriter, r *http.Request) {
	var req averagesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	if req.History == nil {
		req.History = []float64{}
	}
	writeJSON(w, http.StatusOK, averagesResponse{
		History: req.History,
		SMA:     smoothing.SimpleMovingAverage(req.History),
		EMA:     smoothing.ExponentialMovingAverage(req.History),
	})
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var s messages.SnapshotEvent
	if err := decodeBody(w, r, &s); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	d, err := a.Ctrl.Evaluate(r.Context(), id, s.Readings, s.Timestamp)
	if err != nil {
		writeEvalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleGreenhouseAverages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Ctrl.Sites().Check(id); err != nil {
		writeEvalError(w, err)
		return
	}
	h, _ := a.Ctrl.Store().Get(id)
	writeJSON(w, http.StatusOK, averagesResponse{
		Greenhouse: id,
		History:    h.Moisture,
		SMA:        smoothing.SimpleMovingAverage(h.Moisture),
		EMA:        smoothing.ExponentialMovingAverage(h.Moisture),
	})
}

type alertsResponse struct {
	Greenhouse string `json:"greenhouse"`
	Alerts     []bool `json:"alerts"`
	Escalation string `json:"escalation"`
}

func (a *API) handleAlerts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Ctrl.Sites().Check(id); err != nil {
		writeEvalError(w, err)
		return
	}
	h, _ := a.Ctrl.Store().Get(id)
	writeJSON(w, http.StatusOK, alertsResponse{
		Greenhouse: id,
		Alerts:     h.Alerts,
		Escalation: string(rules.Escalate(h.Alerts)),
	})
}

func (a *API) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := a.Ctrl.Latest(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "message": "no decision yet"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if a.Ready != nil && !a.Ready() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"greenhouses": a.Ctrl.Store().IDs(),
	})
}

func (a *API) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := a.Ready == nil || a.Ready()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"ready": ready})
}

func writeEvalError(w http.ResponseWriter, err error) {
	body := map[string]any{"ok": false, "message": err.Error()}
	var ce *rules.ChannelError
	if errors.As(err, &ce) {
		body["channel"] = string(ce.Channel)
	}
	switch {
	case errors.Is(err, ErrUnknownGreenhouse):
		writeJSON(w, http.StatusNotFound, body)
	case errors.Is(err, rules.ErrMissingChannel), errors.Is(err, rules.ErrInvalidNumeric):
		writeJSON(w, http.StatusBadRequest, body)
	default:
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

// decodeBody keeps numbers as json.Number so snapshot values reach the rule
// evaluator without a float64 round trip.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
