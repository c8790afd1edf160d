package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

const stressedBody = `{"Soil Moisture": 20, "Light": 1200, "Humidity": "20", "Temperature": 40.7, "Carbon IV Oxide": 1500}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateEndpoint(t *testing.T) {
	c, pub, _ := newTestController(t, nil)
	h := (&API{Ctrl: c}).Router()

	rec := do(t, h, http.MethodPost, "/evaluate", stressedBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Watering != "20: Watering plants..." || got.Shading != "Close fully" || !got.Alert || got.AlertCount != 5 {
		t.Fatalf("unexpected response %+v", got)
	}
	if pub.count() != 0 {
		t.Fatalf("stateless evaluation published a decision")
	}

	rec = do(t, h, http.MethodPost, "/evaluate", `{"Soil Moisture": 20}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "missing channel") {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodPost, "/evaluate", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d for malformed body", rec.Code)
	}
}

func TestAveragesEndpoint(t *testing.T) {
	c, _, _ := newTestController(t, nil)
	h := (&API{Ctrl: c}).Router()

	rec := do(t, h, http.MethodPost, "/averages", `{"history": [10, 20, 30]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got averagesResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.SMA) != 3 || got.SMA[2] != 15 || got.EMA[0] != 10 {
		t.Fatalf("unexpected averages %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/averages", `{}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sma":[]`) {
		t.Fatalf("empty history: %d %s", rec.Code, rec.Body)
	}
}

func TestGreenhouseEndpoints(t *testing.T) {
	c, _, _ := newTestController(t, NewSites([]entities.Greenhouse{{ID: "gh-1"}}))
	h := (&API{Ctrl: c}).Router()

	if rec := do(t, h, http.MethodGet, "/greenhouses/gh-1/decision/latest", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("latest before any cycle: %d", rec.Code)
	}

	for i := 0; i < 3; i++ {
		body := `{"readings": ` + stressedBody + `}`
		if rec := do(t, h, http.MethodPost, "/greenhouses/gh-1/snapshots", body); rec.Code != http.StatusOK {
			t.Fatalf("snapshot %d: %d %s", i, rec.Code, rec.Body)
		}
	}

	rec := do(t, h, http.MethodGet, "/greenhouses/gh-1/alerts", "")
	var alerts alertsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &alerts)
	if rec.Code != http.StatusOK || len(alerts.Alerts) != 3 || alerts.Escalation != "critical" {
		t.Fatalf("alerts: %d %+v", rec.Code, alerts)
	}

	rec = do(t, h, http.MethodGet, "/greenhouses/gh-1/averages", "")
	var avg averagesResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &avg)
	if rec.Code != http.StatusOK || len(avg.History) != 3 || avg.History[0] != 20 {
		t.Fatalf("averages: %d %+v", rec.Code, avg)
	}

	if rec := do(t, h, http.MethodGet, "/greenhouses/gh-1/decision/latest", ""); rec.Code != http.StatusOK {
		t.Fatalf("latest: %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/greenhouses/gh-2/snapshots", `{"readings": `+stressedBody+`}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown greenhouse: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/greenhouses/gh-2/alerts", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown greenhouse alerts: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/greenhouses/gh-1/snapshots", `{"readings": {"Soil Moisture": "dry"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid snapshot: %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	c, _, _ := newTestController(t, nil)
	ready := false
	h := (&API{Ctrl: c, Ready: func() bool { return ready }}).Router()

	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while down: %d", rec.Code)
	}
	ready = true
	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz while up: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/greenhouses/gh-1/snapshots", `{"readings": `+stressedBody+`}`)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "greenhouse_decisions_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
