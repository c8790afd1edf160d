package event

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	msg "github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestSeverity(t *testing.T) {
	cases := map[string]string{"critical": "error", "suboptimal": "warning", "none": "info", "": "info"}
	for in, want := range cases {
		if got := Severity(in); got != want {
			t.Errorf("Severity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleDecision(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := msg.DecisionEvent{
		ID: "d-1", SoilMoisture: 20, Watering: "20: Watering plants...", WateringAction: "water",
		Shading: "Close fully", Alert: true, AlertCount: 4, Escalation: "critical",
		MoistureSMA: 21.5, MoistureEMA: 20.2, Timestamp: ts,
	}
	payload, _ := json.Marshal(d)

	var got []CommonEvent
	h := NewMQTTHandler(func(e CommonEvent) { got = append(got, e) })
	if err := h.Handle("", fakeMessage{topic: "greenhouse/decision/gh-1", payload: payload}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	e := got[0]
	if e.GreenhouseID != "gh-1" || e.Severity != "error" || e.EventType != EventTypeDecision || !e.Timestamp.Equal(ts) {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.Fields["soil_moisture"] != int64(20) || e.Fields["alert"] != true {
		t.Fatalf("unexpected fields %+v", e.Fields)
	}

	if err := h.Handle("", fakeMessage{topic: "greenhouse/decision/gh-1", payload: []byte("{")}); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if err := h.Handle("", fakeMessage{topic: "greenhouse/other", payload: payload}); err != nil || len(got) != 1 {
		t.Fatalf("foreign topic should be ignored")
	}
}

func TestEventToPoint(t *testing.T) {
	p := EventToPoint(CommonEvent{
		EventType:     EventTypeDecision,
		SourceService: "greenhouse-controller",
		GreenhouseID:  "gh-1",
		Severity:      "warning",
		Fields:        map[string]interface{}{"alert": true, "skip": nil},
		Timestamp:     time.Unix(100, 0),
	})
	if p.Name() != Measurement {
		t.Fatalf("measurement = %s", p.Name())
	}
	tags := map[string]string{}
	for _, tg := range p.TagList() {
		tags[tg.Key] = tg.Value
	}
	if tags["greenhouse_id"] != "gh-1" || tags["severity"] != "warning" {
		t.Fatalf("tags = %v", tags)
	}
	fields := map[string]bool{}
	for _, f := range p.FieldList() {
		fields[f.Key] = true
	}
	if !fields["alert"] || !fields["count"] || fields["skip"] {
		t.Fatalf("fields = %v", fields)
	}
}

func TestParseDecisionQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events/decisions/latest?greenhouse=gh-1&limit=9999&minutes=0&timeout_ms=x", nil)
	p := parseDecisionQuery(r, 1440, 20, 2000)
	if p.Greenhouse != "gh-1" || p.Limit != 500 || p.Minutes != 1 || p.TimeoutMS != 2000 {
		t.Fatalf("unexpected params %+v", p)
	}
	flux := buildFlux("events", p)
	for _, want := range []string{`r.greenhouse_id == "gh-1"`, `"greenhouse_event"`, "limit(n:500)", "range(start: -1m)"} {
		if !strings.Contains(flux, want) {
			t.Fatalf("flux missing %q:\n%s", want, flux)
		}
	}
	if strings.Contains(buildFlux("events", decisionQueryParams{Minutes: 5, Limit: 1}), "greenhouse_id ==") {
		t.Fatalf("unexpected greenhouse filter")
	}
}

type conn bool

func (c conn) IsConnectionOpen() bool { return bool(c) }

func TestReadyHandler(t *testing.T) {
	w := NewWriter(nil)
	rec := httptest.NewRecorder()
	NewReadyHandler(conn(false), nil, w, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(conn(true), nil, w).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Fatalf("healthz = %s", rec.Body)
	}
}

func TestWriterNilSafe(t *testing.T) {
	var w *Writer
	w.Write(CommonEvent{})
	w.MarkIngest("x")
	if w.Count("x") != 0 || w.LastErrorAge() < time.Hour {
		t.Fatalf("nil writer misbehaves")
	}
}

func TestAsConversions(t *testing.T) {
	if asFloat(int64(3)) != 3 || asFloat("2.5") != 2.5 || asFloat(nil) != 0 {
		t.Fatalf("asFloat")
	}
	if !asBool(true) || !asBool("true") || asBool(1) {
		t.Fatalf("asBool")
	}
	if asString(4) != "" || asString("x") != "x" {
		t.Fatalf("asString")
	}
}
