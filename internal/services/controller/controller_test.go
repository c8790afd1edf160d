package controller

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/smoothing"
)

type published struct {
	topic   string
	qos     byte
	message interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishMessage(message interface{}) error {
	return f.PublishTo("", 0, false, message)
}

func (f *fakePublisher) PublishTo(topic string, qos byte, _ bool, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, message: message})
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeNotifier struct {
	subjects []string
	events   []messages.EscalationEvent
}

func (f *fakeNotifier) Publish(subject string, payload any) error {
	f.subjects = append(f.subjects, subject)
	f.events = append(f.events, payload.(messages.EscalationEvent))
	return nil
}

func (f *fakeNotifier) Close() {}

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

func snapshot(sm, light, hum, temp, co2 any) entities.Snapshot {
	return entities.Snapshot{
		entities.SoilMoisture:  sm,
		entities.Light:         light,
		entities.Humidity:      hum,
		entities.Temperature:   temp,
		entities.CarbonDioxide: co2,
	}
}

// stressed trips all five alert conditions; calm trips none.
var (
	stressed = func() entities.Snapshot { return snapshot(20, 1200, 20, 40, 1500) }
	calm     = func() entities.Snapshot { return snapshot(60, 500, 50, 25, 400) }
)

func newTestController(t *testing.T, sites *Sites) (*Controller, *fakePublisher, *fakeNotifier) {
	t.Helper()
	pub := &fakePublisher{}
	n := &fakeNotifier{}
	c, err := NewController(Config{HistoryRetention: 5}, nil, pub, n, sites, NewMetrics())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	seq := 0
	c.newID = func() string { seq++; return "d-" + string(rune('0'+seq)) }
	return c, pub, n
}

func TestEvaluateCycle(t *testing.T) {
	c, pub, _ := newTestController(t, nil)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	d, err := c.Evaluate(context.Background(), "gh-1", stressed(), at)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Watering != "20: Watering plants..." || d.WateringAction != "water" {
		t.Fatalf("watering = %q (%s)", d.Watering, d.WateringAction)
	}
	if d.Shading != "Close fully" || !d.Alert || d.AlertCount != 5 {
		t.Fatalf("unexpected decision %+v", d)
	}
	if d.Escalation != "suboptimal" || d.HistoryLen != 1 || !d.Timestamp.Equal(at) {
		t.Fatalf("unexpected decision %+v", d)
	}
	if pub.count() != 1 || pub.msgs[0].topic != "greenhouse/decision/gh-1" || pub.msgs[0].qos != 1 {
		t.Fatalf("unexpected publishes %+v", pub.msgs)
	}
	if latest, ok := c.Latest("gh-1"); !ok || latest.ID != d.ID {
		t.Fatalf("latest decision not stored")
	}
}

func TestEscalationProgression(t *testing.T) {
	c, _, n := newTestController(t, nil)
	ctx := context.Background()

	var got []string
	for _, s := range []entities.Snapshot{calm(), stressed(), stressed(), stressed(), calm()} {
		d, err := c.Evaluate(ctx, "gh-1", s, time.Time{})
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		got = append(got, d.Escalation)
	}
	want := []string{"none", "suboptimal", "suboptimal", "critical", "none"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("escalations = %v, want %v", got, want)
		}
	}

	if len(n.subjects) != 3 {
		t.Fatalf("expected 3 notifications, got %v", n.subjects)
	}
	if n.subjects[2] != "greenhouse.escalation.critical" {
		t.Fatalf("last subject = %s", n.subjects[2])
	}
	last := n.events[2]
	if len(last.RecentAlerts) != 3 || !last.RecentAlerts[0] || !last.RecentAlerts[2] {
		t.Fatalf("recent alerts = %v", last.RecentAlerts)
	}
}

func TestRejectedSnapshotLeavesHistoryUntouched(t *testing.T) {
	c, pub, _ := newTestController(t, nil)
	ctx := context.Background()
	if _, err := c.Evaluate(ctx, "gh-1", calm(), time.Time{}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	missing := calm()
	delete(missing, entities.CarbonDioxide)
	if _, err := c.Evaluate(ctx, "gh-1", missing, time.Time{}); !errors.Is(err, rules.ErrMissingChannel) {
		t.Fatalf("expected ErrMissingChannel, got %v", err)
	}
	bad := calm()
	bad[entities.Humidity] = "wet"
	if _, err := c.Evaluate(ctx, "gh-1", bad, time.Time{}); !errors.Is(err, rules.ErrInvalidNumeric) {
		t.Fatalf("expected ErrInvalidNumeric, got %v", err)
	}

	h, _ := c.Store().Get("gh-1")
	if len(h.Moisture) != 1 || len(h.Alerts) != 1 {
		t.Fatalf("history grew on rejected snapshots: %+v", h)
	}
	if pub.count() != 1 {
		t.Fatalf("rejected snapshots were published")
	}
}

func TestUnknownGreenhouse(t *testing.T) {
	sites := NewSites([]entities.Greenhouse{{ID: "gh-1"}})
	c, _, _ := newTestController(t, sites)
	if _, err := c.Evaluate(context.Background(), "gh-9", calm(), time.Time{}); !errors.Is(err, ErrUnknownGreenhouse) {
		t.Fatalf("expected ErrUnknownGreenhouse, got %v", err)
	}
	if _, err := c.Evaluate(context.Background(), "gh-1", calm(), time.Time{}); err != nil {
		t.Fatalf("known greenhouse rejected: %v", err)
	}
}

func TestAveragesFollowRetainedWindow(t *testing.T) {
	c, _, _ := newTestController(t, nil)
	var d messages.DecisionEvent
	for _, sm := range []int{10, 22, 35, 47, 58, 61, 73, 80} {
		var err error
		d, err = c.Evaluate(context.Background(), "gh-1", snapshot(sm, 500, 50, 25, 400), time.Time{})
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
	}
	h, _ := c.Store().Get("gh-1")
	if len(h.Moisture) != 5 || d.HistoryLen != 5 {
		t.Fatalf("retention not applied: %v", h.Moisture)
	}
	sma := smoothing.SimpleMovingAverage(h.Moisture)
	ema := smoothing.ExponentialMovingAverage(h.Moisture)
	if math.Abs(d.MoistureSMA-sma[4]) > 1e-9 || math.Abs(d.MoistureEMA-ema[4]) > 1e-9 {
		t.Fatalf("decision averages (%v, %v), batch (%v, %v)", d.MoistureSMA, d.MoistureEMA, sma[4], ema[4])
	}
}

func TestPublishFailureDoesNotFailCycle(t *testing.T) {
	c, pub, _ := newTestController(t, nil)
	pub.err = errors.New("broker down")
	if _, err := c.Evaluate(context.Background(), "gh-1", calm(), time.Time{}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if h, _ := c.Store().Get("gh-1"); len(h.Moisture) != 1 {
		t.Fatalf("history not recorded")
	}
}

func TestHandleSnapshot(t *testing.T) {
	c, pub, _ := newTestController(t, nil)

	ev := messages.SnapshotEvent{Readings: calm(), Timestamp: time.Now()}
	payload, _ := json.Marshal(ev)
	msg := fakeMessage{topic: "greenhouse/snapshot/gh-7", payload: payload}

	if err := c.HandleSnapshot("greenhouse/snapshot/#", msg); err != nil {
		t.Fatalf("HandleSnapshot: %v", err)
	}
	// redelivery
	if err := c.HandleSnapshot("greenhouse/snapshot/#", msg); err != nil {
		t.Fatalf("HandleSnapshot: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("expected one decision, got %d", pub.count())
	}
	if pub.msgs[0].topic != "greenhouse/decision/gh-7" {
		t.Fatalf("greenhouse not taken from topic: %s", pub.msgs[0].topic)
	}

	bad := fakeMessage{topic: "greenhouse/snapshot/gh-7", payload: []byte("{not json")}
	if err := c.HandleSnapshot("greenhouse/snapshot/#", bad); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("malformed payload produced a decision")
	}

	// identical readings without a timestamp are separate cycles
	plain, _ := json.Marshal(messages.SnapshotEvent{GreenhouseID: "gh-8", Readings: calm()})
	for i := 0; i < 2; i++ {
		_ = c.HandleSnapshot("greenhouse/snapshot/#", fakeMessage{topic: "greenhouse/snapshot/gh-8", payload: plain})
	}
	if h, _ := c.Store().Get("gh-8"); len(h.Moisture) != 2 {
		t.Fatalf("untimestamped repeats dropped: %v", h.Moisture)
	}
}

func TestGreenhouseFromTopic(t *testing.T) {
	cases := map[string]string{
		"greenhouse/snapshot/gh-1": "gh-1",
		"greenhouse/snapshot":      "",
		"/greenhouse/snapshot/x/":  "x",
	}
	for in, want := range cases {
		if got := greenhouseFromTopic(in); got != want {
			t.Errorf("greenhouseFromTopic(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSites(t *testing.T) {
	doc := []byte(`
greenhouses:
  - id: gh-1
    name: North tunnel
    retention: 50
  - id: gh-2
`)
	s, err := ParseSites(doc)
	if err != nil {
		t.Fatalf("ParseSites: %v", err)
	}
	if len(s.Greenhouses) != 2 || s.Greenhouses[0].Retention != 50 || s.Greenhouses[0].Name != "North tunnel" {
		t.Fatalf("unexpected sites %+v", s.Greenhouses)
	}
	if err := s.Check("gh-2"); err != nil {
		t.Fatalf("gh-2 rejected: %v", err)
	}
	if err := s.Check("gh-3"); !errors.Is(err, ErrUnknownGreenhouse) {
		t.Fatalf("gh-3 accepted")
	}

	if _, err := ParseSites([]byte("greenhouses:\n  - name: nameless\n")); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := NewSites(nil).Check("anything"); err != nil {
		t.Fatalf("open sites rejected id: %v", err)
	}
}
