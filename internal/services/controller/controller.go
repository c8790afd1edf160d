// Package controller runs the greenhouse evaluation cycle: it ingests
// snapshots, applies the rules, keeps the bounded histories and publishes
// decisions and escalations.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/history"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/bus"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/rabbitmq"
)

const (
	defaultDecisionTopic    = "greenhouse/decision/{greenhouse}"
	defaultEscalationSubj   = "greenhouse.escalation."
	defaultHistoryRetention = 500
)

// Config holds the controller's tunables.
type Config struct {
	DecisionTopicTmpl string // "{greenhouse}" is replaced by the greenhouse ID
	EscalationPrefix  string // NATS subject prefix, level appended
	HistoryRetention  int
}

// Controller owns the per-greenhouse histories. Cycles are serialised.
type Controller struct {
	cfg       Config
	policy    rules.Policy
	store     *history.Store
	sites     *Sites
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	notifier  bus.Notifier
	metrics   *Metrics
	deduper   *dedup.Deduper

	mu     sync.Mutex
	latest map[string]messages.DecisionEvent

	newID func() string
}

// NewController wires a controller. consumer may be nil when snapshots only
// arrive over HTTP; notifier and metrics default to no-ops.
func NewController(cfg Config, consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, notifier bus.Notifier, sites *Sites, metrics *Metrics) (*Controller, error) {
	if publisher == nil {
		return nil, errors.New("controller: publisher is nil")
	}
	if notifier == nil {
		notifier = bus.Nop{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if sites == nil {
		sites = NewSites(nil)
	}
	if cfg.DecisionTopicTmpl == "" {
		cfg.DecisionTopicTmpl = defaultDecisionTopic
	}
	if cfg.EscalationPrefix == "" {
		cfg.EscalationPrefix = defaultEscalationSubj
	}
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = defaultHistoryRetention
	}

	store := history.NewStore(cfg.HistoryRetention)
	for _, g := range sites.Greenhouses {
		if g.Retention > 0 {
			store.SetRetention(g.ID, g.Retention)
		}
	}

	c := &Controller{
		cfg:       cfg,
		policy:    rules.DefaultPolicy(),
		store:     store,
		sites:     sites,
		consumer:  consumer,
		publisher: publisher,
		notifier:  notifier,
		metrics:   metrics,
		deduper:   dedup.New(10*time.Minute, 20000), // TTL 10m, cap 20k
		latest:    make(map[string]messages.DecisionEvent),
		newID:     func() string { return uuid.NewString() },
	}
	if consumer != nil {
		consumer.SetHandler(c.HandleSnapshot)
	}
	return c, nil
}

// Start consumes snapshots until ctx is done.
func (c *Controller) Start(ctx context.Context) {
	if c.consumer == nil {
		<-ctx.Done()
		return
	}
	c.consumer.ConsumeMessage(ctx)
}

// Policy returns the rules policy in use.
func (c *Controller) Policy() rules.Policy { return c.policy }

// Store exposes the histories for read-only queries.
func (c *Controller) Store() *history.Store { return c.store }

// Sites returns the configured greenhouse set.
func (c *Controller) Sites() *Sites { return c.sites }

// Latest returns the last decision taken for greenhouse id.
func (c *Controller) Latest(id string) (messages.DecisionEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.latest[id]
	return d, ok
}

// Evaluate runs one cycle for greenhouse id. The snapshot is validated and
// evaluated before anything is appended, so a rejected snapshot leaves the
// histories untouched. Publish failures are logged and counted but do not
// fail the cycle.
func (c *Controller) Evaluate(ctx context.Context, id string, snap entities.Snapshot, at time.Time) (messages.DecisionEvent, error) {
	start := time.Now()
	defer func() { c.metrics.evalDuration.Observe(time.Since(start).Seconds()) }()

	if err := c.sites.Check(id); err != nil {
		c.metrics.evalErrors.WithLabelValues("unknown_greenhouse").Inc()
		return messages.DecisionEvent{}, err
	}
	ev, err := c.policy.Evaluate(snap)
	if err != nil {
		c.metrics.evalErrors.WithLabelValues(errorReason(err)).Inc()
		return messages.DecisionEvent{}, fmt.Errorf("greenhouse %s: %w", id, err)
	}
	if at.IsZero() {
		at = time.Now()
	}

	c.mu.Lock()
	g := c.store.Record(id, float64(ev.Watering.SoilMoisture), ev.Alert)
	recent := g.Alerts.LastN(3)
	signal := rules.Escalate(recent)
	sma, ema, _ := g.Latest()
	d := messages.DecisionEvent{
		ID:             c.newID(),
		GreenhouseID:   id,
		SoilMoisture:   ev.Watering.SoilMoisture,
		Watering:       ev.Watering.Message,
		WateringAction: string(ev.Watering.Action),
		Shading:        string(ev.Shading),
		Alert:          ev.Alert,
		AlertCount:     ev.AlertCount,
		Escalation:     string(signal),
		MoistureSMA:    sma,
		MoistureEMA:    ema,
		HistoryLen:     g.Moisture.Len(),
		Timestamp:      at.UTC(),
	}
	c.latest[id] = d
	c.mu.Unlock()

	c.observe(d)
	c.publish(ctx, d, recent)
	return d, nil
}

func (c *Controller) observe(d messages.DecisionEvent) {
	c.metrics.decisions.WithLabelValues(d.GreenhouseID, "watering", d.WateringAction).Inc()
	c.metrics.decisions.WithLabelValues(d.GreenhouseID, "shading", d.Shading).Inc()
	c.metrics.decisions.WithLabelValues(d.GreenhouseID, "alert", fmt.Sprint(d.Alert)).Inc()
	c.metrics.moistureSMA.WithLabelValues(d.GreenhouseID).Set(d.MoistureSMA)
	c.metrics.moistureEMA.WithLabelValues(d.GreenhouseID).Set(d.MoistureEMA)
	c.metrics.historyLen.WithLabelValues(d.GreenhouseID).Set(float64(d.HistoryLen))
	if d.Escalation != string(rules.SignalNone) {
		c.metrics.escalations.WithLabelValues(d.GreenhouseID, d.Escalation).Inc()
	}
}

func (c *Controller) publish(ctx context.Context, d messages.DecisionEvent, recent []bool) {
	topic := strings.ReplaceAll(c.cfg.DecisionTopicTmpl, "{greenhouse}", d.GreenhouseID)
	if err := c.publisher.PublishTo(topic, 1, false, d); err != nil {
		c.metrics.publishErrs.Inc()
		log.Printf("controller: publish decision %s: %v", d.ID, err)
	}

	if d.Escalation == string(rules.SignalNone) || ctx.Err() != nil {
		return
	}
	e := messages.EscalationEvent{
		GreenhouseID: d.GreenhouseID,
		Level:        d.Escalation,
		DecisionID:   d.ID,
		RecentAlerts: recent,
		Timestamp:    d.Timestamp,
	}
	if err := c.notifier.Publish(c.cfg.EscalationPrefix+d.Escalation, e); err != nil {
		c.metrics.publishErrs.Inc()
		log.Printf("controller: notify escalation %s/%s: %v", d.GreenhouseID, d.Escalation, err)
	}
}

// HandleSnapshot is the MQTT handler for greenhouse/snapshot/#.
func (c *Controller) HandleSnapshot(topic string, msg rabbitmq.Message) error {
	var s messages.SnapshotEvent
	if err := json.Unmarshal(msg.Payload(), &s); err != nil {
		c.metrics.evalErrors.WithLabelValues("bad_payload").Inc()
		log.Printf("controller: bad payload on %s: %v", topic, err)
		return nil
	}
	// senza timestamp due letture uguali sono legittime: dedup solo se datato
	if !s.Timestamp.IsZero() && !c.deduper.ShouldProcessPayload(msg.Topic(), msg.Payload()) {
		c.metrics.duplicates.Inc()
		return nil
	}
	if s.GreenhouseID == "" {
		s.GreenhouseID = greenhouseFromTopic(msg.Topic())
	}

	d, err := c.Evaluate(context.Background(), s.GreenhouseID, s.Readings, s.Timestamp)
	if err != nil {
		log.Printf("controller: snapshot %s rejected: %v", s.GreenhouseID, err)
		return nil
	}
	log.Printf("controller: %s sm=%d watering=%q shading=%q alert=%v escalation=%s sma=%.2f ema=%.2f",
		d.GreenhouseID, d.SoilMoisture, d.Watering, d.Shading, d.Alert, d.Escalation, d.MoistureSMA, d.MoistureEMA)
	return nil
}

// greenhouseFromTopic takes the last segment of greenhouse/snapshot/{id}.
func greenhouseFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, rules.ErrMissingChannel):
		return "missing_channel"
	case errors.Is(err, rules.ErrInvalidNumeric):
		return "invalid_numeric"
	case errors.Is(err, ErrUnknownGreenhouse):
		return "unknown_greenhouse"
	default:
		return "other"
	}
}
