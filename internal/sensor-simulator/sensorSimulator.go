package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/rabbitmq"
)

// Effects of a decision on the simulated greenhouse, applied on the next tick.
const (
	waterBoost      = 15
	lightWaterBoost = 6
	shadeFullCut    = -400
	shadePartialCut = -150
	shadeOpenGain   = 150
)

type SensorSimulator struct {
	greenhouseID string
	topicTmpl    string
	generator    *DataGenerator
	publisher    rabbitmq.IPublisher
	consumer     rabbitmq.IConsumer
	deduper      *dedup.Deduper
	now          func() time.Time
}

// NewSensorSimulator publishes snapshots for greenhouseID on topicTmpl
// ("{greenhouse}" is replaced). consumer may be nil, in which case decisions
// do not feed back into the walk.
func NewSensorSimulator(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher,
	gen *DataGenerator, greenhouseID, topicTmpl string) *SensorSimulator {
	if topicTmpl == "" {
		topicTmpl = "greenhouse/snapshot/{greenhouse}"
	}
	return &SensorSimulator{
		greenhouseID: greenhouseID,
		topicTmpl:    topicTmpl,
		generator:    gen,
		publisher:    publisher,
		consumer:     consumer,
		deduper:      dedup.New(2*time.Minute, 10000), // TTL e cap
		now:          time.Now,
	}
}

// Start publishes one snapshot per interval until ctx is done.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleDecision)
		go s.consumer.ConsumeMessage(ctx)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-t.C:
			if err := s.PublishOnce(); err != nil {
				log.Printf("sensor: publish error: %v", err)
			}
		}
	}
}

// PublishOnce advances the generator and publishes the snapshot.
func (s *SensorSimulator) PublishOnce() error {
	evt := messages.SnapshotEvent{
		GreenhouseID: s.greenhouseID,
		Readings:     s.generator.Next(),
		Timestamp:    s.now().UTC(),
	}
	log.Printf("sensor: pub %s sm=%v light=%v hum=%v temp=%v co2=%v", s.greenhouseID,
		evt.Readings[entities.SoilMoisture], evt.Readings[entities.Light], evt.Readings[entities.Humidity],
		evt.Readings[entities.Temperature], evt.Readings[entities.CarbonDioxide])
	topic := strings.ReplaceAll(s.topicTmpl, "{greenhouse}", s.greenhouseID)
	return s.publisher.PublishTo(topic, 1, false, evt)
}

// handleDecision feeds the controller's actions back into the simulated climate.
func (s *SensorSimulator) handleDecision(_ string, msg rabbitmq.Message) error {
	// Dedup a payload: redelivery QoS1 ha lo stesso payload
	if !s.deduper.ShouldProcessPayload(msg.Topic(), msg.Payload()) {
		return nil
	}

	var d messages.DecisionEvent
	if err := json.Unmarshal(msg.Payload(), &d); err != nil {
		return fmt.Errorf("invalid DecisionEvent: %w", err)
	}
	if d.GreenhouseID != s.greenhouseID {
		return nil
	}
	s.apply(d)
	return nil
}

func (s *SensorSimulator) apply(d messages.DecisionEvent) {
	switch d.WateringAction {
	case "water":
		s.generator.Nudge(entities.SoilMoisture, waterBoost)
	case "light_water":
		s.generator.Nudge(entities.SoilMoisture, lightWaterBoost)
	}
	switch d.Shading {
	case "Close fully":
		s.generator.Nudge(entities.Light, shadeFullCut)
	case "Close partially":
		s.generator.Nudge(entities.Light, shadePartialCut)
	case "Opening shades":
		s.generator.Nudge(entities.Light, shadeOpenGain)
	}
}
