package event

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	msg "github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/rabbitmq"
)

const (
	decisionPrefix    = "greenhouse/decision/"
	EventTypeDecision = "greenhouse.decision"
)

type CommonEvent struct {
	EventType     string // greenhouse.decision
	SourceService string // greenhouse-controller
	GreenhouseID  string
	Severity      string // info|warning|error
	Fields        map[string]interface{}
	Timestamp     time.Time
}

// MQTTHandler trasforma messaggi MQTT in CommonEvent e li passa a sink (Influx).
type MQTTHandler struct{ sink func(CommonEvent) }

func NewMQTTHandler(sink func(CommonEvent)) *MQTTHandler { return &MQTTHandler{sink: sink} }

func (h *MQTTHandler) Handle(_ string, m rabbitmq.Message) error {
	topic := m.Topic()
	if !strings.HasPrefix(topic, decisionPrefix) {
		return nil // ignora altri topic
	}
	evt, err := decodeDecision(topic, m.Payload())
	if err != nil {
		return err
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

// Severity maps an escalation level onto the event severity scale.
func Severity(escalation string) string {
	switch escalation {
	case "critical":
		return "error"
	case "suboptimal":
		return "warning"
	default:
		return "info"
	}
}

func decodeDecision(topic string, payload []byte) (CommonEvent, error) {
	var d msg.DecisionEvent
	if err := json.Unmarshal(payload, &d); err != nil {
		return CommonEvent{}, err
	}
	gh := d.GreenhouseID
	if strings.TrimSpace(gh) == "" {
		gh = strings.Trim(strings.TrimPrefix(topic, decisionPrefix), "/")
	}
	if gh == "" {
		return CommonEvent{}, errors.New("decision: missing greenhouse")
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return CommonEvent{
		EventType:     EventTypeDecision,
		SourceService: "greenhouse-controller",
		GreenhouseID:  gh,
		Severity:      Severity(d.Escalation),
		Fields: map[string]interface{}{
			"decision_id":     d.ID,
			"soil_moisture":   int64(d.SoilMoisture),
			"watering":        d.Watering,
			"watering_action": d.WateringAction,
			"shading":         d.Shading,
			"alert":           d.Alert,
			"alert_count":     int64(d.AlertCount),
			"escalation":      d.Escalation,
			"moisture_sma":    d.MoistureSMA,
			"moisture_ema":    d.MoistureEMA,
		},
		Timestamp: ts,
	}, nil
}
