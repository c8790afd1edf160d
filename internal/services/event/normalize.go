package event

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the single measurement every event is written to.
const Measurement = "greenhouse_event"

// EventToPoint normalizza CommonEvent in un *write.Point per InfluxDB.
func EventToPoint(evt CommonEvent) *write.Point {
	tags := map[string]string{
		"event_type":     evt.EventType,
		"source_service": evt.SourceService,
		"severity":       evt.Severity,
	}
	if evt.GreenhouseID != "" {
		tags["greenhouse_id"] = evt.GreenhouseID
	}

	fields := map[string]interface{}{}
	for k, v := range evt.Fields {
		if v == nil {
			continue
		}
		fields[k] = v
	}
	// almeno un field per punto
	if _, ok := fields["count"]; !ok {
		fields["count"] = int64(1)
	}

	return influxdb2.NewPoint(Measurement, tags, fields, evt.Timestamp)
}
