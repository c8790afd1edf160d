package entities

// Channel names one sensor channel of a greenhouse.
type Channel string

const (
	SoilMoisture  Channel = "Soil Moisture"
	Light         Channel = "Light"
	Humidity      Channel = "Humidity"
	Temperature   Channel = "Temperature"
	CarbonDioxide Channel = "Carbon IV Oxide"
)

// Channels lists every channel a complete snapshot carries, in display order.
var Channels = []Channel{SoilMoisture, Light, Humidity, Temperature, CarbonDioxide}

// Snapshot holds one instant's readings keyed by channel. Values arrive as
// JSON numbers or numeric strings and are coerced by the rule evaluator.
type Snapshot map[Channel]any
