package domain

// EntityType classifies a named entity referenced by a data point.
type EntityType string

// Entity types.
const (
	EntityCompany    EntityType = "company"
	EntityPerson     EntityType = "person"
	EntityTechnology EntityType = "technology"
	EntityProduct    EntityType = "product"
	EntityLocation   EntityType = "location"
)

// Entity is a named entity extracted from a data point.
type Entity struct {
	Type      EntityType `json:"type"`
	Name      string     `json:"name"`
	Relevance float64    `json:"relevance"` // 0..1
}

// DataPoint is one raw observation consumed by the engine.
// Timestamp and Source are required; all other fields are optional and
// treated as zero-value when absent. A DataPoint is immutable once ingested:
// detectors borrow it read-only and must not mutate it.
type DataPoint struct {
	TimestampMs int64  `json:"timestamp_ms"` // Unix timestamp in milliseconds
	Source      string `json:"source"`       // originating source identifier

	Value     *float64 `json:"value,omitempty"` // optional scalar (price, count, index level)
	Volume    float64  `json:"volume"`          // mention/trade volume
	Sentiment float64  `json:"sentiment"`       // -1..1
	Velocity  float64  `json:"velocity"`        // rate of change of activity

	Keywords   []string `json:"keywords,omitempty"`
	Entities   []Entity `json:"entities,omitempty"`
	Geography  []string `json:"geography,omitempty"`
	Industries []string `json:"industries,omitempty"`
}
