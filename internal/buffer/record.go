package buffer

import "time"

// timeColumn is the storage layout for record timestamps: UTC with fixed
// millisecond precision, so lexicographic comparison in SQL matches
// chronological order for the range delete.
const timeColumn = "2006-01-02T15:04:05.000Z"

// Record is one durable unit awaiting delivery. Once inserted it is immutable
// until the delivery pipeline deletes it after server acknowledgement. The
// JSON field names follow the ingestion service's metrics schema.
type Record struct {
	Time                 time.Time      `json:"time"`
	ClientID             string         `json:"client_id"`
	Latitude             float64        `json:"latitude"`
	Longitude            float64        `json:"longitude"`
	SpeedOverGround      float64        `json:"speedoverground"`
	CourseOverGroundTrue float64        `json:"courseovergroundtrue"`
	WindSpeedApparent    float64        `json:"windspeedapparent"`
	WindAngleApparent    float64        `json:"anglespeedapparent"`
	Status               string         `json:"status"`
	Metrics              map[string]any `json:"metrics"`
}

// FormatTime renders a timestamp in the storage layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeColumn)
}

// ParseTime parses a timestamp in the storage layout.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeColumn, s)
}
