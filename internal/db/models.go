package db

import (
	"time"
)

// TimestampLayout is the ISO-8601 UTC form used for stored and served
// timestamps. Fixed millisecond width keeps text columns sortable.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Now returns the current time truncated to the stored precision
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// EnergyReading represents a sensor reading in the database
type EnergyReading struct {
	ID          int64
	SensorID    string
	PowerOutput float64
	Temperature *float64
	Location    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReading holds the client-supplied columns of a reading to insert
type NewReading struct {
	SensorID    string
	PowerOutput float64
	Temperature *float64
	Location    *string
}

// NullableFloat is a patch value for a nullable REAL column.
// Set=false leaves the column unchanged; Set=true with a nil Value writes NULL.
type NullableFloat struct {
	Set   bool
	Value *float64
}

// NullableString is a patch value for a nullable TEXT column
type NullableString struct {
	Set   bool
	Value *string
}

// ReadingPatch lists the columns a partial update changes
type ReadingPatch struct {
	SensorID    *string
	PowerOutput *float64
	Temperature NullableFloat
	Location    NullableString
}

// Empty reports whether the patch changes no client column
func (p ReadingPatch) Empty() bool {
	return p.SensorID == nil && p.PowerOutput == nil && !p.Temperature.Set && !p.Location.Set
}

// AuditLogEntry represents an audit record in the database.
// Details holds the serialized JSON payload; nil means no details.
type AuditLogEntry struct {
	ID        int64
	Op        string
	Duration  float64
	Details   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
