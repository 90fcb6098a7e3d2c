package receipt

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for receipt records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// UUIDGenerator generates random UUID record IDs
type UUIDGenerator struct{}

func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// SystemClock provides the current wall-clock time
type SystemClock struct{}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}
