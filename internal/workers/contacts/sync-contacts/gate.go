package synccontacts

import (
	"time"
	_ "time/tzdata"
)

// Gate decides whether a run may touch external services at a given instant.
type Gate struct {
	location  *time.Location
	openHour  int
	closeHour int
}

func NewGate(location *time.Location, openHour, closeHour int) Gate {
	return Gate{location: location, openHour: openHour, closeHour: closeHour}
}

// IsWithinOperatingWindow is true on weekdays between openHour (inclusive) and closeHour (exclusive)
// in the gate's location. The instant may be in any zone.
func (g Gate) IsWithinOperatingWindow(now time.Time) bool {
	local := now.In(g.location)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	hour := local.Hour()
	return hour >= g.openHour && hour < g.closeHour
}
