// Package telemetry retrieves the live position of the station and keeps the
// most recent good reading on a fixed polling cadence.
package telemetry

import (
	"time"

	"github.com/balhun/ISSTracker/internal/geo"
)

// Snapshot is one reading from the telemetry service, kept at full precision.
type Snapshot struct {
	Latitude   float64   `json:"latitude"`   // degrees
	Longitude  float64   `json:"longitude"`  // degrees
	Altitude   float64   `json:"altitude"`   // km
	Velocity   float64   `json:"velocity"`   // km/h
	Visibility string    `json:"visibility,omitempty"`
	Footprint  float64   `json:"footprint,omitempty"` // km, as reported by the service
	Timestamp  time.Time `json:"timestamp"`           // service timestamp
	ReceivedAt time.Time `json:"received_at"`
}

// Position returns the sub-satellite point.
func (s Snapshot) Position() geo.Point {
	return geo.Point{Lat: s.Latitude, Lon: s.Longitude}
}
