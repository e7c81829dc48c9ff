package propagation

import (
	"time"

	"github.com/balhun/ISSTracker/internal/geo"
)

// Geodetic is a propagated sub-satellite position.
type Geodetic struct {
	Time       time.Time
	Point      geo.Point
	AltitudeKm float64
}
