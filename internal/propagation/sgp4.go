package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/balhun/ISSTracker/internal/geo"
	"github.com/balhun/ISSTracker/internal/tle"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go, no CGO, and it ships the sidereal time and ECI→geodetic helpers
// the ground track needs. Propagate() takes Satellite by value so SGP4 error
// codes are not visible to the caller; failures are detected by checking the
// output for NaN/Inf and unreasonable position magnitudes.

// SGP4Propagator wraps the go-satellite model for a single satellite.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator creates an SGP4 propagator from an element set.
//
// Lines are validated before they reach the library, because go-satellite
// calls log.Fatal on malformed input (which would kill the process).
func NewSGP4Propagator(es tle.ElementSet) (*SGP4Propagator, error) {
	if err := tle.ValidateLines(es.Line1, es.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", es.NORADID, err)
	}

	sat := satellite.TLEToSat(es.Line1, es.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", es.NORADID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: es.NORADID}, nil
}

// NORADID returns the catalog number of the wrapped satellite.
func (p *SGP4Propagator) NORADID() int {
	return p.noradID
}

// Propagate computes the sub-satellite point at t. The ECI position is
// rotated into the Earth-fixed frame with the Greenwich sidereal time at t.
func (p *SGP4Propagator) Propagate(t time.Time) (Geodetic, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return Geodetic{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	// Position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return Geodetic{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	alt, _, ll := satellite.ECIToLLA(pos, gmst)

	return Geodetic{
		Time: t,
		Point: geo.Point{
			Lat: ll.Latitude * 180 / math.Pi,
			Lon: geo.NormalizeLon(ll.Longitude * 180 / math.Pi),
		},
		AltitudeKm: alt,
	}, nil
}
