package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for horizon geometry.
const EarthRadiusKm = 6371.0

// HorizonRadiusKm returns the straight-line distance from a satellite at
// altitude h (km) to its geometric horizon: sqrt(2·R·h + h²).
// Non-positive or non-finite altitudes yield 0.
func HorizonRadiusKm(altitudeKm float64) float64 {
	h := altitudeKm
	if !(h > 0) || math.IsInf(h, 0) {
		return 0
	}
	return math.Sqrt(2*EarthRadiusKm*h + h*h)
}

// HorizonRadiusMeters is HorizonRadiusKm in meters, the unit map circles use.
func HorizonRadiusMeters(altitudeKm float64) float64 {
	return HorizonRadiusKm(altitudeKm) * 1000
}

// CircleRing approximates a circle of radiusM meters around center with n
// vertices on a spherical Earth. The ring is closed (last vertex equals the
// first). Longitudes are left continuous so a ring straddling the
// antimeridian does not fold back across the map.
func CircleRing(center Point, radiusM float64, n int) []Point {
	if n < 3 {
		n = 3
	}
	delta := radiusM / (EarthRadiusKm * 1000)
	lat1 := center.Lat * math.Pi / 180
	lon1 := center.Lon * math.Pi / 180
	sinLat1, cosLat1 := math.Sin(lat1), math.Cos(lat1)
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	ring := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(n)
		sinLat2 := sinLat1*cosD + cosLat1*sinD*math.Cos(bearing)
		lat2 := math.Asin(sinLat2)
		lon2 := lon1 + math.Atan2(math.Sin(bearing)*sinD*cosLat1, cosD-sinLat1*sinLat2)
		ring = append(ring, Point{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi})
	}
	return append(ring, ring[0])
}
