package scene

import "github.com/balhun/ISSTracker/internal/geo"

// circleVertices is the polygon resolution used for horizon circles.
const circleVertices = 64

// FeatureCollection is an RFC 7946 feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single geometry with display properties.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds coordinates in [lon, lat] order. Coordinates is a
// position, a line or a list of rings depending on Type.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// GeoJSON renders the scene as a feature collection: the marker as a Point,
// each circle as a Polygon and each polyline as a LineString (a Point when
// the polyline holds a single sample).
func GeoJSON(s Scene) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	if s.Marker != nil {
		props := map[string]any{
			"kind":     "marker",
			"icon_url": s.Marker.Icon.URL,
		}
		if s.Info != nil {
			props["latitude"] = s.Info.Latitude
			props["longitude"] = s.Info.Longitude
			props["altitude_km"] = s.Info.AltitudeKm
			props["velocity_kmh"] = s.Info.VelocityKmh
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: position(s.Marker.Position)},
			Properties: props,
		})
	}

	for _, c := range s.Circles {
		ring := geo.CircleRing(c.Center, c.RadiusM, circleVertices)
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Polygon", Coordinates: [][][2]float64{line(ring)}},
			Properties: map[string]any{
				"kind":         "horizon",
				"radius_m":     c.RadiusM,
				"color":        c.Color,
				"fill_opacity": c.FillOpacity,
			},
		})
	}

	for i, pl := range s.Polylines {
		if len(pl.Points) == 0 {
			continue
		}
		// A LineString needs two positions; a lone sample beside a
		// crossing is emitted as a Point.
		geom := Geometry{Type: "LineString", Coordinates: line(pl.Points)}
		if len(pl.Points) == 1 {
			geom = Geometry{Type: "Point", Coordinates: position(pl.Points[0])}
		}
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: geom,
			Properties: map[string]any{
				"kind":       "ground_track",
				"segment":    i,
				"color":      pl.Color,
				"weight":     pl.Weight,
				"dash_array": pl.DashArray,
			},
		})
	}

	return fc
}

func position(p geo.Point) [2]float64 {
	return [2]float64{p.Lon, p.Lat}
}

func line(points []geo.Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = position(p)
	}
	return out
}
