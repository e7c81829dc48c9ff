// Package scene composes what the map shows at one instant: base map
// options, the satellite marker, two horizon circles, the dashed ground
// track and the info panel.
package scene

import (
	"time"

	"github.com/balhun/ISSTracker/internal/geo"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/track"
)

// BaseMap configures the tile layer and the map viewport.
type BaseMap struct {
	TileURL            string       `json:"tile_url"`
	Attribution        string       `json:"attribution"`
	NoWrap             bool         `json:"no_wrap"`
	TileBounds         [2]geo.Point `json:"tile_bounds"`
	MaxBounds          [2]geo.Point `json:"max_bounds"`
	// MaxBoundsViscosity of 1 stops panning at MaxBounds.
	MaxBoundsViscosity float64      `json:"max_bounds_viscosity"`
	Center             geo.Point    `json:"center"`
	Zoom               float64      `json:"zoom"`
	MinZoom            float64      `json:"min_zoom"`
	MaxZoom            float64      `json:"max_zoom"`
	Background         string       `json:"background"`
	ZoomControl        bool         `json:"zoom_control"`
	DoubleClickZoom    bool         `json:"double_click_zoom"`
	Keyboard           bool         `json:"keyboard"`
}

// Icon is the marker image. Sizes and anchors are in pixels.
type Icon struct {
	URL         string `json:"url"`
	Size        [2]int `json:"size"`
	Anchor      [2]int `json:"anchor"`
	PopupAnchor [2]int `json:"popup_anchor"`
}

// Marker places the icon at the current position.
type Marker struct {
	Position geo.Point `json:"position"`
	Icon     Icon      `json:"icon"`
}

// Circle is a horizon circle. Radius is in meters.
type Circle struct {
	Center      geo.Point `json:"center"`
	RadiusM     float64   `json:"radius_m"`
	Color       string    `json:"color"`
	FillColor   string    `json:"fill_color,omitempty"`
	FillOpacity float64   `json:"fill_opacity"`
}

// Polyline is one antimeridian-free piece of the ground track.
type Polyline struct {
	Points    []geo.Point `json:"points"`
	Color     string      `json:"color"`
	Weight    int         `json:"weight"`
	DashArray string      `json:"dash_array"`
}

// Info is the text panel. Values are rounded for display.
type Info struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeKm  float64 `json:"altitude_km"`
	VelocityKmh float64 `json:"velocity_kmh"`
	Visibility  string  `json:"visibility,omitempty"`
}

// Scene is everything the front end draws. Marker, Circles and Info are
// absent until the first telemetry snapshot; Polylines are absent while no
// orbit is available.
type Scene struct {
	GeneratedAt  time.Time  `json:"generated_at"`
	BaseMap      BaseMap    `json:"base_map"`
	Marker       *Marker    `json:"marker,omitempty"`
	Circles      []Circle   `json:"circles"`
	Polylines    []Polyline `json:"polylines"`
	Info         *Info      `json:"info,omitempty"`
	ObservedAt   *time.Time `json:"observed_at,omitempty"`
	OrbitStart   *time.Time `json:"orbit_start,omitempty"`
	ElementEpoch *time.Time `json:"element_epoch,omitempty"`
}

// Options holds the fixed presentation constants.
type Options struct {
	BaseMap BaseMap
	Icon    Icon

	OuterColor       string
	OuterFillColor   string
	OuterFillOpacity float64
	InnerColor       string
	InnerRatio       float64

	TrackColor     string
	TrackWeight    int
	TrackDashArray string
}

// DefaultOptions returns the standard map styling.
func DefaultOptions() Options {
	return Options{
		BaseMap: BaseMap{
			TileURL:            "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution:        `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			NoWrap:             true,
			TileBounds:         [2]geo.Point{{Lat: -85, Lon: -180}, {Lat: 85, Lon: 180}},
			MaxBounds:          [2]geo.Point{{Lat: -90, Lon: -180}, {Lat: 90, Lon: 180}},
			MaxBoundsViscosity: 1.0,
			Center:             geo.Point{Lat: 20, Lon: 15},
			Zoom:               2.5,
			MinZoom:            2,
			MaxZoom:            4,
			Background:         "#aad3df",
			ZoomControl:        false,
			DoubleClickZoom:    false,
			Keyboard:           false,
		},
		Icon: Icon{
			URL:         "https://upload.wikimedia.org/wikipedia/commons/d/d0/International_Space_Station.svg",
			Size:        [2]int{50, 32},
			Anchor:      [2]int{25, 16},
			PopupAnchor: [2]int{0, -16},
		},
		OuterColor:       "blue",
		OuterFillColor:   "blue",
		OuterFillOpacity: 0.1,
		InnerColor:       "aqua",
		InnerRatio:       0.6,
		TrackColor:       "blue",
		TrackWeight:      2,
		TrackDashArray:   "8 8",
	}
}

// Compose builds a scene from the latest snapshot and orbit. Either may be
// nil; the corresponding layers are then left out.
func Compose(snap *telemetry.Snapshot, orbit *track.Orbit, opts Options) Scene {
	s := Scene{
		GeneratedAt: time.Now().UTC(),
		BaseMap:     opts.BaseMap,
		Circles:     []Circle{},
		Polylines:   []Polyline{},
	}

	if snap != nil {
		pos := snap.Position()
		s.Marker = &Marker{Position: pos, Icon: opts.Icon}

		radius := geo.HorizonRadiusMeters(snap.Altitude)
		s.Circles = append(s.Circles,
			Circle{
				Center:      pos,
				RadiusM:     radius,
				Color:       opts.OuterColor,
				FillColor:   opts.OuterFillColor,
				FillOpacity: opts.OuterFillOpacity,
			},
			Circle{
				Center:  pos,
				RadiusM: radius * opts.InnerRatio,
				Color:   opts.InnerColor,
			},
		)

		info := InfoFor(*snap)
		s.Info = &info
		ts := snap.Timestamp
		s.ObservedAt = &ts
	}

	if orbit != nil {
		for _, seg := range orbit.Segments {
			s.Polylines = append(s.Polylines, Polyline{
				Points:    seg,
				Color:     opts.TrackColor,
				Weight:    opts.TrackWeight,
				DashArray: opts.TrackDashArray,
			})
		}
		start, epoch := orbit.Start, orbit.Epoch
		s.OrbitStart = &start
		s.ElementEpoch = &epoch
	}

	return s
}

// InfoFor rounds a snapshot for the info panel: latitude and longitude to
// 4 decimals, altitude and velocity to 1.
func InfoFor(snap telemetry.Snapshot) Info {
	return Info{
		Latitude:    geo.Round(snap.Latitude, 4),
		Longitude:   geo.Round(snap.Longitude, 4),
		AltitudeKm:  geo.Round(snap.Altitude, 1),
		VelocityKmh: geo.Round(snap.Velocity, 1),
		Visibility:  snap.Visibility,
	}
}
