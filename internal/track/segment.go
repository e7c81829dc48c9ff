// Package track turns orbital elements into a drawable ground track: it
// samples the predicted sub-satellite points and splits them into polylines
// at antimeridian crossings.
package track

import (
	"math"

	"github.com/balhun/ISSTracker/internal/geo"
)

// maxLonJump is the largest longitude change between adjacent points that is
// still drawn as one line. Anything larger is treated as a wrap across ±180°.
// The value assumes the sampling step is fine enough that real motion between
// two samples stays well below it.
const maxLonJump = 180.0

// Segment is a run of points that can be drawn as one polyline without
// wrapping across the map.
type Segment []geo.Point

// SplitAtAntimeridian partitions points into segments, starting a new segment
// whenever two adjacent points differ in longitude by more than 180°.
// Concatenating the segments in order reproduces the input. An empty input
// yields no segments.
func SplitAtAntimeridian(points []geo.Point) []Segment {
	var segments []Segment
	var current Segment

	for _, p := range points {
		if len(current) > 0 {
			prev := current[len(current)-1]
			if math.Abs(p.Lon-prev.Lon) > maxLonJump {
				segments = append(segments, current)
				current = nil
			}
		}
		current = append(current, p)
	}

	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

// Flatten concatenates segments back into a single point sequence.
func Flatten(segments []Segment) []geo.Point {
	var n int
	for _, s := range segments {
		n += len(s)
	}
	out := make([]geo.Point, 0, n)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
