package track

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/balhun/ISSTracker/internal/geo"
)

func pts(pairs ...[2]float64) []geo.Point {
	out := make([]geo.Point, len(pairs))
	for i, p := range pairs {
		out[i] = geo.Point{Lat: p[0], Lon: p[1]}
	}
	return out
}

func TestSplitAtAntimeridian(t *testing.T) {
	tests := []struct {
		name  string
		input []geo.Point
		want  []Segment
	}{
		{
			name:  "empty",
			input: nil,
			want:  nil,
		},
		{
			name:  "single point",
			input: pts([2]float64{5, 5}),
			want:  []Segment{pts([2]float64{5, 5})},
		},
		{
			name:  "crossing eastward",
			input: pts([2]float64{0, 170}, [2]float64{0, 175}, [2]float64{0, -175}, [2]float64{0, -170}),
			want: []Segment{
				pts([2]float64{0, 170}, [2]float64{0, 175}),
				pts([2]float64{0, -175}, [2]float64{0, -170}),
			},
		},
		{
			name:  "no crossing",
			input: pts([2]float64{10, 0}, [2]float64{20, 10}, [2]float64{30, 20}),
			want:  []Segment{pts([2]float64{10, 0}, [2]float64{20, 10}, [2]float64{30, 20})},
		},
		{
			name:  "exactly 180 stays joined",
			input: pts([2]float64{0, -90}, [2]float64{0, 90}),
			want:  []Segment{pts([2]float64{0, -90}, [2]float64{0, 90})},
		},
		{
			name:  "crossing westward twice",
			input: pts([2]float64{0, -179}, [2]float64{1, 179}, [2]float64{2, 178}, [2]float64{3, -178}),
			want: []Segment{
				pts([2]float64{0, -179}),
				pts([2]float64{1, 179}, [2]float64{2, 178}),
				pts([2]float64{3, -178}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitAtAntimeridian(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitAtAntimeridian() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSplitAtAntimeridianProperties checks the partition invariants on random walks.
func TestSplitAtAntimeridianProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(60)
		input := make([]geo.Point, n)
		lon := rng.Float64()*360 - 180
		for i := range input {
			// Mix small steps with occasional wraps.
			lon = geo.NormalizeLon(lon + rng.Float64()*40 - 10)
			input[i] = geo.Point{Lat: rng.Float64()*180 - 90, Lon: lon}
		}

		segments := SplitAtAntimeridian(input)

		if n == 0 {
			if len(segments) != 0 {
				t.Fatalf("trial %d: empty input produced %d segments", trial, len(segments))
			}
			continue
		}

		flat := Flatten(segments)
		if !reflect.DeepEqual(flat, input) {
			t.Fatalf("trial %d: concatenated segments do not reproduce input", trial)
		}

		for si, seg := range segments {
			if len(seg) == 0 {
				t.Fatalf("trial %d: segment %d is empty", trial, si)
			}
			for i := 1; i < len(seg); i++ {
				if d := math.Abs(seg[i].Lon - seg[i-1].Lon); d > 180 {
					t.Fatalf("trial %d: segment %d has jump of %.2f°", trial, si, d)
				}
			}
		}

		// Boundaries only occur at jumps.
		for si := 1; si < len(segments); si++ {
			prev := segments[si-1][len(segments[si-1])-1]
			next := segments[si][0]
			if math.Abs(next.Lon-prev.Lon) <= 180 {
				t.Fatalf("trial %d: split between %.2f and %.2f without a wrap", trial, prev.Lon, next.Lon)
			}
		}
	}
}
