package tle

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// ISS elements (epoch 2024 day 100.5) with valid checksums.
const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"
)

func TestParseElementSet(t *testing.T) {
	es, err := ParseElementSet(issName + "\n" + issLine1 + "\n" + issLine2 + "\n")
	if err != nil {
		t.Fatalf("ParseElementSet failed: %v", err)
	}
	if es.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", es.NORADID)
	}
	if es.Name != issName {
		t.Errorf("Name = %q, want %q", es.Name, issName)
	}
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC) // day 100.5 of a leap year
	if !es.Epoch.Equal(wantEpoch) {
		t.Errorf("Epoch = %v, want %v", es.Epoch, wantEpoch)
	}
	if es.Line1 != issLine1 || es.Line2 != issLine2 {
		t.Error("data lines not preserved")
	}
}

func TestParseElementSetCRLF(t *testing.T) {
	es, err := ParseElementSet(issName + "\r\n" + issLine1 + "\r\n" + issLine2 + "\r\n")
	if err != nil {
		t.Fatalf("ParseElementSet failed: %v", err)
	}
	if es.Line1 != issLine1 || es.Line2 != issLine2 {
		t.Errorf("CR not trimmed: %q / %q", es.Line1, es.Line2)
	}
}

func TestParseElementSetErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		tooShort bool
	}{
		{"empty", "", true},
		{"two lines", issLine1 + "\n" + issLine2, true},
		{"missing title shifts lines", issLine1 + "\n" + issLine2 + "\n", false},
		{"truncated line1", issName + "\n" + issLine1[:60] + "\n" + issLine2, false},
		{"swapped lines", issName + "\n" + issLine2 + "\n" + issLine1, false},
		{"bad checksum", issName + "\n" + issLine1[:68] + "0\n" + issLine2, false},
		{"catalog mismatch", issName + "\n" + issLine1 + "\n" + "2 25545" + issLine2[7:], false},
		{"garbage", "a\nb\nc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseElementSet(tt.text)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errors.Is(err, ErrTooFewLines); got != tt.tooShort {
				t.Errorf("errors.Is(err, ErrTooFewLines) = %v, want %v (err: %v)", got, tt.tooShort, err)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	if got := checksum(issLine1); got != 9 {
		t.Errorf("checksum(line1) = %d, want 9", got)
	}
	if got := checksum(issLine2); got != 1 {
		t.Errorf("checksum(line2) = %d, want 1", got)
	}
	// '-' counts as 1.
	line := "1" + strings.Repeat(" ", 66) + "-" + "0"
	if got := checksum(line); got != 2 {
		t.Errorf("checksum with minus = %d, want 2", got)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"00001.00000000", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"98067.25000000", time.Date(1998, 3, 8, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Errorf("parseEpoch(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "24", "xx100.5", "24abc"} {
		if _, err := parseEpoch(bad); err == nil {
			t.Errorf("parseEpoch(%q) expected error", bad)
		}
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Get() != nil {
		t.Fatal("new store should be empty")
	}
	if age := s.AgeSeconds(); age != -1 {
		t.Errorf("AgeSeconds on empty store = %v, want -1", age)
	}

	s.Set(&Dataset{Source: "test", FetchedAt: time.Now(), Elements: ElementSet{NORADID: 25544, Epoch: time.Now().Add(-time.Hour)}})
	if s.Get().Elements.NORADID != 25544 {
		t.Error("stored dataset not returned")
	}
	if age := s.AgeSeconds(); age < 3599 || age > 3700 {
		t.Errorf("AgeSeconds = %v, want ~3600", age)
	}
}
