package tle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lineLength is the fixed width of both TLE data lines.
const lineLength = 69

// ErrTooFewLines is returned when element text lacks the name line and both data lines.
var ErrTooFewLines = errors.New("element text has fewer than 3 lines")

// ParseElementSet parses the text returned by the element service: a title
// line followed by the two TLE data lines. Anything after the third line is
// ignored.
func ParseElementSet(text string) (ElementSet, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return ElementSet{}, fmt.Errorf("%w: got %d", ErrTooFewLines, len(lines))
	}

	name := strings.TrimSpace(lines[0])
	line1 := strings.TrimRight(lines[1], "\r ")
	line2 := strings.TrimRight(lines[2], "\r ")

	if err := ValidateLines(line1, line2); err != nil {
		return ElementSet{}, err
	}

	// NORAD catalog number lives in columns 3-7.
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid NORAD id %q: %w", noradStr, err)
	}

	// Epoch lives in columns 19-32.
	epochStr := strings.TrimSpace(line1[18:32])
	epoch, err := parseEpoch(epochStr)
	if err != nil {
		return ElementSet{}, err
	}

	return ElementSet{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// ValidateLines checks the layout of both data lines: width, line numbers,
// matching catalog numbers and the modulo-10 checksum in the last column.
func ValidateLines(line1, line2 string) error {
	if len(line1) != lineLength {
		return fmt.Errorf("line1 length %d, expected %d", len(line1), lineLength)
	}
	if len(line2) != lineLength {
		return fmt.Errorf("line2 length %d, expected %d", len(line2), lineLength)
	}
	if !strings.HasPrefix(line1, "1 ") {
		return fmt.Errorf("line1 must start with \"1 \", got %q", line1[:2])
	}
	if !strings.HasPrefix(line2, "2 ") {
		return fmt.Errorf("line2 must start with \"2 \", got %q", line2[:2])
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("catalog number mismatch: %q vs %q", line1[2:7], line2[2:7])
	}
	for i, line := range []string{line1, line2} {
		want, got := checksum(line), line[lineLength-1]
		if got < '0' || got > '9' || int(got-'0') != want {
			return fmt.Errorf("line%d checksum %q, expected %d", i+1, got, want)
		}
	}
	return nil
}

// checksum sums the digits of the first 68 columns, counting '-' as 1.
func checksum(line string) int {
	sum := 0
	for _, c := range line[:lineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
