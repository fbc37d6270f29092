package timetable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MinutesPerDay is the exclusive upper bound of a clock time and the largest valid interval end.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidInterval = errors.New("invalid time interval")
	ErrInvalidClock    = errors.New("invalid clock time, expected HH:MM")
)

// Interval is the half-open range [start, end) of minutes since midnight within a single day.
// The zero value is not a valid Interval; use NewInterval.
type Interval struct {
	start int
	end   int
}

// NewInterval returns the interval [start, end).
// Both bounds must be within [0, 1440] and start must be strictly before end.
func NewInterval(start, end int) (Interval, error) {
	if start < 0 || start > MinutesPerDay || end < 0 || end > MinutesPerDay {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "bounds must be within [0, %d], got [%d, %d)", MinutesPerDay, start, end)
	}
	if start >= end {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "start %s must be before end %s", FormatClock(start), FormatClock(end))
	}
	return Interval{start: start, end: end}, nil
}

// MustInterval is like NewInterval but panics on invalid bounds.
func MustInterval(start, end int) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) Start() int { return iv.start }

func (iv Interval) End() int { return iv.end }

// Minutes is the length of the interval.
func (iv Interval) Minutes() int { return iv.end - iv.start }

func (iv Interval) Valid() bool {
	return iv.start >= 0 && iv.end <= MinutesPerDay && iv.start < iv.end
}

// Overlaps reports whether the two intervals share at least one minute.
// Back-to-back intervals (one ends when the other starts) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.start < other.end && other.start < iv.end
}

// Intersect returns the common part of both intervals, if any.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	if !iv.Overlaps(other) {
		return Interval{}, false
	}
	start, end := iv.start, iv.end
	if other.start > start {
		start = other.start
	}
	if other.end < end {
		end = other.end
	}
	return Interval{start: start, end: end}, true
}

func (iv Interval) String() string {
	return FormatClock(iv.start) + "-" + FormatClock(iv.end)
}

type intervalJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalJSON{Start: FormatClock(iv.start), End: FormatClock(iv.end)})
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var raw intervalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := parseBounds(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

// ParseClock converts a "HH:MM" clock time into minutes since midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, errors.Wrapf(ErrInvalidClock, "%q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseInterval parses "HH:MM-HH:MM".
func ParseInterval(s string) (Interval, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "%q, expected HH:MM-HH:MM", s)
	}
	return parseBounds(parts[0], parts[1])
}

func parseBounds(start, end string) (Interval, error) {
	from, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(from, to)
}
