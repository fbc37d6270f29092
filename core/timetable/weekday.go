package timetable

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Weekday is the ISO day of the week, Monday=1 ... Sunday=7. The zero value means "no day".
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists every valid Weekday in ISO order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	name := weekdayNames[d]
	return strings.ToUpper(name[:1]) + name[1:]
}

// Name is the lowercase English name used on the wire.
func (d Weekday) Name() string {
	if !d.Valid() {
		return ""
	}
	return weekdayNames[d]
}

// Time converts d to the standard library's Sunday-first numbering.
func (d Weekday) Time() time.Weekday {
	return time.Weekday(int(d) % 7)
}

// WeekdayOf returns the day of the week of t.
func WeekdayOf(t time.Time) Weekday {
	if wd := t.Weekday(); wd != time.Sunday {
		return Weekday(wd)
	}
	return Sunday
}

// ParseWeekday accepts English names ("monday", "Mon") or ISO numbers ("1" to "7").
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if d := Weekday(n); d.Valid() {
			return d, nil
		}
		return 0, errors.Wrapf(ErrInvalidEntry, "unknown day of week %q", s)
	}
	if len(s) >= 3 {
		for _, d := range Weekdays {
			if strings.HasPrefix(weekdayNames[d], s) {
				return d, nil
			}
		}
	}
	return 0, errors.Wrapf(ErrInvalidEntry, "unknown day of week %q", s)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, errors.Wrapf(ErrInvalidEntry, "unknown day of week %d", int(d))
	}
	return []byte(weekdayNames[d]), nil
}

func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
