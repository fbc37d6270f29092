package timetable

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

// uidNamespace keeps calendar UIDs stable across exports.
var uidNamespace = uuid.MustParse("6f1d2a4e-3c5b-4f7a-9e8d-1b2c3d4e5f60")

var icalDays = [...]string{"", "MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// Term is the inclusive range of dates during which the weekly timetable applies.
type Term struct {
	Start time.Time
	End   time.Time
}

// NewTerm parses two YYYY-MM-DD dates in loc.
func NewTerm(start, end string, loc *time.Location) (Term, error) {
	from, err := time.ParseInLocation(core.DateLayout, start, loc)
	if err != nil {
		return Term{}, errors.Wrap(err, "parsing term start")
	}
	to, err := time.ParseInLocation(core.DateLayout, end, loc)
	if err != nil {
		return Term{}, errors.Wrap(err, "parsing term end")
	}
	if to.Before(from) {
		return Term{}, errors.Errorf("term ends (%s) before it starts (%s)", end, start)
	}
	return Term{Start: from, End: to}, nil
}

// last is the last instant of the term.
func (t Term) last() time.Time {
	return time.Date(t.End.Year(), t.End.Month(), t.End.Day(), 23, 59, 59, 0, t.End.Location())
}

// Occurrence is one dated instance of a weekly entry.
type Occurrence struct {
	EntryID    int64      `json:"entry_id"`
	Subject    string     `json:"subject"`
	LessonType LessonType `json:"lesson_type"`
	Resources  Resources  `json:"resources"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
}

func at(day time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
}

// weeklyRule returns the RRULE of the entry within the term and its occurrence start times.
func weeklyRule(e Entry, term Term, loc *time.Location) (string, []time.Time, error) {
	rule := fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;UNTIL=%s", icalDays[e.Day], formatICalUTC(term.last()))
	rr, err := rrule.StrToRRule(rule)
	if err != nil {
		return "", nil, errors.Wrapf(err, "parsing rule %q", rule)
	}
	rr.DTStart(at(term.Start, e.Interval.Start(), loc))
	return rule, rr.Between(at(term.Start, 0, loc), term.last(), true), nil
}

// Occurrences expands the weekly entries into dated occurrences within the term, ordered by start time.
func Occurrences(entries []Entry, term Term, loc *time.Location) ([]Occurrence, error) {
	var occs []Occurrence
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, errors.Wrapf(err, "entry %d", e.ID)
		}
		_, starts, err := weeklyRule(e, term, loc)
		if err != nil {
			return nil, err
		}
		for _, start := range starts {
			occs = append(occs, Occurrence{
				EntryID:    e.ID,
				Subject:    e.Subject,
				LessonType: e.LessonType,
				Resources:  e.Resources,
				StartsAt:   start,
				EndsAt:     at(start, e.Interval.End(), loc),
			})
		}
	}
	sort.SliceStable(occs, func(i, j int) bool {
		if !occs[i].StartsAt.Equal(occs[j].StartsAt) {
			return occs[i].StartsAt.Before(occs[j].StartsAt)
		}
		return occs[i].EntryID < occs[j].EntryID
	})
	return occs, nil
}

// ExportICal renders the entries as an iCalendar feed with one weekly recurring event per entry.
// Entries whose day never occurs within the term are left out.
func ExportICal(entries []Entry, term Term, loc *time.Location, calName string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//ProgresSpace//Timetable Export//EN\r\n")
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICalText(calName)))
	buf.WriteString(fmt.Sprintf("X-WR-TIMEZONE:%s\r\n", loc))

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, errors.Wrapf(err, "entry %d", e.ID)
		}
		rule, starts, err := weeklyRule(e, term, loc)
		if err != nil {
			return nil, err
		}
		if len(starts) == 0 {
			continue
		}
		first := starts[0]

		stamp := e.UpdatedAt
		if stamp.IsZero() {
			stamp = term.Start
		}

		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@progresspace\r\n", uuid.NewSHA1(uidNamespace, []byte(strconv.FormatInt(e.ID, 10)))))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalUTC(stamp)))
		buf.WriteString(fmt.Sprintf("DTSTART%s\r\n", formatICalLocal(first, loc)))
		buf.WriteString(fmt.Sprintf("DTEND%s\r\n", formatICalLocal(at(first, e.Interval.End(), loc), loc)))
		buf.WriteString(fmt.Sprintf("RRULE:%s\r\n", rule))
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(summary(e))))
		if rooms := e.Resources.IDs(KindRoom); len(rooms) > 0 {
			buf.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICalText(strings.Join(rooms, ", "))))
		}
		buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(e.Resources.String())))
		buf.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", strings.ToUpper(string(e.LessonType))))
		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")
	return buf.Bytes(), nil
}

func summary(e Entry) string {
	if e.Subject != "" {
		return e.Subject
	}
	if e.LessonType != "" {
		return strings.ToUpper(string(e.LessonType[:1])) + string(e.LessonType[1:])
	}
	return string(Lecture)
}

func formatICalUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatICalLocal returns the value part of DTSTART/DTEND, including the TZID parameter outside UTC.
func formatICalLocal(t time.Time, loc *time.Location) string {
	if loc == time.UTC {
		return ":" + formatICalUTC(t)
	}
	return fmt.Sprintf(";TZID=%s:%s", loc, t.In(loc).Format("20060102T150405"))
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
