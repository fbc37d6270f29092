package report

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

var (
	ErrUnknownStatus = errors.New("unknown attendance status")
	ErrNoRecords     = errors.New("no records to summarize")
)

// AttendanceStatus is the outcome of one roll call.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
	Excused AttendanceStatus = "excused"
)

var AttendanceStatuses = []AttendanceStatus{Present, Absent, Late, Excused}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}
	return false
}

// Attended reports whether the student was in class, late or not.
func (s AttendanceStatus) Attended() bool {
	switch s {
	case Present, Late:
		return true
	case Absent, Excused:
		return false
	}
	return false
}

type AttendanceRecord struct {
	StudentID string           `json:"student_id" validate:"required"`
	Date      string           `json:"date" validate:"required,isodate"`
	Status    AttendanceStatus `json:"status" validate:"required,attendance"`
}

type AttendanceSummary struct {
	Total       int                          `json:"total"`
	Counts      map[AttendanceStatus]int     `json:"counts"`
	Percentages map[AttendanceStatus]float64 `json:"percentages"`
	Rate        float64                      `json:"rate"` // attended over total, in percent
}

// SummarizeAttendance breaks the records down per status. Percentages are rounded to two decimals.
func SummarizeAttendance(records []AttendanceRecord) (AttendanceSummary, error) {
	if len(records) == 0 {
		return AttendanceSummary{}, ErrNoRecords
	}

	summary := AttendanceSummary{
		Total:       len(records),
		Counts:      make(map[AttendanceStatus]int, len(AttendanceStatuses)),
		Percentages: make(map[AttendanceStatus]float64, len(AttendanceStatuses)),
	}
	for _, s := range AttendanceStatuses {
		summary.Counts[s] = 0
	}

	var attended int
	for _, r := range records {
		if !r.Status.Valid() {
			return AttendanceSummary{}, errors.Wrapf(ErrUnknownStatus, "%q for student %s", r.Status, r.StudentID)
		}
		summary.Counts[r.Status]++
		if r.Status.Attended() {
			attended++
		}
	}
	for s, n := range summary.Counts {
		summary.Percentages[s] = percent(n, summary.Total)
	}
	summary.Rate = percent(attended, summary.Total)
	return summary, nil
}

// AttendanceRequest is the payload of the attendance summary endpoint.
type AttendanceRequest struct {
	Records []AttendanceRecord `json:"records" validate:"required,min=1,dive"`
}

// DailyRates returns the attendance rate of every date in the records, keyed by YYYY-MM-DD.
func DailyRates(records []AttendanceRecord) (map[string]float64, error) {
	byDate := make(map[string][]AttendanceRecord)
	for _, r := range records {
		if _, err := time.Parse(core.DateLayout, r.Date); err != nil {
			return nil, errors.Wrapf(err, "record of student %s", r.StudentID)
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	rates := make(map[string]float64, len(byDate))
	for date, recs := range byDate {
		summary, err := SummarizeAttendance(recs)
		if err != nil {
			return nil, err
		}
		rates[date] = summary.Rate
	}
	return rates, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(n) * 100 / float64(total))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
