package timetable

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

var ErrInvalidEntry = errors.New("invalid schedule entry")

// LessonType categorizes an entry.
type LessonType string

const (
	Lecture LessonType = "lecture"
	Seminar LessonType = "seminar"
	Lab     LessonType = "lab"
	Exam    LessonType = "exam"
)

var LessonTypes = []LessonType{Lecture, Seminar, Lab, Exam}

func (lt LessonType) Valid() bool {
	switch lt {
	case Lecture, Seminar, Lab, Exam:
		return true
	}
	return false
}

// ParseLessonType returns Lecture for an empty string.
func ParseLessonType(s string) (LessonType, error) {
	s = core.CleanString(s, true /* lower */)
	if s == "" {
		return Lecture, nil
	}
	if lt := LessonType(s); lt.Valid() {
		return lt, nil
	}
	return "", errors.Wrapf(ErrInvalidEntry, "unknown lesson type %q", s)
}

// Entry is one weekly slot of the timetable.
type Entry struct {
	ID         int64      `json:"id"` // 0 until persisted
	Day        Weekday    `json:"day"`
	Interval   Interval   `json:"interval"`
	Resources  Resources  `json:"resources"`
	Subject    string     `json:"subject"`
	LessonType LessonType `json:"lesson_type"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// NewEntry builds a candidate entry (ID 0) and validates it.
func NewEntry(day Weekday, iv Interval, res Resources) (Entry, error) {
	e := Entry{Day: day, Interval: iv, Resources: res, LessonType: Lecture}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the entry's own invariants: a known day, a valid interval and at least one valid resource key.
func (e Entry) Validate() error {
	if !e.Day.Valid() {
		return errors.Wrapf(ErrInvalidEntry, "unknown day of week %d", int(e.Day))
	}
	if !e.Interval.Valid() {
		return errors.Wrapf(ErrInvalidInterval, "%s", e.Interval)
	}
	if len(e.Resources) == 0 {
		return errors.Wrap(ErrInvalidEntry, "at least one resource key is required")
	}
	for _, k := range e.Resources {
		if err := k.validate(); err != nil {
			return err
		}
	}
	if e.LessonType != "" && !e.LessonType.Valid() {
		return errors.Wrapf(ErrInvalidEntry, "unknown lesson type %q", e.LessonType)
	}
	return nil
}

func (e Entry) String() string {
	return e.Day.String() + " " + e.Interval.String() + " (" + e.Resources.String() + ")"
}

// EntryInput contains information needed to create or replace an Entry.
type EntryInput struct {
	Day        string `json:"day" validate:"required,weekday"`
	Start      string `json:"start" validate:"required,clock"`
	End        string `json:"end" validate:"required,clock"`
	TeacherID  string `json:"teacher_id" validate:"max=64"`
	RoomID     string `json:"room_id" validate:"max=64"`
	ClassID    string `json:"class_id" validate:"max=64"`
	Subject    string `json:"subject" validate:"max=128"`
	LessonType string `json:"lesson_type" validate:"omitempty,lessontype"`
}

func (in *EntryInput) Clean() {
	in.Day = core.CleanString(in.Day, true /* lower */)
	in.Start = core.CleanString(in.Start)
	in.End = core.CleanString(in.End)
	in.TeacherID = core.CleanString(in.TeacherID)
	in.RoomID = core.CleanString(in.RoomID)
	in.ClassID = core.CleanString(in.ClassID)
	in.Subject = core.CleanString(in.Subject)
	in.LessonType = core.CleanString(in.LessonType, true /* lower */)
}

// Validate cleans and validates the input, then makes sure it converts into a valid Entry.
func (in *EntryInput) Validate(validate *validator.Validate) error {
	in.Clean()
	if err := validate.Struct(in); err != nil {
		return err
	}
	_, err := in.Entry()
	return err
}

// Entry converts the input into a candidate Entry.
// Domain errors are returned as *core.ValidationError so that they can be shown next to the form field.
func (in EntryInput) Entry() (Entry, error) {
	day, err := ParseWeekday(in.Day)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "day", Error: "unknown day of week"})
	}
	start, err := ParseClock(in.Start)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "start", Error: "must be a time in the HH:MM format"})
	}
	end, err := ParseClock(in.End)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "end", Error: "must be a time in the HH:MM format"})
	}
	iv, err := NewInterval(start, end)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "end", Error: "end must be after start"})
	}

	var keys []ResourceKey
	if in.TeacherID != "" {
		keys = append(keys, Teacher(in.TeacherID))
	}
	if in.RoomID != "" {
		keys = append(keys, Room(in.RoomID))
	}
	if in.ClassID != "" {
		keys = append(keys, Class(in.ClassID))
	}
	res, err := NewResources(keys...)
	if err != nil {
		return Entry{}, core.NewValidationError(err)
	}
	lt, err := ParseLessonType(in.LessonType)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "lesson_type", Error: "unknown lesson type"})
	}

	e, err := NewEntry(day, iv, res)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "resources", Error: resourceRequiredText})
	}
	e.Subject = in.Subject
	e.LessonType = lt
	return e, nil
}

// CheckInput is the payload of a dry-run conflict check.
type CheckInput struct {
	EntryInput
	ExcludeID int64 `json:"exclude_id" validate:"gte=0"`
}

// QueryFilter narrows listings down to one day and/or the entries booking any of the given resources.
type QueryFilter struct {
	Day     string `query:"day"`
	Teacher string `query:"teacher"`
	Room    string `query:"room"`
	Class   string `query:"class"`
}

func (qf *QueryFilter) Clean() {
	qf.Day = core.CleanString(qf.Day, true /* lower */)
	qf.Teacher = core.CleanString(qf.Teacher)
	qf.Room = core.CleanString(qf.Room)
	qf.Class = core.CleanString(qf.Class)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Day == "" && qf.Teacher == "" && qf.Room == "" && qf.Class == ""
}

func (qf QueryFilter) Scope() (Scope, error) {
	var scope Scope
	if qf.Day != "" {
		day, err := ParseWeekday(qf.Day)
		if err != nil {
			return Scope{}, core.NewValidationError(err, core.FieldError{Field: "day", Error: "unknown day of week"})
		}
		scope.Day = day
	}

	var keys []ResourceKey
	for kind, id := range map[ResourceKind]string{KindTeacher: qf.Teacher, KindRoom: qf.Room, KindClass: qf.Class} {
		if id != "" {
			keys = append(keys, ResourceKey{Kind: kind, ID: id})
		}
	}
	res, err := NewResources(keys...)
	if err != nil {
		return Scope{}, core.NewValidationError(err)
	}
	scope.Resources = res
	return scope, nil
}
