package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
	"github.com/KrossV2/progresspace-app-sub001/tests"
)

type conflictResponse struct {
	Error     string               `json:"error"`
	Conflicts []timetable.Conflict `json:"conflicts"`
}

func entryBody(t *testing.T, in timetable.EntryInput) []byte {
	return marchallObj(t, in)
}

func decodeEntry(t *testing.T, data []byte) timetable.Entry {
	t.Helper()
	var e timetable.Entry
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func Test_timetableApi_create(t *testing.T) {
	app := setup(t)
	existing := testutil.CreateEntry(t, app.repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"), timetable.Room("R5"))

	t.Run("created", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/timetable/entries", entryBody(t, timetable.EntryInput{
			Day: "Monday", Start: "10:00", End: "10:45", TeacherID: "T1", RoomID: "R5", Subject: "Maths",
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		e := decodeEntry(t, rec.Body.Bytes())
		assert.NotZero(t, e.ID)
		assert.Equal(t, timetable.Monday, e.Day)
		assert.Equal(t, "10:00-10:45", e.Interval.String())
		assert.Equal(t, timetable.MustResources(timetable.Teacher("T1"), timetable.Room("R5")), e.Resources)
		assert.Equal(t, "Maths", e.Subject)
		assert.Equal(t, timetable.Lecture, e.LessonType)
		assert.False(t, e.CreatedAt.IsZero())
	})

	t.Run("touching intervals do not conflict", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/timetable/entries", entryBody(t, timetable.EntryInput{
			Day: "mon", Start: "08:15", End: "09:00", TeacherID: "T1",
		}))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("conflict", func(t *testing.T) {
		before := writeCount(t, app.registry, "create", "conflict")
		rec := app.do(http.MethodPost, "/v1/timetable/entries", entryBody(t, timetable.EntryInput{
			Day: "monday", Start: "09:30", End: "10:00", RoomID: "R5", ClassID: "C2",
		}))
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

		var resp conflictResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "schedule conflict")
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, existing.ID, resp.Conflicts[0].Entry.ID)
		assert.Equal(t, timetable.MustResources(timetable.Room("R5")), resp.Conflicts[0].SharedResources)
		assert.Equal(t, 15, resp.Conflicts[0].OverlapMinutes)
		assert.Equal(t, before+1, writeCount(t, app.registry, "create", "conflict"))
	})

	t.Run("forced", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/timetable/entries?force=true", entryBody(t, timetable.EntryInput{
			Day: "monday", Start: "09:30", End: "10:00", RoomID: "R5",
		}))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, float64(1), writeCount(t, app.registry, "create", "forced"))
	})

	app.runTests(t, []httpTest{
		{
			name: "no resource", method: http.MethodPost, path: "/v1/timetable/entries",
			body:     entryBody(t, timetable.EntryInput{Day: "friday", Start: "09:00", End: "10:00"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"teacher_id": "one of teacher_id, room_id or class_id is required",
				"room_id":    "one of teacher_id, room_id or class_id is required",
				"class_id":   "one of teacher_id, room_id or class_id is required",
			}),
		},
		{
			name: "day required", method: http.MethodPost, path: "/v1/timetable/entries",
			body:     entryBody(t, timetable.EntryInput{Start: "09:00", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"day": "this field is required"}),
		},
		{
			name: "unknown day", method: http.MethodPost, path: "/v1/timetable/entries",
			body:     entryBody(t, timetable.EntryInput{Day: "someday", Start: "09:00", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"day": "must be a day of the week, e.g. monday"}),
		},
		{
			name: "bad clock", method: http.MethodPost, path: "/v1/timetable/entries",
			body:     entryBody(t, timetable.EntryInput{Day: "friday", Start: "9h", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start": "must be a time in the HH:MM format"}),
		},
		{
			name: "start equals end", method: http.MethodPost, path: "/v1/timetable/entries",
			body:     entryBody(t, timetable.EntryInput{Day: "friday", Start: "10:00", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end": "end must be after start"}),
		},
		{
			name: "bad lesson type", method: http.MethodPost, path: "/v1/timetable/entries",
			body: entryBody(t, timetable.EntryInput{
				Day: "friday", Start: "09:00", End: "10:00", RoomID: "R1", LessonType: "party",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"lesson_type": "must be one of lecture, seminar, lab or exam"}),
		},
		{
			name: "bad force", method: http.MethodPost, path: "/v1/timetable/entries?force=maybe",
			body:     entryBody(t, timetable.EntryInput{Day: "friday", Start: "09:00", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"force": "must be true or false"}),
		},
	})
}

func Test_timetableApi_retrieve(t *testing.T) {
	app := setup(t)
	e := testutil.CreateEntry(t, app.repo, timetable.Tuesday, "13:00-14:00", timetable.Class("C1"))

	rec := app.do(http.MethodGet, fmt.Sprintf("/v1/timetable/entries/%d", e.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeEntry(t, rec.Body.Bytes())
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Interval, got.Interval)

	app.runTests(t, []httpTest{
		{
			name: "not found", path: "/v1/timetable/entries/999",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: timetable.ErrNotFound.Error()}),
		},
		{
			name: "invalid id", path: "/v1/timetable/entries/abc",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid id"}),
		},
	})
}

func Test_timetableApi_query(t *testing.T) {
	app := setup(t)
	mon1 := testutil.CreateEntry(t, app.repo, timetable.Monday, "10:00-11:00", timetable.Teacher("T1"))
	mon2 := testutil.CreateEntry(t, app.repo, timetable.Monday, "08:00-09:00", timetable.Room("R1"))
	tue := testutil.CreateEntry(t, app.repo, timetable.Tuesday, "08:00-09:00", timetable.Teacher("T1"), timetable.Room("R1"))

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{"all", "", []int64{mon2.ID, mon1.ID, tue.ID}},
		{"day", "?day=monday", []int64{mon2.ID, mon1.ID}},
		{"teacher", "?teacher=T1", []int64{mon1.ID, tue.ID}},
		{"day and room", "?day=tue&room=R1", []int64{tue.ID}},
		{"nothing", "?class=C9", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/v1/timetable/entries"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var entries []timetable.Entry
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
			ids := make([]int64, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	app.runTests(t, []httpTest{
		{
			name: "unknown day", path: "/v1/timetable/entries?day=blursday",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"day": "unknown day of week"}),
		},
	})
}

func Test_timetableApi_replace(t *testing.T) {
	app := setup(t)
	e := testutil.CreateEntry(t, app.repo, timetable.Monday, "09:00-10:00", timetable.Teacher("T1"), timetable.Room("R1"))
	other := testutil.CreateEntry(t, app.repo, timetable.Monday, "11:00-12:00", timetable.Room("R1"))
	path := fmt.Sprintf("/v1/timetable/entries/%d", e.ID)

	t.Run("overlapping its own slot", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, entryBody(t, timetable.EntryInput{
			Day: "monday", Start: "09:30", End: "10:30", TeacherID: "T1", RoomID: "R1", LessonType: "lab",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeEntry(t, rec.Body.Bytes())
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "09:30-10:30", got.Interval.String())
		assert.Equal(t, timetable.Lab, got.LessonType)
	})

	t.Run("conflict", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, entryBody(t, timetable.EntryInput{
			Day: "monday", Start: "10:30", End: "11:30", RoomID: "R1",
		}))
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		var resp conflictResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, other.ID, resp.Conflicts[0].Entry.ID)
	})

	t.Run("moved to another day", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, entryBody(t, timetable.EntryInput{
			Day: "wednesday", Start: "10:30", End: "11:30", RoomID: "R1",
		}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	app.runTests(t, []httpTest{
		{
			name: "not found", method: http.MethodPut, path: "/v1/timetable/entries/999",
			body:     entryBody(t, timetable.EntryInput{Day: "friday", Start: "09:00", End: "10:00", RoomID: "R1"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: timetable.ErrNotFound.Error()}),
		},
	})
}

func Test_timetableApi_destroy(t *testing.T) {
	app := setup(t)
	e := testutil.CreateEntry(t, app.repo, timetable.Thursday, "09:00-10:00", timetable.Room("R2"))
	path := fmt.Sprintf("/v1/timetable/entries/%d", e.ID)

	app.runTests(t, []httpTest{
		{name: "deleted", method: http.MethodDelete, path: path, wantCode: http.StatusNoContent},
		{
			name: "already deleted", method: http.MethodDelete, path: path,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: timetable.ErrNotFound.Error()}),
		},
		{
			name: "gone", path: path,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: timetable.ErrNotFound.Error()}),
		},
	})
}

func Test_timetableApi_checkConflicts(t *testing.T) {
	app := setup(t)
	e := testutil.CreateEntry(t, app.repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"), timetable.Room("R5"))

	check := func(t *testing.T, in timetable.CheckInput) []timetable.Conflict {
		rec := app.do(http.MethodPost, "/v1/timetable/conflicts", marchallObj(t, in))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Conflicts []timetable.Conflict `json:"conflicts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Conflicts)
		return resp.Conflicts
	}

	t.Run("conflict", func(t *testing.T) {
		conflicts := check(t, timetable.CheckInput{
			EntryInput: timetable.EntryInput{Day: "monday", Start: "09:30", End: "10:15", TeacherID: "T1"},
		})
		require.Len(t, conflicts, 1)
		assert.Equal(t, e.ID, conflicts[0].Entry.ID)
		assert.Equal(t, "teacher T1 busy on Monday 09:00-09:45 (15 min overlap)", conflicts[0].Message)
	})

	t.Run("excluded", func(t *testing.T) {
		conflicts := check(t, timetable.CheckInput{
			EntryInput: timetable.EntryInput{Day: "monday", Start: "09:30", End: "10:15", TeacherID: "T1"},
			ExcludeID:  e.ID,
		})
		assert.Empty(t, conflicts)
	})

	t.Run("nothing written", func(t *testing.T) {
		snap, err := app.repo.ListEntries(context.Background(), timetable.Scope{})
		require.NoError(t, err)
		assert.Len(t, snap.Entries, 1)
	})

	app.runTests(t, []httpTest{
		{
			name: "negative exclude_id", method: http.MethodPost, path: "/v1/timetable/conflicts",
			body: marchallObj(t, timetable.CheckInput{
				EntryInput: timetable.EntryInput{Day: "monday", Start: "09:30", End: "10:15", TeacherID: "T1"},
				ExcludeID:  -1,
			}),
			wantCode: http.StatusBadRequest,
		},
	})
}

func Test_timetableApi_calendar(t *testing.T) {
	app := setup(t)
	e := testutil.CreateEntry(t, app.repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"), timetable.Room("R5"))
	testutil.CreateEntry(t, app.repo, timetable.Friday, "14:00-15:00", timetable.Class("C1"))

	t.Run("occurrences in the configured term", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/timetable/occurrences?teacher=T1")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var occs []timetable.Occurrence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &occs))
		require.Len(t, occs, 2)
		assert.Equal(t, e.ID, occs[0].EntryID)
		assert.Equal(t, "2024-09-02T09:00:00Z", occs[0].StartsAt.Format("2006-01-02T15:04:05Z07:00"))
		assert.Equal(t, "2024-09-09T09:45:00Z", occs[1].EndsAt.Format("2006-01-02T15:04:05Z07:00"))
	})

	t.Run("occurrences in a custom range", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/timetable/occurrences?from=2024-09-03&to=2024-09-06")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var occs []timetable.Occurrence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &occs))
		require.Len(t, occs, 1)
		assert.Equal(t, "2024-09-06T14:00:00Z", occs[0].StartsAt.Format("2006-01-02T15:04:05Z07:00"))
	})

	t.Run("ical", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/timetable/calendar.ics?day=monday")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
		assert.Contains(t, body, "X-WR-CALNAME:Test timetable\r\n")
		assert.Contains(t, body, "RRULE:FREQ=WEEKLY;BYDAY=MO;UNTIL=20240915T235959Z\r\n")
		assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	})

	app.runTests(t, []httpTest{
		{
			name: "bad range", path: "/v1/timetable/occurrences?from=2024-09-10&to=2024-09-01",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "term ends (2024-09-01) before it starts (2024-09-10)"}),
		},
	})
}

func Test_timetableApi_load(t *testing.T) {
	app := setup(t)
	testutil.CreateEntry(t, app.repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T2"))
	testutil.CreateEntry(t, app.repo, timetable.Monday, "10:00-11:30", timetable.Teacher("T2"), timetable.Room("R1"))
	testutil.CreateEntry(t, app.repo, timetable.Monday, "10:00-11:00", timetable.Teacher("T1"))
	testutil.CreateEntry(t, app.repo, timetable.Tuesday, "10:00-11:00", timetable.Teacher("T1"))

	app.runTests(t, []httpTest{
		{
			name: "monday", path: "/v1/timetable/load?day=monday", wantCode: http.StatusOK,
			wantData: marchallObj(t, []timetable.Load{
				{TeacherID: "T1", Day: timetable.Monday, Lessons: 1, Minutes: 60},
				{TeacherID: "T2", Day: timetable.Monday, Lessons: 2, Minutes: 135},
			}),
		},
		{
			name: "one teacher", path: "/v1/timetable/load?teacher=T1", wantCode: http.StatusOK,
			wantData: marchallObj(t, []timetable.Load{
				{TeacherID: "T1", Day: timetable.Monday, Lessons: 1, Minutes: 60},
				{TeacherID: "T1", Day: timetable.Tuesday, Lessons: 1, Minutes: 60},
			}),
		},
	})
}
