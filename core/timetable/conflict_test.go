package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(t *testing.T, id int64, day Weekday, slot string, keys ...ResourceKey) Entry {
	t.Helper()
	iv, err := ParseInterval(slot)
	require.NoError(t, err)
	res, err := NewResources(keys...)
	require.NoError(t, err)
	e, err := NewEntry(day, iv, res)
	require.NoError(t, err)
	e.ID = id
	return e
}

func ids(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFindConflicts(t *testing.T) {
	tests := []struct {
		name      string
		candidate Entry
		existing  []Entry
		excludeID int64
		wantIDs   []int64
	}{
		{
			name:      "identical slot and resources",
			candidate: entry(t, 0, Monday, "09:00-09:45", Teacher("T1"), Room("R5")),
			existing:  []Entry{entry(t, 1, Monday, "09:00-09:45", Teacher("T1"), Room("R5"))},
			wantIDs:   []int64{1},
		},
		{
			name:      "touching boundary",
			candidate: entry(t, 0, Monday, "09:45-10:30", Teacher("T1")),
			existing:  []Entry{entry(t, 1, Monday, "09:00-09:45", Teacher("T1"))},
			wantIDs:   []int64{},
		},
		{
			name:      "other day excluded",
			candidate: entry(t, 0, Monday, "09:00-10:00", Room("R5")),
			existing: []Entry{
				entry(t, 1, Monday, "09:30-09:40", Room("R5")),
				entry(t, 2, Tuesday, "09:00-10:00", Room("R5")),
			},
			wantIDs: []int64{1},
		},
		{
			name:      "no shared resource",
			candidate: entry(t, 0, Monday, "09:00-10:00", Teacher("T2"), Room("R9")),
			existing:  []Entry{entry(t, 1, Monday, "09:15-09:30", Teacher("T1"), Room("R5"))},
			wantIDs:   []int64{},
		},
		{
			name:      "edit excludes itself",
			candidate: entry(t, 42, Monday, "09:00-09:30", Teacher("T1")),
			existing: []Entry{
				entry(t, 42, Monday, "09:00-09:30", Teacher("T1")),
				entry(t, 43, Monday, "09:15-09:45", Teacher("T1")),
			},
			excludeID: 42,
			wantIDs:   []int64{43},
		},
		{
			name:      "minimal interval, empty timetable",
			candidate: entry(t, 0, Monday, "08:00-08:01", Teacher("T1")),
			wantIDs:   []int64{},
		},
		{
			name:      "same resource id, different kind",
			candidate: entry(t, 0, Monday, "09:00-10:00", Teacher("A1")),
			existing:  []Entry{entry(t, 1, Monday, "09:00-10:00", Room("A1"))},
			wantIDs:   []int64{},
		},
		{
			name:      "results keep the existing order",
			candidate: entry(t, 0, Friday, "08:00-12:00", Class("C1"), Room("R1")),
			existing: []Entry{
				entry(t, 7, Friday, "11:00-12:00", Class("C1")),
				entry(t, 3, Friday, "08:00-09:00", Room("R1")),
				entry(t, 5, Friday, "12:00-13:00", Class("C1")),
				entry(t, 4, Friday, "09:00-10:00", Teacher("T1")),
				entry(t, 9, Friday, "07:00-08:30", Class("C1"), Room("R1")),
			},
			wantIDs: []int64{7, 3, 9},
		},
		{
			name:      "excludeID 0 excludes nothing",
			candidate: entry(t, 0, Sunday, "00:00-24:00", Room("R1")),
			existing:  []Entry{entry(t, 1, Sunday, "23:59-24:00", Room("R1"))},
			excludeID: 0,
			wantIDs:   []int64{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConflicts(tt.candidate, tt.existing, tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(got))
		})
	}
}

func TestFindConflicts_properties(t *testing.T) {
	slots := []string{"08:00-09:00", "08:30-09:30", "09:00-10:00", "00:00-24:00", "08:59-09:01", "12:00-12:01"}
	resources := [][]ResourceKey{
		{Teacher("T1")},
		{Room("R1")},
		{Teacher("T1"), Room("R1")},
		{Class("C1")},
	}

	var all []Entry
	var id int64
	for _, day := range []Weekday{Monday, Tuesday} {
		for _, slot := range slots {
			for _, keys := range resources {
				id++
				all = append(all, entry(t, id, day, slot, keys...))
			}
		}
	}

	for _, candidate := range all {
		candidate := candidate
		first, err := FindConflicts(candidate, all, 0)
		require.NoError(t, err)

		// idempotent
		second, err := FindConflicts(candidate, all, 0)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(second))

		// an entry always collides with itself unless excluded
		assert.Contains(t, ids(first), candidate.ID)
		excluded, err := FindConflicts(candidate, all, candidate.ID)
		require.NoError(t, err)
		assert.NotContains(t, ids(excluded), candidate.ID)
		assert.Len(t, excluded, len(first)-1)

		for _, other := range all {
			got, err := FindConflicts(candidate, []Entry{other}, 0)
			require.NoError(t, err)
			if other.Day != candidate.Day || !candidate.Resources.Intersects(other.Resources) {
				assert.Empty(t, got, "%s vs %s", candidate, other)
			}

			// symmetric
			back, err := FindConflicts(other, []Entry{candidate}, 0)
			require.NoError(t, err)
			assert.Equal(t, len(got), len(back), "%s vs %s", candidate, other)
		}
	}
}

func TestFindConflicts_doesNotModifyInputs(t *testing.T) {
	candidate := entry(t, 0, Monday, "09:00-10:00", Teacher("T1"), Room("R1"))
	existing := []Entry{
		entry(t, 2, Monday, "09:30-10:30", Room("R1")),
		entry(t, 1, Monday, "08:30-09:30", Teacher("T1")),
	}
	candidateCopy := candidate
	existingCopy := append([]Entry(nil), existing...)

	_, err := FindConflicts(candidate, existing, 0)
	require.NoError(t, err)
	assert.Equal(t, candidateCopy, candidate)
	assert.Equal(t, existingCopy, existing)
}

func TestFindConflicts_invalidInput(t *testing.T) {
	valid := entry(t, 1, Monday, "09:00-10:00", Teacher("T1"))

	tests := []struct {
		name      string
		candidate Entry
		existing  []Entry
		wantErr   error
	}{
		{
			name:      "candidate without resources",
			candidate: Entry{Day: Monday, Interval: MustInterval(540, 600)},
			wantErr:   ErrInvalidEntry,
		},
		{
			name:      "candidate without day",
			candidate: Entry{Interval: MustInterval(540, 600), Resources: MustResources(Teacher("T1"))},
			wantErr:   ErrInvalidEntry,
		},
		{
			name:      "candidate with zero interval",
			candidate: Entry{Day: Monday, Resources: MustResources(Teacher("T1"))},
			wantErr:   ErrInvalidInterval,
		},
		{
			name:      "malformed existing entry",
			candidate: valid,
			existing:  []Entry{{ID: 9, Day: Weekday(8), Interval: MustInterval(540, 600), Resources: MustResources(Teacher("T1"))}},
			wantErr:   ErrInvalidEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindConflicts(tt.candidate, tt.existing, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDescribe(t *testing.T) {
	candidate := entry(t, 0, Monday, "09:00-10:00", Teacher("T1"), Room("R5"), Class("C1"))
	existing := []Entry{
		entry(t, 1, Monday, "09:45-10:30", Teacher("T1"), Room("R5")),
		entry(t, 2, Monday, "08:00-09:10", Class("C1")),
	}
	conflicts, err := FindConflicts(candidate, existing, 0)
	require.NoError(t, err)

	described := Describe(candidate, conflicts)
	require.Len(t, described, 2)

	assert.Equal(t, int64(1), described[0].Entry.ID)
	assert.Equal(t, MustResources(Teacher("T1"), Room("R5")), described[0].SharedResources)
	assert.Equal(t, MustInterval(585, 600), described[0].Overlap)
	assert.Equal(t, 15, described[0].OverlapMinutes)
	assert.Equal(t, "teacher T1, room R5 busy on Monday 09:45-10:30 (15 min overlap)", described[0].Message)

	assert.Equal(t, "class C1 busy on Monday 08:00-09:10 (10 min overlap)", described[1].Message)

	cErr := &ConflictError{Conflicts: described}
	assert.Equal(t, "schedule conflict: 2 overlapping entries", cErr.Error())
	single := &ConflictError{Conflicts: described[1:]}
	assert.Equal(t, "schedule conflict: class C1 busy on Monday 08:00-09:10 (10 min overlap)", single.Error())

	got, ok := AsConflictError(single)
	assert.True(t, ok)
	assert.Same(t, single, got)
	_, ok = AsConflictError(ErrNotFound)
	assert.False(t, ok)

	assert.Empty(t, Describe(candidate, nil))
}
