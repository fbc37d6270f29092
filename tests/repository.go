package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

// TestRepository checks the behaviour every timetable.Repository must share.
// newRepo must return an empty repository.
func TestRepository(t *testing.T, newRepo func(t *testing.T) timetable.Repository) {
	ctx := context.Background()
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

	revision := func(t *testing.T, repo timetable.Repository, day timetable.Weekday) int64 {
		t.Helper()
		snap, err := repo.ListEntries(ctx, timetable.Scope{Day: day})
		require.NoError(t, err)
		return snap.Revision
	}
	save := func(t *testing.T, repo timetable.Repository, day timetable.Weekday, slot string, keys ...timetable.ResourceKey) timetable.Entry {
		t.Helper()
		e := NewEntry(t, day, slot, keys...)
		e.CreatedAt, e.UpdatedAt = created, created
		saved, err := repo.SaveEntry(ctx, e, revision(t, repo, day))
		require.NoError(t, err)
		return saved
	}

	t.Run("empty", func(t *testing.T) {
		repo := newRepo(t)
		snap, err := repo.ListEntries(ctx, timetable.Scope{})
		require.NoError(t, err)
		assert.NotNil(t, snap.Entries)
		assert.Empty(t, snap.Entries)
		assert.Equal(t, int64(0), snap.Revision)

		_, err = repo.GetEntry(ctx, 1)
		assert.ErrorIs(t, err, timetable.ErrNotFound)
	})

	t.Run("insert", func(t *testing.T) {
		repo := newRepo(t)
		e := NewEntry(t, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"), timetable.Room("R5"), timetable.Class("C1"))
		e.Subject, e.LessonType = "Maths", timetable.Seminar
		e.CreatedAt, e.UpdatedAt = created, created

		saved, err := repo.SaveEntry(ctx, e, 0)
		require.NoError(t, err)
		assert.Positive(t, saved.ID)

		got, err := repo.GetEntry(ctx, saved.ID)
		require.NoError(t, err)
		e.ID = saved.ID
		assert.Equal(t, e, got)
		assert.Equal(t, e, saved)

		assert.Equal(t, int64(1), revision(t, repo, timetable.Monday))
		assert.Equal(t, int64(0), revision(t, repo, timetable.Tuesday))

		other := save(t, repo, timetable.Monday, "10:00-11:00", timetable.Teacher("T1"))
		assert.NotEqual(t, saved.ID, other.ID)
		assert.Equal(t, int64(2), revision(t, repo, timetable.Monday))
	})

	t.Run("stale revision", func(t *testing.T) {
		repo := newRepo(t)
		save(t, repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"))

		late := NewEntry(t, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"))
		_, err := repo.SaveEntry(ctx, late, 0)
		assert.ErrorIs(t, err, timetable.ErrStaleRevision)

		snap, err := repo.ListEntries(ctx, timetable.Scope{Day: timetable.Monday})
		require.NoError(t, err)
		assert.Len(t, snap.Entries, 1, "the stale write is not applied")
		assert.Equal(t, int64(1), snap.Revision)

		// other days keep their own revision
		_, err = repo.SaveEntry(ctx, NewEntry(t, timetable.Friday, "09:00-09:45", timetable.Teacher("T1")), 0)
		assert.NoError(t, err)
	})

	t.Run("invalid entry", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.SaveEntry(ctx, timetable.Entry{Day: timetable.Monday, Interval: timetable.MustInterval(540, 600)}, 0)
		assert.ErrorIs(t, err, timetable.ErrInvalidEntry)
		assert.Equal(t, int64(0), revision(t, repo, timetable.Monday))
	})

	t.Run("list", func(t *testing.T) {
		repo := newRepo(t)
		late := save(t, repo, timetable.Monday, "11:00-12:00", timetable.Room("R5"))
		early := save(t, repo, timetable.Monday, "08:00-09:00", timetable.Teacher("T1"), timetable.Class("C1"))
		tuesday := save(t, repo, timetable.Tuesday, "08:00-09:00", timetable.Teacher("T1"))
		sameStart := save(t, repo, timetable.Monday, "08:00-08:30", timetable.Teacher("T2"))

		tests := []struct {
			name  string
			scope timetable.Scope
			want  []int64
		}{
			{name: "all", scope: timetable.Scope{}, want: []int64{early.ID, sameStart.ID, late.ID, tuesday.ID}},
			{name: "day", scope: timetable.Scope{Day: timetable.Monday}, want: []int64{early.ID, sameStart.ID, late.ID}},
			{name: "empty day", scope: timetable.Scope{Day: timetable.Sunday}, want: []int64{}},
			{
				name:  "resource",
				scope: timetable.Scope{Resources: timetable.MustResources(timetable.Teacher("T1"))},
				want:  []int64{early.ID, tuesday.ID},
			},
			{
				name:  "any of the resources",
				scope: timetable.Scope{Day: timetable.Monday, Resources: timetable.MustResources(timetable.Room("R5"), timetable.Teacher("T2"))},
				want:  []int64{sameStart.ID, late.ID},
			},
			{
				name:  "kind matters",
				scope: timetable.Scope{Resources: timetable.MustResources(timetable.Room("T1"))},
				want:  []int64{},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				snap, err := repo.ListEntries(ctx, tt.scope)
				require.NoError(t, err)
				ids := make([]int64, 0, len(snap.Entries))
				for _, e := range snap.Entries {
					ids = append(ids, e.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}

		snap, err := repo.ListEntries(ctx, timetable.Scope{Day: timetable.Monday})
		require.NoError(t, err)
		assert.Equal(t, timetable.MustResources(timetable.Teacher("T1"), timetable.Class("C1")), snap.Entries[0].Resources)
		assert.Equal(t, int64(3), snap.Revision)
	})

	t.Run("replace", func(t *testing.T) {
		repo := newRepo(t)
		e := save(t, repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"), timetable.Room("R5"))

		e.Interval = timetable.MustInterval(600, 660)
		e.Resources = timetable.MustResources(timetable.Room("R6"))
		e.Subject = "History"
		e.UpdatedAt = created.Add(time.Hour)
		e.CreatedAt = time.Time{}
		replaced, err := repo.SaveEntry(ctx, e, revision(t, repo, timetable.Monday))
		require.NoError(t, err)
		assert.Equal(t, created, replaced.CreatedAt, "creation time is kept")

		got, err := repo.GetEntry(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, replaced, got)
		assert.Equal(t, timetable.MustResources(timetable.Room("R6")), got.Resources)
		assert.Equal(t, int64(2), revision(t, repo, timetable.Monday))

		snap, err := repo.ListEntries(ctx, timetable.Scope{Resources: timetable.MustResources(timetable.Teacher("T1"))})
		require.NoError(t, err)
		assert.Empty(t, snap.Entries, "previous resources are released")
	})

	t.Run("replace moves to another day", func(t *testing.T) {
		repo := newRepo(t)
		e := save(t, repo, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"))

		e.Day = timetable.Wednesday
		_, err := repo.SaveEntry(ctx, e, revision(t, repo, timetable.Wednesday))
		require.NoError(t, err)

		assert.Equal(t, int64(2), revision(t, repo, timetable.Monday), "the day left behind changes too")
		assert.Equal(t, int64(1), revision(t, repo, timetable.Wednesday))

		snap, err := repo.ListEntries(ctx, timetable.Scope{Day: timetable.Monday})
		require.NoError(t, err)
		assert.Empty(t, snap.Entries)
	})

	t.Run("replace unknown entry", func(t *testing.T) {
		repo := newRepo(t)
		e := NewEntry(t, timetable.Monday, "09:00-09:45", timetable.Teacher("T1"))
		e.ID = 999
		_, err := repo.SaveEntry(ctx, e, 0)
		assert.ErrorIs(t, err, timetable.ErrNotFound)
		assert.Equal(t, int64(0), revision(t, repo, timetable.Monday))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		e := save(t, repo, timetable.Thursday, "09:00-09:45", timetable.Teacher("T1"))
		keep := save(t, repo, timetable.Thursday, "10:00-10:45", timetable.Teacher("T1"))

		require.NoError(t, repo.DeleteEntry(ctx, e.ID))
		_, err := repo.GetEntry(ctx, e.ID)
		assert.ErrorIs(t, err, timetable.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteEntry(ctx, e.ID), timetable.ErrNotFound)

		snap, err := repo.ListEntries(ctx, timetable.Scope{Day: timetable.Thursday})
		require.NoError(t, err)
		require.Len(t, snap.Entries, 1)
		assert.Equal(t, keep.ID, snap.Entries[0].ID)
		assert.Equal(t, int64(3), snap.Revision)
	})
}
