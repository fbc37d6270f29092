package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

type timetableRepository struct {
	db *timetableTable
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db.timetable}
}

func copyEntry(e *timetable.Entry) timetable.Entry {
	cp := *e
	cp.Resources = append(timetable.Resources(nil), e.Resources...)
	return cp
}

func (repo *timetableRepository) ListEntries(ctx context.Context, scope timetable.Scope) (timetable.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return timetable.Snapshot{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]timetable.Entry, 0)
	for _, e := range repo.db.table {
		if scope.Matches(*e) {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Interval.Start() != b.Interval.Start() {
			return a.Interval.Start() < b.Interval.Start()
		}
		return a.ID < b.ID
	})

	var rev int64
	if scope.Day != 0 {
		rev = repo.db.revisions[scope.Day]
	}
	return timetable.Snapshot{Entries: entries, Revision: rev}, nil
}

func (repo *timetableRepository) GetEntry(ctx context.Context, id int64) (timetable.Entry, error) {
	if err := ctx.Err(); err != nil {
		return timetable.Entry{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return copyEntry(e), nil
	}
	return timetable.Entry{}, timetable.ErrNotFound
}

func (repo *timetableRepository) SaveEntry(ctx context.Context, entry timetable.Entry, revision int64) (timetable.Entry, error) {
	if err := ctx.Err(); err != nil {
		return timetable.Entry{}, err
	}
	if err := entry.Validate(); err != nil {
		return timetable.Entry{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.revisions[entry.Day] != revision {
		return timetable.Entry{}, errors.Wrapf(timetable.ErrStaleRevision, "%s is at revision %d, not %d", entry.Day, repo.db.revisions[entry.Day], revision)
	}

	if entry.ID == 0 {
		repo.db.pkCount++
		entry.ID = repo.db.pkCount
	} else {
		orig, ok := repo.db.table[entry.ID]
		if !ok {
			return timetable.Entry{}, timetable.ErrNotFound
		}
		entry.CreatedAt = orig.CreatedAt
		if orig.Day != entry.Day {
			repo.db.revisions[orig.Day]++
		}
	}

	saved := copyEntry(&entry)
	repo.db.table[entry.ID] = &saved
	repo.db.revisions[entry.Day]++
	return copyEntry(&saved), nil
}

func (repo *timetableRepository) DeleteEntry(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return timetable.ErrNotFound
	}
	delete(repo.db.table, id)
	repo.db.revisions[e.Day]++
	return nil
}
