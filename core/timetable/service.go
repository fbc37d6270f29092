package timetable

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

var (
	// errors
	ErrNotFound      = errors.New("schedule entry not found")
	ErrStaleRevision = errors.New("the timetable was changed by someone else, please retry")
)

const defaultMaxAttempts = 3

type (
	// Scope selects entries: Day 0 matches every day, an empty Resources matches every entry,
	// otherwise entries must book at least one of the resources.
	Scope struct {
		Day       Weekday
		Resources Resources
	}

	// Snapshot is the result of a listing. Revision is the version of Scope.Day's timetable
	// at the time of the read and must be handed back to SaveEntry.
	Snapshot struct {
		Entries  []Entry
		Revision int64
	}

	// Repository stores the timetable.
	// Implementations keep one revision counter per day, bumped by every write or delete on that day.
	Repository interface {
		// ListEntries returns the entries in scope ordered by day, start and ID.
		ListEntries(ctx context.Context, scope Scope) (Snapshot, error)
		GetEntry(ctx context.Context, id int64) (Entry, error)
		// SaveEntry inserts the entry when its ID is 0, replaces it otherwise.
		// It fails with ErrStaleRevision when the revision of entry.Day is no longer `revision`,
		// and with ErrNotFound when replacing an unknown entry.
		SaveEntry(ctx context.Context, entry Entry, revision int64) (Entry, error)
		DeleteEntry(ctx context.Context, id int64) error
	}

	Option func(*Service)

	Service struct {
		repo        Repository
		logger      core.Logger
		maxAttempts int
		now         func() time.Time
	}
)

// Matches reports whether e belongs to the scope.
func (s Scope) Matches(e Entry) bool {
	if s.Day != 0 && e.Day != s.Day {
		return false
	}
	return len(s.Resources) == 0 || s.Resources.Intersects(e.Resources)
}

func scopeOf(e Entry) Scope {
	return Scope{Day: e.Day, Resources: e.Resources}
}

// WithMaxAttempts bounds how many times a write is re-checked after losing a race.
func WithMaxAttempts(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func NewService(repo Repository, logger core.Logger, opts ...Option) *Service {
	svc := &Service{
		repo:        repo,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) List(ctx context.Context, scope Scope) ([]Entry, error) {
	snap, err := svc.repo.ListEntries(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}
	return snap.Entries, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

// Check reports what the candidate would collide with, without writing anything.
// excludeID is the ID of the entry being edited, if any.
func (svc *Service) Check(ctx context.Context, candidate Entry, excludeID int64) ([]Conflict, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	snap, err := svc.repo.ListEntries(ctx, scopeOf(candidate))
	if err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}
	conflicts, err := FindConflicts(candidate, snap.Entries, excludeID)
	if err != nil {
		return nil, err
	}
	return Describe(candidate, conflicts), nil
}

// Create persists a new entry. Unless force is set, a candidate that double-books
// any resource is rejected with a *ConflictError.
func (svc *Service) Create(ctx context.Context, candidate Entry, force bool) (Entry, error) {
	candidate.ID = 0
	candidate.CreatedAt = time.Time{}
	return svc.save(ctx, candidate, 0, force)
}

// Replace overwrites the entry `id` with the candidate. The entry is not compared against itself.
func (svc *Service) Replace(ctx context.Context, id int64, candidate Entry, force bool) (Entry, error) {
	orig, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	candidate.ID = orig.ID
	candidate.CreatedAt = orig.CreatedAt
	return svc.save(ctx, candidate, orig.ID, force)
}

// save runs the check-then-write cycle. The repository rejects the write when the day changed
// since the listing, in which case the check is run again on fresh data: a racing write that
// now collides is reported like any other conflict.
func (svc *Service) save(ctx context.Context, candidate Entry, excludeID int64, force bool) (Entry, error) {
	if err := candidate.Validate(); err != nil {
		return Entry{}, err
	}
	if candidate.LessonType == "" {
		candidate.LessonType = Lecture
	}
	now := svc.now().UTC()
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = now
	}
	candidate.UpdatedAt = now

	for attempt := 1; attempt <= svc.maxAttempts; attempt++ {
		snap, err := svc.repo.ListEntries(ctx, scopeOf(candidate))
		if err != nil {
			return Entry{}, errors.Wrap(err, "listing entries")
		}
		conflicts, err := FindConflicts(candidate, snap.Entries, excludeID)
		if err != nil {
			return Entry{}, err
		}
		if len(conflicts) > 0 {
			if !force {
				return Entry{}, &ConflictError{Conflicts: Describe(candidate, conflicts)}
			}
			svc.logger.Warn(
				fmt.Sprintf("forced double-booking of %s", candidate),
				map[string]interface{}{"entry_id": candidate.ID, "conflicts": len(conflicts)},
			)
		}

		saved, err := svc.repo.SaveEntry(ctx, candidate, snap.Revision)
		if err == nil {
			svc.logger.Debug(fmt.Sprintf("saved entry %d: %s", saved.ID, saved))
			return saved, nil
		}
		if errors.Cause(err) != ErrStaleRevision {
			return Entry{}, errors.Wrap(err, "saving entry")
		}
		svc.logger.Debug(fmt.Sprintf("%s changed while saving, re-checking (attempt %d)", candidate.Day, attempt))
	}
	return Entry{}, errors.Wrapf(ErrStaleRevision, "%d attempts", svc.maxAttempts)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteEntry(ctx, id)
}

// Load is the teaching time of one teacher on one day.
type Load struct {
	TeacherID string  `json:"teacher_id"`
	Day       Weekday `json:"day"`
	Lessons   int     `json:"lessons"`
	Minutes   int     `json:"minutes"`
}

// TeacherLoad sums the scheduled minutes per teacher and day, ordered by teacher then day.
func TeacherLoad(entries []Entry) []Load {
	type key struct {
		teacher string
		day     Weekday
	}
	totals := make(map[key]*Load)
	for _, e := range entries {
		for _, id := range e.Resources.IDs(KindTeacher) {
			k := key{teacher: id, day: e.Day}
			l, ok := totals[k]
			if !ok {
				l = &Load{TeacherID: id, Day: e.Day}
				totals[k] = l
			}
			l.Lessons++
			l.Minutes += e.Interval.Minutes()
		}
	}

	loads := make([]Load, 0, len(totals))
	for _, l := range totals {
		loads = append(loads, *l)
	}
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].TeacherID != loads[j].TeacherID {
			return loads[i].TeacherID < loads[j].TeacherID
		}
		return loads[i].Day < loads[j].Day
	})
	return loads
}

func (svc *Service) TeacherLoad(ctx context.Context, scope Scope) ([]Load, error) {
	entries, err := svc.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return TeacherLoad(entries), nil
}
