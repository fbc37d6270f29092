package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

const entryColumns = "id, day, start_minute, end_minute, subject, lesson_type, created_at, updated_at"

// postgres error codes that mean a concurrent write won
var raceCodes = map[pq.ErrorCode]bool{
	"23P01": true, // exclusion_violation
	"40001": true, // serialization_failure
}

type (
	entryRow struct {
		ID          int64       `db:"id"`
		Day         int         `db:"day"`
		StartMinute int         `db:"start_minute"`
		EndMinute   int         `db:"end_minute"`
		Subject     null.String `db:"subject"`
		LessonType  string      `db:"lesson_type"`
		CreatedAt   int64       `db:"created_at"` // unix micro
		UpdatedAt   int64       `db:"updated_at"` // unix micro
	}

	resourceRow struct {
		EntryID    int64  `db:"entry_id"`
		Kind       string `db:"kind"`
		ResourceID string `db:"resource_id"`
	}

	timetableRepository struct {
		db *sqlx.DB
	}
)

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

// NewTimetableRepository works on both postgres and sqlite connections.
func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{db: db}
}

func fromMicro(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func toEntry(row entryRow, rows []resourceRow) (timetable.Entry, error) {
	iv, err := timetable.NewInterval(row.StartMinute, row.EndMinute)
	if err != nil {
		return timetable.Entry{}, errors.Wrapf(err, "entry %d", row.ID)
	}
	keys := make([]timetable.ResourceKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, timetable.ResourceKey{Kind: timetable.ResourceKind(r.Kind), ID: r.ResourceID})
	}
	res, err := timetable.NewResources(keys...)
	if err != nil {
		return timetable.Entry{}, errors.Wrapf(err, "entry %d", row.ID)
	}
	return timetable.Entry{
		ID:         row.ID,
		Day:        timetable.Weekday(row.Day),
		Interval:   iv,
		Resources:  res,
		Subject:    row.Subject.String,
		LessonType: timetable.LessonType(row.LessonType),
		CreatedAt:  fromMicro(row.CreatedAt),
		UpdatedAt:  fromMicro(row.UpdatedAt),
	}, nil
}

// withResources loads the resource keys of the rows and builds the entries, keeping the rows' order.
func (repo *timetableRepository) withResources(ctx context.Context, q sqlx.QueryerContext, rows []entryRow) ([]timetable.Entry, error) {
	entries := make([]timetable.Entry, 0, len(rows))
	if len(rows) == 0 {
		return entries, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In("SELECT entry_id, kind, resource_id FROM timetable_entry_resource WHERE entry_id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building resources query")
	}
	var resRows []resourceRow
	if err = sqlx.SelectContext(ctx, q, &resRows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting resources")
	}
	byEntry := make(map[int64][]resourceRow, len(rows))
	for _, r := range resRows {
		byEntry[r.EntryID] = append(byEntry[r.EntryID], r)
	}

	for _, row := range rows {
		e, err := toEntry(row, byEntry[row.ID])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (repo *timetableRepository) ListEntries(ctx context.Context, scope timetable.Scope) (timetable.Snapshot, error) {
	// the revision is read before the entries: a write landing in between makes the
	// snapshot stale rather than letting it vouch for rows it has not seen
	var rev int64
	if scope.Day != 0 {
		err := repo.db.GetContext(ctx, &rev, repo.db.Rebind("SELECT revision FROM timetable_revision WHERE day = ?"), int(scope.Day))
		if err != nil {
			return timetable.Snapshot{}, errors.Wrap(err, "selecting revision")
		}
	}

	var (
		conds []string
		args  []interface{}
	)
	if scope.Day != 0 {
		conds = append(conds, "day = ?")
		args = append(args, int(scope.Day))
	}
	if len(scope.Resources) > 0 {
		keyConds := make([]string, 0, len(scope.Resources))
		for _, k := range scope.Resources {
			keyConds = append(keyConds, "(kind = ? AND resource_id = ?)")
			args = append(args, string(k.Kind), k.ID)
		}
		conds = append(conds, "id IN (SELECT entry_id FROM timetable_entry_resource WHERE "+strings.Join(keyConds, " OR ")+")")
	}
	query := "SELECT " + entryColumns + " FROM timetable_entry"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY day, start_minute, id"

	var rows []entryRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return timetable.Snapshot{}, errors.Wrap(err, "selecting entries")
	}
	entries, err := repo.withResources(ctx, repo.db, rows)
	if err != nil {
		return timetable.Snapshot{}, err
	}
	return timetable.Snapshot{Entries: entries, Revision: rev}, nil
}

func (repo *timetableRepository) GetEntry(ctx context.Context, id int64) (timetable.Entry, error) {
	var row entryRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+entryColumns+" FROM timetable_entry WHERE id = ?"), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return timetable.Entry{}, timetable.ErrNotFound
		}
		return timetable.Entry{}, errors.Wrap(err, "selecting entry")
	}
	entries, err := repo.withResources(ctx, repo.db, []entryRow{row})
	if err != nil {
		return timetable.Entry{}, err
	}
	return entries[0], nil
}

func bumpRevision(ctx context.Context, tx *sqlx.Tx, day timetable.Weekday) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE timetable_revision SET revision = revision + 1 WHERE day = ?"), int(day))
	return err
}

func (repo *timetableRepository) SaveEntry(ctx context.Context, entry timetable.Entry, revision int64) (timetable.Entry, error) {
	if err := entry.Validate(); err != nil {
		return timetable.Entry{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return timetable.Entry{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var orig entryRow
	if entry.ID != 0 {
		err = tx.GetContext(ctx, &orig, tx.Rebind("SELECT "+entryColumns+" FROM timetable_entry WHERE id = ?"), entry.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				return timetable.Entry{}, timetable.ErrNotFound
			}
			return timetable.Entry{}, errors.Wrap(err, "selecting entry")
		}
	}

	// optimistic lock on the entry's day
	res, err := tx.ExecContext(
		ctx,
		tx.Rebind("UPDATE timetable_revision SET revision = revision + 1 WHERE day = ? AND revision = ?"),
		int(entry.Day), revision,
	)
	if err != nil {
		return timetable.Entry{}, mapErr(err, "bumping revision")
	}
	if n, err := res.RowsAffected(); err != nil {
		return timetable.Entry{}, errors.Wrap(err, "bumping revision")
	} else if n == 0 {
		return timetable.Entry{}, errors.Wrapf(timetable.ErrStaleRevision, "%s is no longer at revision %d", entry.Day, revision)
	}

	entry.UpdatedAt = fromMicro(entry.UpdatedAt.UnixMicro())
	subject := null.NewString(entry.Subject, entry.Subject != "")

	if entry.ID == 0 {
		entry.CreatedAt = fromMicro(entry.CreatedAt.UnixMicro())
		err = tx.QueryRowxContext(
			ctx,
			tx.Rebind(`INSERT INTO timetable_entry (day, start_minute, end_minute, subject, lesson_type, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			int(entry.Day), entry.Interval.Start(), entry.Interval.End(), subject, string(entry.LessonType),
			entry.CreatedAt.UnixMicro(), entry.UpdatedAt.UnixMicro(),
		).Scan(&entry.ID)
		if err != nil {
			return timetable.Entry{}, mapErr(err, "inserting entry")
		}
	} else {
		entry.CreatedAt = fromMicro(orig.CreatedAt)
		if timetable.Weekday(orig.Day) != entry.Day {
			if err = bumpRevision(ctx, tx, timetable.Weekday(orig.Day)); err != nil {
				return timetable.Entry{}, mapErr(err, "bumping previous day revision")
			}
		}
		_, err = tx.ExecContext(
			ctx,
			tx.Rebind(`UPDATE timetable_entry
				SET day = ?, start_minute = ?, end_minute = ?, subject = ?, lesson_type = ?, updated_at = ?
				WHERE id = ?`),
			int(entry.Day), entry.Interval.Start(), entry.Interval.End(), subject, string(entry.LessonType),
			entry.UpdatedAt.UnixMicro(), entry.ID,
		)
		if err != nil {
			return timetable.Entry{}, mapErr(err, "updating entry")
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM timetable_entry_resource WHERE entry_id = ?"), entry.ID); err != nil {
			return timetable.Entry{}, mapErr(err, "deleting resources")
		}
	}

	for _, k := range entry.Resources {
		_, err = tx.ExecContext(
			ctx,
			tx.Rebind("INSERT INTO timetable_entry_resource (entry_id, kind, resource_id) VALUES (?, ?, ?)"),
			entry.ID, string(k.Kind), k.ID,
		)
		if err != nil {
			return timetable.Entry{}, mapErr(err, "inserting resource")
		}
	}

	if err = tx.Commit(); err != nil {
		return timetable.Entry{}, mapErr(err, "committing entry")
	}
	return entry, nil
}

func (repo *timetableRepository) DeleteEntry(ctx context.Context, id int64) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var day int
	if err = tx.GetContext(ctx, &day, tx.Rebind("SELECT day FROM timetable_entry WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return timetable.ErrNotFound
		}
		return errors.Wrap(err, "selecting entry")
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM timetable_entry_resource WHERE entry_id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting resources")
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM timetable_entry WHERE id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting entry")
	}
	if err = bumpRevision(ctx, tx, timetable.Weekday(day)); err != nil {
		return mapErr(err, "bumping revision")
	}
	return errors.Wrap(tx.Commit(), "committing delete")
}

// mapErr turns postgres race errors into timetable.ErrStaleRevision.
func mapErr(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && raceCodes[pqErr.Code] {
		return errors.Wrap(timetable.ErrStaleRevision, pqErr.Message)
	}
	return errors.Wrap(err, msg)
}
