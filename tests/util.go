package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/KrossV2/progresspace-app-sub001/core"
	"github.com/KrossV2/progresspace-app-sub001/core/report"
	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
	"github.com/KrossV2/progresspace-app-sub001/storage/database"
)

// PrepareDB opens a migrated SQLite database in a temporary directory, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, database.EngineSQLite); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom tag registered, like the API does.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	report.InitValidators(validate, translator)
	return validate, translator
}

// NewEntry builds an entry from a "HH:MM-HH:MM" slot, failing the test on invalid input.
func NewEntry(t *testing.T, day timetable.Weekday, slot string, keys ...timetable.ResourceKey) timetable.Entry {
	t.Helper()
	iv, err := timetable.ParseInterval(slot)
	if err != nil {
		t.Fatalf("NewEntry() failed: %v", err)
	}
	res, err := timetable.NewResources(keys...)
	if err != nil {
		t.Fatalf("NewEntry() failed: %v", err)
	}
	e, err := timetable.NewEntry(day, iv, res)
	if err != nil {
		t.Fatalf("NewEntry() failed: %v", err)
	}
	return e
}

// CreateEntry persists a new entry straight through the repository, bypassing conflict checks.
func CreateEntry(
	t *testing.T,
	repo timetable.Repository,
	day timetable.Weekday,
	slot string,
	keys ...timetable.ResourceKey,
) timetable.Entry {
	t.Helper()
	ctx := context.Background()
	e := NewEntry(t, day, slot, keys...)
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	snap, err := repo.ListEntries(ctx, timetable.Scope{Day: day})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	saved, err := repo.SaveEntry(ctx, e, snap.Revision)
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return saved
}
