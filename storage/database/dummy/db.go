package dummydb

import (
	"sync"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

type (
	DB struct {
		timetable *timetableTable
	}

	timetableTable struct {
		sync.RWMutex
		pkCount   int64
		table     map[int64]*timetable.Entry
		revisions map[timetable.Weekday]int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		timetable: &timetableTable{
			table:     make(map[int64]*timetable.Entry),
			revisions: make(map[timetable.Weekday]int64),
		},
	}
	return db, nil
}
