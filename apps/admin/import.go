package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

// columns of the TSV files written by `list` and read by `import`
var tsvHeader = []string{"day", "start", "end", "teacher_id", "room_id", "class_id", "subject", "lesson_type"}

func writeTSV(w io.Writer, entries []timetable.Entry) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(tsvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Day.Name(),
			timetable.FormatClock(e.Interval.Start()),
			timetable.FormatClock(e.Interval.End()),
			strings.Join(e.Resources.IDs(timetable.KindTeacher), ","),
			strings.Join(e.Resources.IDs(timetable.KindRoom), ","),
			strings.Join(e.Resources.IDs(timetable.KindClass), ","),
			e.Subject,
			string(e.LessonType),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readTSV parses every row before anything gets saved, so that a malformed file imports nothing.
// The header line and lines starting with # are skipped.
func readTSV(r io.Reader) ([]timetable.Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var entries []timetable.Entry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading TSV")
		}
		line, _ := cr.FieldPos(0)
		if strings.EqualFold(strings.TrimSpace(row[0]), tsvHeader[0]) {
			continue
		}
		if len(row) < 6 {
			return nil, errors.Errorf("line %d: expected at least 6 columns, got %d", line, len(row))
		}
		for len(row) < len(tsvHeader) {
			row = append(row, "")
		}

		e, err := newEntry(row[0], row[1]+"-"+row[2], splitIDs(row[3]), splitIDs(row[4]), splitIDs(row[5]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		e.Subject = strings.TrimSpace(row[6])
		if e.LessonType, err = timetable.ParseLessonType(row[7]); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// importFile creates the entries of the file one by one through the service, so each of them is conflict-checked
// against the timetable and the rows imported before it.
func (cli *commandLine) importFile(ctx context.Context, path string, force bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	entries, err := readTSV(f)
	if err != nil {
		return err
	}

	var rejected int
	for i, e := range entries {
		saved, err := cli.svc.Create(ctx, e, force)
		if err != nil {
			cErr, ok := timetable.AsConflictError(err)
			if !ok {
				return errors.Wrapf(err, "saving row %d", i+1)
			}
			rejected++
			fmt.Fprintf(cli.out, "row %d rejected: %s\n", i+1, e)
			for _, c := range cErr.Conflicts {
				fmt.Fprintf(cli.out, "  #%d %s\n", c.Entry.ID, c.Message)
			}
			continue
		}
		fmt.Fprintf(cli.out, "row %d imported as #%d\n", i+1, saved.ID)
	}

	fmt.Fprintf(cli.out, "%d imported, %d rejected\n", len(entries)-rejected, rejected)
	if rejected > 0 {
		return errors.Errorf("%d row(s) rejected because of conflicts", rejected)
	}
	return nil
}
