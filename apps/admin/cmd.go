package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/KrossV2/progresspace-app-sub001/core"
	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

var (
	isTerminalFunc = isTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	engine string
	svc    *timetable.Service
	out    io.Writer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  check -day DAY -time HH:MM-HH:MM [-teacher ID] [-room ID] [-class ID] [-exclude ID] - list the conflicts of a candidate entry")
	fmt.Fprintln(cli.out, "  list [-day DAY] [-teacher ID] [-room ID] [-class ID] - print the timetable")
	fmt.Fprintln(cli.out, "  import -file FILE [-force] - load entries from a TSV file, as printed by `list` when piped")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkCmd.SetOutput(cli.out)
	checkDay := checkCmd.String("day", "", "Day of the week, e.g. monday.")
	checkTime := checkCmd.String("time", "", "Time slot, e.g. 09:00-09:45.")
	checkTeacher := checkCmd.String("teacher", "", "Teacher ID.")
	checkRoom := checkCmd.String("room", "", "Room ID.")
	checkClass := checkCmd.String("class", "", "Class ID.")
	checkExclude := checkCmd.Int64("exclude", 0, "ID of the entry being edited, if any.")

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listCmd.SetOutput(cli.out)
	listDay := listCmd.String("day", "", "Only list this day of the week.")
	listTeacher := listCmd.String("teacher", "", "Only list the entries of this teacher.")
	listRoom := listCmd.String("room", "", "Only list the entries of this room.")
	listClass := listCmd.String("class", "", "Only list the entries of this class.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importFile := importCmd.String("file", "", "TSV file to import.")
	importForce := importCmd.Bool("force", false, "Save conflicting entries anyway.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "check":
		if err := checkCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		if *checkDay == "" || *checkTime == "" {
			checkCmd.Usage()
			return errHelp
		}
		candidate, err := newEntry(*checkDay, *checkTime, splitIDs(*checkTeacher), splitIDs(*checkRoom), splitIDs(*checkClass))
		if err != nil {
			return err
		}
		return cli.check(ctx, candidate, *checkExclude)
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		filter := timetable.QueryFilter{Day: *listDay, Teacher: *listTeacher, Room: *listRoom, Class: *listClass}
		filter.Clean()
		scope, err := filter.Scope()
		if err != nil {
			return err
		}
		return cli.list(ctx, scope)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *importFile, *importForce)
	default:
		cli.printUsage()
		return errHelp
	}
}

func helpOr(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return errHelp
	}
	return err
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = core.CleanString(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// newEntry builds a candidate entry out of command line or TSV values.
func newEntry(day, slot string, teachers, rooms, classes []string) (timetable.Entry, error) {
	wd, err := timetable.ParseWeekday(day)
	if err != nil {
		return timetable.Entry{}, err
	}
	iv, err := timetable.ParseInterval(slot)
	if err != nil {
		return timetable.Entry{}, err
	}

	var keys []timetable.ResourceKey
	for _, id := range teachers {
		keys = append(keys, timetable.Teacher(id))
	}
	for _, id := range rooms {
		keys = append(keys, timetable.Room(id))
	}
	for _, id := range classes {
		keys = append(keys, timetable.Class(id))
	}
	res, err := timetable.NewResources(keys...)
	if err != nil {
		return timetable.Entry{}, err
	}
	return timetable.NewEntry(wd, iv, res)
}

func (cli *commandLine) check(ctx context.Context, candidate timetable.Entry, excludeID int64) error {
	conflicts, err := cli.svc.Check(ctx, candidate, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Fprintf(cli.out, "no conflicts: %s is free\n", candidate)
		return nil
	}
	fmt.Fprintf(cli.out, "%d conflict(s) for %s:\n", len(conflicts), candidate)
	for _, c := range conflicts {
		fmt.Fprintf(cli.out, "  #%d %s\n", c.Entry.ID, c.Message)
	}
	return nil
}

func (cli *commandLine) list(ctx context.Context, scope timetable.Scope) error {
	entries, err := cli.svc.List(ctx, scope)
	if err != nil {
		return err
	}

	if !isTerminalFunc(cli.out) {
		return writeTSV(cli.out, entries)
	}

	tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDAY\tTIME\tRESOURCES\tSUBJECT\tTYPE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Day, e.Interval, e.Resources, e.Subject, e.LessonType)
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d entries\n", len(entries))
	return nil
}
