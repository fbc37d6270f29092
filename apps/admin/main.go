package main

import (
	"fmt"
	"log"
	"os"

	"github.com/KrossV2/progresspace-app-sub001/core"
	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
	logsvc "github.com/KrossV2/progresspace-app-sub001/services/logger"
	"github.com/KrossV2/progresspace-app-sub001/storage/database"
	sqlxrepos "github.com/KrossV2/progresspace-app-sub001/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf, "ADMIN")
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(false) // local tool, nothing to report

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:     db,
		engine: conf.Database.Engine,
		svc: timetable.NewService(
			sqlxrepos.NewTimetableRepository(db),
			logger,
			timetable.WithMaxAttempts(conf.Timetable.MaxSaveAttempts),
		),
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
