package main

import (
	"fmt"
	"log"
	"os"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	logsvc "github.com/charlesacademy/portal/services/logger"
	"github.com/charlesacademy/portal/storage/database"
	sqlxrepos "github.com/charlesacademy/portal/storage/database/sqlx"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Error(fmt.Sprintf("creating database: %v", err), err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		return 1
	}
	defer func() { _ = db.Close() }()

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  sqlxrepos.NewUserRepository(db),
		classSvc: classroom.NewService(sqlxrepos.NewClassroomRepository(db)),
		out:      os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("%s: %v", os.Args[1], err), err)
		}
		return 1
	}
	return 0
}
