package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/user"
	emailsvc "github.com/trezcool/alama/services/email"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up DB
	db, err := database.Connect(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to database: %v", err), err)
	}
	xdb := sqlxrepos.NewDB(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(os.Stdout, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(xdb))

	// start CLI
	cli := commandLine{
		db:           db,
		conf:         conf,
		logger:       logger,
		out:          os.Stdout,
		usrSvc:       usrSvc,
		studentSvc:   student.NewService(xdb, sqlxrepos.NewStudentRepository(xdb), usrSvc),
		analyticsSvc: analytics.NewService(sqlxrepos.NewAnalyticsRepository(xdb)),
		mailSvc:      mailSvc,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
