package main

import (
	"fmt"
	"os"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/user"
	emailsvc "github.com/academia/sims/services/email"
	logsvc "github.com/academia/sims/services/logger"
	"github.com/academia/sims/storage/database"
	sqlxrepos "github.com/academia/sims/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, "ADMIN"), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	conn, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	db := sqlxrepos.New(conn)

	// start CLI
	cli := commandLine{
		out: os.Stdout,
		migrate: func(command string, args ...string) error {
			return database.Migrate(conn, command, args...)
		},
		usrSvc:    user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf),
		ledgerSvc: ledger.NewService(db, sqlxrepos.NewLedgerRepository(db), conf),
	}
	err = cli.run(os.Args)
	_ = conn.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
			logger.Wait()
		}
		os.Exit(1)
	}
}
