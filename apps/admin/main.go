package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
	logsvc "github.com/darien/gradebook/services/logger"
	"github.com/darien/gradebook/storage/database"
	sqlxrepos "github.com/darien/gradebook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	ctx := context.Background()
	if conf.Database.CreateIfNotExist {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	// start CLI
	repos := sqlxrepos.NewRepositories(db)
	cli := commandLine{
		db:      db.DB,
		centers: center.NewService(repos.Centers, validate),
		accounts: account.NewService(repos.Accounts, validate, account.Options{
			SharedPassword:     conf.Auth.SharedPassword,
			StudentEmailDomain: conf.Auth.StudentEmailDomain,
		}),
		ensureSchema: func(ctx context.Context) error {
			return database.ApplySchema(ctx, db, conf, logger)
		},
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
