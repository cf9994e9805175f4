package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/darien/gradebook/apps/api/echo"
	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
	"github.com/darien/gradebook/core/grading"
	logsvc "github.com/darien/gradebook/services/logger"
	"github.com/darien/gradebook/storage/database"
	sqlxrepos "github.com/darien/gradebook/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB; the schema must be in place before the first request
	ctx := context.Background()
	if conf.Database.CreateIfNotExist {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			dbLogger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	if err = database.EnsureSchema(ctx, db, conf, dbLogger); err != nil {
		dbLogger.Fatal(fmt.Sprintf("ensuring schema: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)

	// set up services
	repos := sqlxrepos.NewRepositories(db)
	centerSvc := center.NewService(repos.Centers, validate)
	accSvc := account.NewService(repos.Accounts, validate, account.Options{
		SharedPassword:     conf.Auth.SharedPassword,
		StudentEmailDomain: conf.Auth.StudentEmailDomain,
	})
	acaSvc := academic.NewService(repos.Academic, accSvc, validate)
	gradeSvc := grading.NewService(repos.Grading, acaSvc, validate)
	authSvc := auth.NewService(
		centerSvc,
		accSvc,
		auth.NewResolver(repos.Accounts, auth.NewPolicy(conf)),
		auth.NewSessionStore(),
		validate,
		logger,
	)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Centers:    centerSvc,
			Accounts:   accSvc,
			Auth:       authSvc,
			Academic:   acaSvc,
			Grading:    gradeSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
