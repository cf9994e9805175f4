package database

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
)

const (
	driverName = "postgres"

	maintenanceDB   = "postgres"
	duplicateDBCode = "42P04"
)

// Open connects to the database of conf and waits for it to accept connections.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, conf.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	if conf.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}

	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// maintenanceURL returns the database name of dsn and the url of the server's maintenance database.
// An empty name means there is nothing to create: dsn is a key=value string or names the maintenance database.
func maintenanceURL(dsn string) (string, string, error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return "", "", nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", errors.Wrap(err, "parsing database url")
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" || name == maintenanceDB {
		return "", "", nil
	}
	u.Path = "/" + maintenanceDB
	return name, u.String(), nil
}

// CreateIfNotExist creates the database of conf, connecting to the maintenance database
// with the same credentials.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	name, adminURL, err := maintenanceURL(conf.Database.URL)
	if err != nil || name == "" {
		return err
	}

	db, err := sqlx.Open(driverName, adminURL)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(ctx, db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	// check if DB exists
	var exists bool
	if err = db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name); err != nil {
		return errors.Wrap(err, "checking database")
	}
	if exists {
		return nil
	}

	// another process may win the race between the check & the creation
	if _, err = db.ExecContext(ctx, `CREATE DATABASE `+pq.QuoteIdentifier(name)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == duplicateDBCode {
			return nil
		}
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// WithTx runs fn in a transaction, committed when fn returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
