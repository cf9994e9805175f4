package database

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"
	"golang.org/x/crypto/bcrypt"

	"github.com/darien/gradebook/core"
)

// MigrationsFS holds the goose migrations under MigrationsDir.
//go:embed migrations/*.sql
var MigrationsFS embed.FS

const MigrationsDir = "migrations"

// schemaLockID keys the advisory lock serializing schema changes across processes.
const schemaLockID = 7_310_442

// CenterScopedTables receive a center_id column when they predate center scoping.
var CenterScopedTables = []string{
	"users",
	"students",
	"student_accounts",
	"subjects",
	"enrollments",
	"grades",
	"attendance",
	"lessons",
	"grading_schemes",
}

var (
	gooseRunFunc    = goose.RunFS // mockable
	applySchemaFunc = ApplySchema // mockable

	schemaOnce sync.Once
	schemaErr  error
)

// EnsureSchema brings the database to the current shape at most once per process.
// Later calls return the outcome of the first one. Callers must treat an error as fatal.
func EnsureSchema(ctx context.Context, db *sqlx.DB, conf *core.Config, logger core.Logger) error {
	schemaOnce.Do(func() {
		schemaErr = applySchemaFunc(ctx, db, conf, logger)
	})
	return schemaErr
}

// ApplySchema runs the pending migrations, which create missing tables and retrofit center_id
// & grade bounds onto older ones, then inserts the default center, owner & admin when absent.
// It never drops or rewrites data, and running it again on its own output changes nothing.
func ApplySchema(ctx context.Context, db *sqlx.DB, conf *core.Config, logger core.Logger) error {
	return withSchemaLock(ctx, db.DB, func() error {
		if err := logLegacyTables(ctx, db, logger); err != nil {
			return err
		}
		if err := gooseRunFunc("up", db.DB, MigrationsFS, MigrationsDir); err != nil {
			return errors.Wrap(err, "migrating database")
		}

		return WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if err := ensureDefaultCenter(ctx, tx, conf); err != nil {
				return err
			}
			if err := ensureDefaultOwner(ctx, tx, conf, logger); err != nil {
				return err
			}
			return ensureDefaultAdmin(ctx, tx, conf, logger)
		})
	})
}

// withSchemaLock runs fn holding a session advisory lock. The lock lives on a connection of
// its own, so the pool needs a second one for the migrations.
func withSchemaLock(ctx context.Context, db *sql.DB, fn func() error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "reserving schema lock connection")
	}
	defer func() { _ = conn.Close() }()

	if _, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, schemaLockID); err != nil {
		return errors.Wrap(err, "locking schema")
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, schemaLockID)
	}()
	return fn()
}

// logLegacyTables reports the existing tables still lacking a center scope.
func logLegacyTables(ctx context.Context, db *sqlx.DB, logger core.Logger) error {
	for _, table := range CenterScopedTables {
		cols, err := TableColumns(ctx, db, table)
		if err != nil {
			return err
		}
		if len(cols) > 0 && !cols["center_id"] {
			logger.Info("retrofitting center scope", map[string]interface{}{"table": table})
		}
	}
	return nil
}

// TableColumns lists the columns of table in the current schema.
func TableColumns(ctx context.Context, q sqlx.QueryerContext, table string) (map[string]bool, error) {
	var names []string
	err := sqlx.SelectContext(ctx, q, &names, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "inspecting %s columns", table)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}

func count(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int, error) {
	var n int
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func ensureDefaultCenter(ctx context.Context, tx *sqlx.Tx, conf *core.Config) error {
	n, err := count(ctx, tx, `SELECT COUNT(*) FROM centers`)
	if err != nil {
		return errors.Wrap(err, "counting centers")
	}
	if n > 0 {
		return nil
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO centers (id, name) VALUES ($1, $2)`,
		core.DefaultCenterID, conf.Bootstrap.CenterName); err != nil {
		return errors.Wrap(err, "inserting default center")
	}
	// the explicit id leaves the sequence behind
	_, err = tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('centers', 'id'), (SELECT MAX(id) FROM centers))`)
	return errors.Wrap(err, "syncing centers sequence")
}

func ensureDefaultOwner(ctx context.Context, tx *sqlx.Tx, conf *core.Config, logger core.Logger) error {
	n, err := count(ctx, tx, `SELECT COUNT(*) FROM owners`)
	if err != nil {
		return errors.Wrap(err, "counting owners")
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(conf.Bootstrap.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing owner password")
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO owners (full_name, email, password_hash) VALUES ($1, $2, $3)`,
		conf.Bootstrap.OwnerName, conf.Bootstrap.OwnerEmail, string(hash),
	); err != nil {
		return errors.Wrap(err, "inserting default owner")
	}
	logger.Info("default owner created", map[string]interface{}{"email": conf.Bootstrap.OwnerEmail})
	return nil
}

func ensureDefaultAdmin(ctx context.Context, tx *sqlx.Tx, conf *core.Config, logger core.Logger) error {
	n, err := count(ctx, tx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`)
	if err != nil {
		return errors.Wrap(err, "counting admins")
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(conf.Bootstrap.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing admin password")
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (center_id, full_name, email, role, password_hash)
		VALUES ($1, $2, $3, 'admin', $4)
		ON CONFLICT DO NOTHING`,
		core.DefaultCenterID, conf.Bootstrap.AdminName, conf.Bootstrap.AdminEmail, string(hash),
	)
	if err != nil {
		return errors.Wrap(err, "inserting default admin")
	}
	if inserted, _ := res.RowsAffected(); inserted == 0 {
		logger.Warn("default admin not created: email taken", map[string]interface{}{"email": conf.Bootstrap.AdminEmail})
		return nil
	}
	logger.Info("default admin created", map[string]interface{}{"email": conf.Bootstrap.AdminEmail})
	return nil
}
