package database_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/storage/database"
	testutil "github.com/darien/gradebook/tests"
)

// legacy is a database laid out before center scoping & grade bounds.
var legacy = []string{
	`CREATE TABLE users (
		id            BIGSERIAL PRIMARY KEY,
		full_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE students (
		id         BIGSERIAL PRIMARY KEY,
		full_name  TEXT NOT NULL,
		class_name TEXT NOT NULL
	)`,
	`CREATE TABLE subjects (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE grades (
		id           BIGSERIAL PRIMARY KEY,
		student_id   BIGINT NOT NULL REFERENCES students (id),
		subject_id   BIGINT NOT NULL REFERENCES subjects (id),
		teacher_id   BIGINT NOT NULL REFERENCES users (id),
		grade_date   DATE NOT NULL,
		score        DOUBLE PRECISION NOT NULL,
		note         TEXT,
		note_teacher TEXT,
		note_parent  TEXT,
		note_admin   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`INSERT INTO users (full_name, email, role, password_hash) VALUES ('Tess', 'tess@darien.test', 'teacher', 'x')`,
	`INSERT INTO students (full_name, class_name) VALUES ('Bea', '5A'), ('Cal', '5B')`,
	`INSERT INTO subjects (name) VALUES ('Maths')`,
	`INSERT INTO grades (student_id, subject_id, teacher_id, grade_date, score) VALUES (1, 1, 1, '2024-03-11', 14)`,
}

func snapshot(t *testing.T, db *sqlx.DB) (map[string]map[string]bool, map[string]int) {
	t.Helper()
	ctx := context.Background()
	cols := make(map[string]map[string]bool)
	rows := make(map[string]int)
	for _, table := range append([]string{"centers", "owners"}, database.CenterScopedTables...) {
		c, err := database.TableColumns(ctx, db, table)
		require.NoError(t, err)
		cols[table] = c

		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table))
		rows[table] = n
	}
	return cols, rows
}

func TestApplySchema_Legacy(t *testing.T) {
	db := testutil.PrepareDB(t)
	conf := testutil.Config()
	ctx := context.Background()

	for _, stmt := range legacy {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	require.NoError(t, database.ApplySchema(ctx, db, conf, testutil.NopLogger{}))

	cols, rows := snapshot(t, db)
	for _, table := range database.CenterScopedTables {
		assert.True(t, cols[table]["center_id"], "%s.center_id", table)

		var nulls int
		require.NoError(t, db.GetContext(ctx, &nulls, `SELECT COUNT(*) FROM `+table+` WHERE center_id IS NULL`))
		assert.Zero(t, nulls, "%s has rows outside any center", table)
	}
	assert.True(t, cols["grades"]["min_score"])
	assert.True(t, cols["grades"]["max_score"])

	var centerIDs []int64
	require.NoError(t, db.SelectContext(ctx, &centerIDs, `SELECT DISTINCT center_id FROM students`))
	assert.Equal(t, []int64{core.DefaultCenterID}, centerIDs, "legacy rows belong to the default center")

	assert.Equal(t, 1, rows["centers"])
	assert.Equal(t, 1, rows["owners"])
	assert.Equal(t, 2, rows["users"], "legacy teacher plus the default admin")
	assert.Equal(t, 2, rows["students"])
	assert.Equal(t, 1, rows["grades"])

	var name string
	require.NoError(t, db.GetContext(ctx, &name, `SELECT name FROM centers WHERE id = $1`, core.DefaultCenterID))
	assert.Equal(t, conf.Bootstrap.CenterName, name)

	t.Run("second run changes nothing", func(t *testing.T) {
		require.NoError(t, database.ApplySchema(ctx, db, conf, testutil.NopLogger{}))
		cols2, rows2 := snapshot(t, db)
		assert.Equal(t, cols, cols2)
		assert.Equal(t, rows, rows2)
	})

	t.Run("new centers do not collide with the default one", func(t *testing.T) {
		var id int64
		require.NoError(t, db.GetContext(ctx, &id, `INSERT INTO centers (name) VALUES ('North') RETURNING id`))
		assert.Greater(t, id, core.DefaultCenterID)
	})
}

func TestApplySchema_Empty(t *testing.T) {
	db := testutil.PrepareDB(t)
	conf := testutil.Config()
	ctx := context.Background()

	require.NoError(t, database.ApplySchema(ctx, db, conf, testutil.NopLogger{}))
	_, rows := snapshot(t, db)
	require.NoError(t, database.ApplySchema(ctx, db, conf, testutil.NopLogger{}))
	_, rows2 := snapshot(t, db)
	assert.Equal(t, rows, rows2)

	var email, role string
	require.NoError(t, db.QueryRowxContext(ctx, `SELECT email, role FROM users`).Scan(&email, &role))
	assert.Equal(t, conf.Bootstrap.AdminEmail, email)
	assert.Equal(t, "admin", role)

	require.NoError(t, db.GetContext(ctx, &email, `SELECT email FROM owners`))
	assert.Equal(t, conf.Bootstrap.OwnerEmail, email)
}
