package database

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core"
	testutil "github.com/darien/gradebook/tests"
)

func TestEnsureSchema_once(t *testing.T) {
	origApply := applySchemaFunc
	t.Cleanup(func() {
		applySchemaFunc = origApply
		schemaOnce = sync.Once{}
		schemaErr = nil
	})

	tests := []struct {
		name     string
		applyErr error
	}{
		{name: "success"},
		{name: "failure is remembered", applyErr: errors.New("schema locked")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schemaOnce = sync.Once{}
			schemaErr = nil

			var mu sync.Mutex
			var calls int
			applySchemaFunc = func(context.Context, *sqlx.DB, *core.Config, core.Logger) error {
				mu.Lock()
				defer mu.Unlock()
				calls++
				return tt.applyErr
			}

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = EnsureSchema(context.Background(), nil, testutil.Config(), testutil.NopLogger{})
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, calls)
			for _, err := range errs {
				assert.Equal(t, tt.applyErr, err)
			}
		})
	}
}

func TestMigrationsFS(t *testing.T) {
	files, err := fs.Glob(MigrationsFS, MigrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.True(t, sort.StringsAreSorted(files), "migrations run in file name order")

	for _, f := range files {
		data, err := fs.ReadFile(MigrationsFS, f)
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", f)
	}
}

func TestApplySchema_runsMigrationsUp(t *testing.T) {
	db := testutil.PrepareDB(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })

	var commands []string
	gooseRunFunc = func(command string, sqlDB *sql.DB, fsys fs.FS, dir string, args ...string) error {
		commands = append(commands, command)
		assert.Equal(t, MigrationsDir, dir)
		return origRun(command, sqlDB, fsys, dir, args...)
	}

	conf := testutil.Config()
	require.NoError(t, ApplySchema(context.Background(), db, conf, testutil.NopLogger{}))
	assert.Equal(t, []string{"up"}, commands)

	failure := errors.New("bad migration")
	gooseRunFunc = func(string, *sql.DB, fs.FS, string, ...string) error { return failure }
	err := ApplySchema(context.Background(), db, conf, testutil.NopLogger{})
	assert.Equal(t, failure, errors.Cause(err))
}
