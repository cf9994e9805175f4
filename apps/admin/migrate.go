package main

import (
	"context"

	"github.com/trezcool/goose"

	"github.com/darien/gradebook/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

// migrate runs a goose command against the embedded migrations.
// A bare "up" goes through the schema manager, which also inserts the default rows.
func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "up") {
		return cli.ensureSchema(ctx)
	}
	return gooseRunFunc(args[0], cli.db, database.MigrationsFS, database.MigrationsDir, args[1:]...)
}
