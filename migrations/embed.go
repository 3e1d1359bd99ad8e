// Package migrations embeds the local state schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/assetsync/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
