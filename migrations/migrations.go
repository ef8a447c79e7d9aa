package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/danthegoodman1/icebucket/gologger"
	// ensure "pgx" driver is loaded
	_ "github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	//go:embed *.sql
	migrations embed.FS

	ErrMigrationsNotRun = fmt.Errorf("not all migrations applied")

	logger = gologger.NewLogger()

	source = migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       ".",
	}
	migrationSet = migrate.MigrationSet{
		TableName: "icebucket_migrations",
	}
)

func RunMigrations(crdbDsn string) (int, error) {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return migrationSet.Exec(db, "postgres", source, migrate.Up)
}

func CheckMigrations(crdbDsn string) error {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return err
	}
	defer db.Close()
	migration, _, err := migrationSet.PlanMigration(db, "postgres", source, migrate.Up, 0)
	if err != nil {
		return err
	}
	if len(migration) > 0 {
		for _, mig := range migration {
			logger.Warn().Str("migrationID", mig.Id).Msg("missing migration")
		}
		return ErrMigrationsNotRun
	}
	return nil
}

// EnsureMigrations applies pending migrations and then verifies none remain.
func EnsureMigrations(crdbDsn string) error {
	n, err := RunMigrations(crdbDsn)
	if err != nil {
		return fmt.Errorf("error in RunMigrations: %w", err)
	}
	if n > 0 {
		logger.Info().Int("applied", n).Msg("applied migrations")
	}
	return CheckMigrations(crdbDsn)
}
