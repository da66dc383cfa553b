// Command migrate applies database schema migrations.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/jonesrussell/alerthub/internal/bootstrap"
	"github.com/jonesrussell/alerthub/internal/config"
)

// Exit codes for the migrate command.
const (
	exitSuccess = 0
	exitFailure = 1
)

// migrationsPath is the relative path to the migrations directory.
const migrationsPath = "file://migrations"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down>")
		return exitFailure
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction: %q (must be \"up\" or \"down\")\n", direction)
		return exitFailure
	}

	_ = godotenv.Load()

	cfg, configErr := bootstrap.LoadConfig()
	if configErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", configErr)
		return exitFailure
	}

	m, newErr := migrate.New(migrationsPath, buildMigrateURL(cfg))
	if newErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrate instance: %v\n", newErr)
		return exitFailure
	}
	defer func() { _, _ = m.Close() }()

	if migrateErr := runMigration(m, direction); migrateErr != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", direction, migrateErr)
		return exitFailure
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return exitSuccess
}

// buildMigrateURL constructs a PostgreSQL URL from database config.
func buildMigrateURL(cfg *config.Config) string {
	db := &cfg.Database
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Database, db.SSLMode,
	)
}

// runMigration executes the migration in the specified direction.
func runMigration(m *migrate.Migrate, direction string) error {
	var migrateErr error

	switch direction {
	case "up":
		migrateErr = m.Up()
	case "down":
		migrateErr = m.Down()
	}

	if errors.Is(migrateErr, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return nil
	}

	return migrateErr
}
