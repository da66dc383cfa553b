// Command alerthub runs the news alert ingestion service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/alerthub/internal/bootstrap"
	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// version is set at build time.
var version = "1.0.0"

// pollRunTimeout bounds a one-shot polling pass.
const pollRunTimeout = 10 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "alerthub",
		Short: "News alert ingestion and clustering service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCmd(), newPollCmd(), newVersionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled feed poller",
		RunE: func(_ *cobra.Command, _ []string) error {
			return bootstrap.Start()
		},
	}
}

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Fetch and ingest every enabled feed once, then exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPollOnce()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("alerthub version %s\n", version)
		},
	}
}

// runPollOnce wires the application and runs a single polling pass.
func runPollOnce() error {
	_ = godotenv.Load()

	cfg, configErr := bootstrap.LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := bootstrap.CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	db, dbErr := bootstrap.SetupDatabase(cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() { _ = db.Close() }()

	app := bootstrap.BuildApp(cfg, db, telemetry.NewMetrics(), log)

	ctx, cancel := context.WithTimeout(context.Background(), pollRunTimeout)
	defer cancel()

	app.Poller.PollAll(ctx)
	return nil
}
