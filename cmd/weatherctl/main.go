// Command weatherctl prepares the weather store outside the server process.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"weatherstation-server/internal/config"
	"weatherstation-server/internal/db"
	"weatherstation-server/internal/logging"
	"weatherstation-server/internal/modules/weather"
	"weatherstation-server/internal/modules/weather/repository"
)

const (
	appName = "weatherctl"
	version = "dev"
	usage   = `usage: %s <command>
  init-schema  create tables and indexes if missing
  seed         create the schema and import the seed CSV files into an empty store
  counts       print location and measurement row counts
`
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)

	if err := run(context.Background(), os.Args[1], cfg, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	switch command {
	case "init-schema", "seed", "counts":
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	switch command {
	case "init-schema":
		if err := db.InitializeSchema(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "schema ready")
	case "seed":
		if err := db.InitializeSchema(ctx, conn); err != nil {
			return err
		}
		report, err := weather.Seed(ctx, conn, cfg, logger)
		if err != nil {
			return err
		}
		if !report.Ran {
			fmt.Fprintln(out, "store already populated, nothing imported")
			return nil
		}
		fmt.Fprintf(out, "locations: %d loaded, %d skipped\n", report.Locations.Loaded, report.Locations.Skipped)
		fmt.Fprintf(out, "weather: %d loaded, %d skipped\n", report.Weather.Loaded, report.Weather.Skipped)
	case "counts":
		locations, measurements, err := repository.NewRepository(conn).RowCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "locations=%d measurements=%d\n", locations, measurements)
	}
	return nil
}
