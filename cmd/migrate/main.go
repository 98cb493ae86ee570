package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping migrations")
		return
	}

	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|version] [--steps n]")
	}
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "migrate"))

	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		logger.Error("init migrator", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down(*steps)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = migrator.Version()
		if err == nil {
			logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migrate "+command, slog.Any("error", err))
		os.Exit(1)
	}
}
