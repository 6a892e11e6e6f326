package main

import (
	"flag"
	"log"
	"os"

	"github.com/ogurasousui/construction-api/internal/platform/config"
	pg "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "", "directory containing migration files (defaults to the embedded migrations)")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	cfgPath := effectiveConfigPath(*configPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	migrateLog, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer migrateLog.Sync()

	m, err := pg.NewMigrator(cfg.Database.DSN(), pg.MigrationSource{Dir: *migrationsDir}, migrateLog)
	if err != nil {
		migrateLog.Fatal("failed to create migrator", "error", err)
	}

	out, err := m.Run(action, flag.Args()[min(1, flag.NArg()):]...)
	if closeErr := m.Close(); closeErr != nil {
		migrateLog.Warn("failed to close migrator", "error", closeErr)
	}
	if err != nil {
		migrateLog.Fatal("migration failed", "action", action, "error", err)
	}
	if out != "" {
		migrateLog.Info(out)
	}

	migrateLog.Info("migration completed", "action", action)
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
