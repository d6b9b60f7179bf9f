package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status|version|reset]

import (
	"context"
	"os"

	"go.uber.org/zap"

	"docmgmt-backend/internal/shared/config"
	"docmgmt-backend/internal/shared/storage/db"
	"docmgmt-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		telemetry.L().Fatal("telemetry init failed", zap.Error(err))
	}
	defer telemetry.Sync()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.database_url_missing", nil)
		os.Exit(1)
	}
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err})
		_ = sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
