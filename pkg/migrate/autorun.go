package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/config"
	"github.com/angelmondragon/caseflow-backend/pkg/db"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// VerifySchema reads the applied version and checks the schema contract. The returned
// capabilities decide whether order metadata columns are written.
func VerifySchema(ctx context.Context, cfg *config.Config, logg *logger.Logger, conn *gorm.DB) (Capabilities, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return Capabilities{}, fmt.Errorf("extracting sql.DB: %w", err)
	}
	version, err := CurrentVersion(sqlDB)
	if err != nil {
		return Capabilities{}, err
	}

	caps, err := CheckContract(ctx, conn, version, DefaultContract(cfg.Schema.RequireOrderMetadata))
	if err != nil {
		return Capabilities{}, err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"schema_version": version,
		"order_metadata": caps.OrderMetadata,
	})
	if !caps.OrderMetadata {
		logg.Warn(ctx, "order metadata columns missing; orders are written without metadata")
	} else {
		logg.Info(ctx, "schema contract satisfied")
	}
	return caps, nil
}
