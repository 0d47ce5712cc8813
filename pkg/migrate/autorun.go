package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot when running in dev with the
// auto-migrate flag on. Other environments use cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	pending, err := migrator.HasPending(ctx)
	if err != nil {
		return err
	}
	if !pending {
		logg.Info(ctx, "clip schema is up to date")
		return nil
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{"version": res.Version, "file": res.Path}), "applied migration")
	}
	return nil
}
