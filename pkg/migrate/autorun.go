package migrate

import (
	"context"
	"fmt"

	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/db"
	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/logger"
)

// MaybeRun applies the embedded migrations when auto-migrate is on and the app
// runs in dev or on sqlite. Production postgres is migrated through cmd/migrate.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.Store.AutoMigrate || client == nil {
		return nil
	}
	driver := client.Driver()
	if !cfg.App.IsDev() && driver != enums.StoreDriverSQLite {
		return nil
	}

	sqlDB, err := client.SQLDB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "db_driver": driver.String()})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, driver, EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
