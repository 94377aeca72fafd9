package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/db"
	"github.com/attos/attos-backend/pkg/db/models"
	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/logger"
)

func newSQLiteClient(t *testing.T, name string) *db.Client {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file:" + name + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	client := db.NewFromGorm(conn, enums.StoreDriverSQLite)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRunEmbeddedUpCreatesStateEntries(t *testing.T) {
	client := newSQLiteClient(t, "migrate_run_test")
	sqlDB, err := client.SQLDB()
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), sqlDB, enums.StoreDriverSQLite, EmbeddedDir, "up"))
	assert.True(t, client.DB().Migrator().HasTable(&models.StateEntry{}))

	// second run is a no-op
	require.NoError(t, Run(context.Background(), sqlDB, enums.StoreDriverSQLite, EmbeddedDir, "up"))
}

func TestMaybeRunSkipsWhenDisabled(t *testing.T) {
	client := newSQLiteClient(t, "migrate_skip_test")
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}, Store: config.StoreConfig{AutoMigrate: false}}

	require.NoError(t, MaybeRun(context.Background(), cfg, logger.Nop(), client))
	assert.False(t, client.DB().Migrator().HasTable(&models.StateEntry{}))
}

func TestMaybeRunAppliesOnSQLite(t *testing.T) {
	client := newSQLiteClient(t, "migrate_autorun_test")
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}, Store: config.StoreConfig{AutoMigrate: true}}

	require.NoError(t, MaybeRun(context.Background(), cfg, logger.Nop(), client))
	assert.True(t, client.DB().Migrator().HasTable(&models.StateEntry{}))
}

func TestDialect(t *testing.T) {
	got, err := Dialect(enums.StoreDriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres", got)

	_, err = Dialect(enums.StoreDriverMemory)
	assert.Error(t, err)
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Promo Audit!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_promo_audit.sql"))
	require.NoError(t, ValidateDir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- nothing"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestValidateRejectsPostgresOnlySQL(t *testing.T) {
	dir := t.TempDir()
	content := "-- +goose Up\nCREATE TYPE stage AS ENUM ('a');\n-- +goose Down\nDROP TYPE stage;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301100000_stage_enum.sql"), []byte(content), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREATE TYPE")
}
