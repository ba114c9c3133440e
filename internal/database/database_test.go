package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aTrapDeer/portfolio-api/internal/database"
	"github.com/aTrapDeer/portfolio-api/internal/models"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{database.DriverSQLite, database.DriverPostgres, database.DriverMySQL} {
		d, err := database.Dialector(driver, "dsn")
		require.NoError(t, err, driver)
		assert.NotNil(t, d, driver)
	}

	_, err := database.Dialector("oracle", "dsn")
	assert.ErrorIs(t, err, database.ErrUnknownDriver)
}

func TestOpenAndMigrateSQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfolio.db")

	db, err := database.Open(ctx, database.DriverSQLite, path, nil)
	require.NoError(t, err)
	defer func() { _ = database.Close(db) }()

	require.NoError(t, database.Migrate(ctx, db))
	require.NoError(t, database.Ping(ctx, db))

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T table", m)
	}
	assert.True(t, db.Migrator().HasColumn(&models.Project{}, "github_url"))
	assert.True(t, db.Migrator().HasColumn(&models.Profile{}, "about_content"))
	assert.True(t, db.Migrator().HasColumn(&models.Certification{}, "credential_url"))
}
