package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_EmptyDSN(t *testing.T) {
	err := RunMigrations("", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is empty")
}

func TestRunMigrations_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		t.Run(direction, func(t *testing.T) {
			err := RunMigrations("host=localhost dbname=test", direction)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "direction must be up or down")
		})
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Equal(t, len(ups), len(downs))
}
