package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_add_index.sql": {Data: []byte("SELECT 1;")},
		"migrations/001_init.sql":      {Data: []byte("SELECT 1;")},
		"migrations/README.md":         {Data: []byte("notes")},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_add_index.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(migrationsFS)
	require.NoError(t, err)
	assert.Contains(t, files, "001_clinical_schema.sql")
}
