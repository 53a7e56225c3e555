package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateMigrations_WalksUp(t *testing.T) {
	root := t.TempDir()
	migrations := filepath.Join(root, "db", "migrations")
	require.NoError(t, os.MkdirAll(migrations, 0o755))
	nested := filepath.Join(root, "cmd", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := LocateMigrations(nested)
	require.NoError(t, err)
	assert.Equal(t, migrations, got)

	got, err = LocateMigrations(root)
	require.NoError(t, err)
	assert.Equal(t, migrations, got)
}

func TestLocateMigrations_NotFound(t *testing.T) {
	_, err := LocateMigrations(t.TempDir())
	assert.Error(t, err)
}

func TestLocateMigrations_FindsRepoSchema(t *testing.T) {
	dir, err := LocateMigrations(".")
	require.NoError(t, err)

	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(ups), 2)
}
