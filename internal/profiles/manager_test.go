package profiles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/DipoleDigital/MongoDBBackup/internal/config"
	"github.com/DipoleDigital/MongoDBBackup/internal/profiles"
)

func TestManagerSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "10.8.0.2",
			Port:     27017,
			Database: "appdb",
			Username: "backup",
		},
	}

	profile, err := manager.Save("Prod VPN", cfg)
	require.NoError(t, err)
	require.Equal(t, "Prod_VPN", profile.Name)
	require.Equal(t, "appdb", profile.Database)
	require.FileExists(t, profile.Path)

	loaded, err := manager.Load(profile.Name)
	require.NoError(t, err)
	require.Equal(t, cfg.Database.Host, loaded.Database.Host)
	require.Equal(t, cfg.Database.Database, loaded.Database.Database)
	require.Equal(t, cfg.Database.Username, loaded.Database.Username)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestManagerSaveDefaultAlias(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "db.example.com",
			Database: "appdb",
		},
	}

	profile, err := manager.Save("", cfg)
	require.NoError(t, err)
	require.Equal(t, "appdb-db_example_com", profile.Name)
}

func TestManagerListSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	writeProfile(t, dir, "alpha.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{unclosed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	list, err := manager.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "alpha", list[0].Name)
}

func TestManagerDelete(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	writeProfile(t, dir, "alpha.yaml")
	require.NoError(t, manager.Delete("alpha"))
	require.Error(t, manager.Delete("alpha"))
}

func writeProfile(t *testing.T, dir, name string) {
	t.Helper()

	cfg := config.Config{
		Database: config.DatabaseConfig{
			Host:     "localhost",
			Port:     27017,
			Database: "appdb",
		},
	}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}
