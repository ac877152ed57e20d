package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "local-game-list.txt", c.RegistryPath)
	assert.Equal(t, BackendS3, c.StoreBackend)
	assert.Equal(t, "savegamesync/", c.S3Prefix)
	assert.True(t, c.S3UsePathStyle)
	assert.Equal(t, 4, c.ExportWorkers)
	assert.Zero(t, c.SavesPerGame)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"savesync", "games"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "save-specs.yaml", cfg.SpecPath)
	assert.Equal(t, "us-east-1", cfg.S3Region)
}
