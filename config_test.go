package forkchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forkchain.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cutoff_age = 4
ancestor_retention = 16
max_pool_size = 1000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.CutoffAge)
	assert.Equal(t, 16, cfg.AncestorRetention)
	assert.Equal(t, 1000, cfg.MaxPoolSize)
	// not in the file
	assert.Equal(t, DefaultPruneInterval, cfg.PruneInterval)
	assert.Nil(t, cfg.Verifier)
}

func TestLoadConfig_empty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "cutoff_age = -1\n"))
	assert.ErrorContains(t, err, "cutoff_age must not be negative")

	_, err = LoadConfig(writeConfig(t, "prune_interval = -3\n"))
	assert.ErrorContains(t, err, "prune_interval")

	_, err = LoadConfig(writeConfig(t, "cutoff_age = \"ten\"\n"))
	assert.Error(t, err)
}

func TestNew_negativeCutoff(t *testing.T) {
	genesis := newGenesis(alice, 1)
	bc := New(genesis, &Config{CutoffAge: -5})
	b1 := newBlockOn(genesis, 1, 0)
	require.True(t, bc.CommitBlock(b1))

	// cutoff 0: only the best block can be extended
	assert.False(t, bc.CommitBlock(newBlockOn(genesis, 1, 1)))
	assert.True(t, bc.CommitBlock(newBlockOn(b1, 2, 0)))
}
