package forkchain

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultCutoffAge is how far behind the maximum height a fork
	// may still be extended.
	DefaultCutoffAge = 10

	DefaultPruneInterval = 1
)

type Config struct {
	// A block is refused when its height would be at or below the
	// current maximum height minus CutoffAge.
	CutoffAge int `toml:"cutoff_age"`

	// Run the pruning sweep every PruneInterval advances of the
	// maximum height. Zero disables automatic sweeps, Prune can still
	// be called.
	PruneInterval int `toml:"prune_interval"`

	// Best-branch blocks kept below the cutoff window. Zero keeps all
	// of them (without their UTXO snapshots).
	AncestorRetention int `toml:"ancestor_retention"`

	// Maximum number of pending transactions, zero is unbounded.
	MaxPoolSize int `toml:"max_pool_size"`

	// Verifier defaults to secp.Verifier.
	Verifier SigVerifier `toml:"-"`

	// Metrics are registered here when not nil.
	Registerer prometheus.Registerer `toml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		CutoffAge:     DefaultCutoffAge,
		PruneInterval: DefaultPruneInterval,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Keys missing
// from the file keep their default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CutoffAge < 0 {
		return errors.Errorf("cutoff_age must not be negative, got %d", c.CutoffAge)
	}
	if c.PruneInterval < 0 {
		return errors.Errorf("prune_interval must not be negative, got %d", c.PruneInterval)
	}
	if c.AncestorRetention < 0 {
		return errors.Errorf("ancestor_retention must not be negative, got %d", c.AncestorRetention)
	}
	if c.MaxPoolSize < 0 {
		return errors.Errorf("max_pool_size must not be negative, got %d", c.MaxPoolSize)
	}
	return nil
}
