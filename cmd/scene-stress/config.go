package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config tunes the stress run. Every value has a default; a TOML file
// overrides selectively.
type Config struct {
	Entities      int      `toml:"entities"`
	ChurnPerTick  int      `toml:"churn_per_tick"`
	SnapshotEvery int      `toml:"snapshot_every"`
	RestoreEvery  int      `toml:"restore_every"`
	SnapshotCache int      `toml:"snapshot_cache"`
	PoolTiers     []int    `toml:"pool_tiers"`
	CompactBudget duration `toml:"compact_budget"`
}

// duration wraps time.Duration for TOML decoding from strings like "2ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func defaultConfig() Config {
	return Config{
		Entities:      10000,
		ChurnPerTick:  50,
		SnapshotEvery: 120,
		RestoreEvery:  600,
		SnapshotCache: 10,
		PoolTiers:     []int{256, 1024},
		CompactBudget: duration{500 * time.Microsecond},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.Entities <= 0 || cfg.SnapshotEvery <= 0 {
		return cfg, fmt.Errorf("config %s: entities and snapshot_every must be positive", path)
	}
	return cfg, nil
}
