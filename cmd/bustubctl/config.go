package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// config is bustubctl's whole configuration surface: a pool size, the
// LRU-K replacer's k, and a directory for the paged file and the
// checkpoint log. Grounded on the teacher's internal.NovaSqlConfig
// shape (a viper-unmarshaled mapstructure struct keyed by a small
// nested block), trimmed down to what this core actually needs.
type config struct {
	Buffer struct {
		PoolSize int `mapstructure:"pool_size"`
		K        int `mapstructure:"k"`
	} `mapstructure:"buffer"`
	Storage struct {
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
}

func defaultConfig() config {
	var cfg config
	cfg.Buffer.PoolSize = 16
	cfg.Buffer.K = 2
	cfg.Storage.DataDir = "./bustub-data"
	return cfg
}

// loadConfig reads path as YAML via viper and unmarshals it onto the
// defaults. A missing file is not an error: bustubctl runs fine on
// defaults alone, matching the teacher's "config optional" posture for
// its CLI entrypoints.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("bustubctl: read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("bustubctl: unmarshal config: %w", err)
	}
	return cfg, nil
}
