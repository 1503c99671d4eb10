package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if RAIDLOGS_CONFIG is set
//  3. env (prefix RAIDLOGS_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RAIDLOGS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: RAIDLOGS_ADDR, RAIDLOGS_MIN_PARTY_DPS, ...
	// Map env keys like RAIDLOGS_MIN_PARTY_DPS -> min_party_dps (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RAIDLOGS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "raidlogs_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.MaxAllowedTimeDiffSec <= 0:
		return fmt.Errorf("%w: max_allowed_time_diff_sec must be positive", ErrInvalidConfig)
	case c.MinMembersCount < 1 || c.MaxMembersCount < c.MinMembersCount:
		return fmt.Errorf("%w: member count bounds are inconsistent", ErrInvalidConfig)
	case c.RecentRunsAmount < 1 || c.TopPlacesAmount < 1:
		return fmt.Errorf("%w: search result caps must be positive", ErrInvalidConfig)
	case c.RunIDLength < 1:
		return fmt.Errorf("%w: run_id_length must be positive", ErrInvalidConfig)
	}
	return nil
}
