// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// GamedataPath optionally points at a YAML overlay for the built-in game
	// tables (whitelist, regions, analysis thresholds).
	GamedataPath string `koanf:"gamedata_path"`

	// AuthHeader names the request header carrying the upload token.
	AuthHeader string `koanf:"auth_header"`

	// AllowAnonymousUpload disables the upload token check entirely.
	AllowAnonymousUpload bool `koanf:"allow_anonymous_upload"`

	// MaxAllowedTimeDiffSec bounds the gap between server time and the
	// client-reported encounter time. The duplicate window uses the same
	// value.
	MaxAllowedTimeDiffSec int `koanf:"max_allowed_time_diff_sec"`

	// MinPartyDps is the party DPS floor for admission. MaxPartyDps is kept
	// for operators but no rule enforces it.
	MinPartyDps int64 `koanf:"min_party_dps"`
	MaxPartyDps int64 `koanf:"max_party_dps"`

	// MinMembersCount and MaxMembersCount bound the roster size.
	MinMembersCount int `koanf:"min_members_count"`
	MaxMembersCount int `koanf:"max_members_count"`

	// DedupeSweepSec sets the cadence of the fingerprint expiry sweep.
	DedupeSweepSec int `koanf:"dedupe_sweep_sec"`

	// RecentRunsAmount caps POST /search/recent results.
	RecentRunsAmount int `koanf:"recent_runs_amount"`

	// TopPlacesAmount caps POST /search/top results.
	TopPlacesAmount int `koanf:"top_places_amount"`

	// RunIDLength sets the length of public run ids.
	RunIDLength int `koanf:"run_id_length"`

	// RunURLBase is prepended to run ids in upload responses, e.g.
	// "https://example.org/runs".
	RunURLBase string `koanf:"run_url_base"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8080",
		DBPath:                "raidlogs.db",
		GamedataPath:          "",
		AuthHeader:            "X-Auth-Token",
		AllowAnonymousUpload:  false,
		MaxAllowedTimeDiffSec: 300,
		MinPartyDps:           10_000,
		MaxPartyDps:           500_000_000,
		MinMembersCount:       1,
		MaxMembersCount:       30,
		DedupeSweepSec:        30,
		RecentRunsAmount:      20,
		TopPlacesAmount:       10,
		RunIDLength:           5,
		RunURLBase:            "",
	}
}
