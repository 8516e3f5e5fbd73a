package config

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
)

// AutoHostParams holds the parameters of the automatic host (name and pacing).
type AutoHostParams struct {
	Name       string `json:"name" env:"NAME"`
	DelayMinMS int    `json:"delay_min_ms" env:"DELAY_MIN_MS"`
	DelayMaxMS int    `json:"delay_max_ms" env:"DELAY_MAX_MS"`
	PassChance int    `json:"pass_chance" env:"PASS_CHANCE"` // 0-100, probability that a challenge is judged as passed
	Strategy   string `json:"strategy" env:"STRATEGY"`       // how boxes and cards are chosen, see autohost.Names
}

// Config holds all configurable game parameters.
type Config struct {
	DefaultTotalPlayers int `json:"default_total_players" env:"DEFAULT_TOTAL_PLAYERS"`
	MaxTotalPlayers     int `json:"max_total_players" env:"MAX_TOTAL_PLAYERS"`
	VictimRevealDelayMS int `json:"victim_reveal_delay_ms" env:"VICTIM_REVEAL_DELAY_MS"`
	WSPort              int `json:"ws_port" env:"WS_PORT"`
	MaxSessions         int `json:"max_sessions" env:"MAX_SESSIONS"`

	// Seed fixes the random source of every session. Zero draws a fresh seed per session.
	Seed     int64  `json:"seed" env:"GAME_SEED"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// HostAuthSecret or HostAuthJWKSURL enable bearer-token checks for hosts. Both empty disables them.
	HostAuthSecret  string `json:"host_auth_secret" env:"HOST_AUTH_SECRET"`
	HostAuthJWKSURL string `json:"host_auth_jwks_url" env:"HOST_AUTH_JWKS_URL"`

	// Challenges replaces the built-in challenge texts when non-empty.
	Challenges []string `json:"challenges" env:"CHALLENGES" envSeparator:"|"`

	AutoHost AutoHostParams `json:"autohost" envPrefix:"AUTOHOST_"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		DefaultTotalPlayers: 20,
		MaxTotalPlayers:     500,
		VictimRevealDelayMS: 2000,
		WSPort:              8080,
		MaxSessions:         16,
		LogLevel:            "info",
		AutoHost: AutoHostParams{
			Name:       "Santa",
			DelayMinMS: 400,
			DelayMaxMS: 900,
			PassChance: 60,
			Strategy:   "sequential",
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFrom("config.json")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "error", err)
		}
	}

	// Parse into a copy so a bad variable cannot leave a half-applied config.
	overridden := *cfg
	if err := env.Parse(&overridden); err != nil {
		slog.Warn("invalid environment override, keeping file and default values", "tag", "config", "error", err)
		return cfg
	}
	return &overridden
}
