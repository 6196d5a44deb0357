// Package config loads server settings from a YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is everything colonyd needs to start a game.
type Config struct {
	Settings `yaml:",inline"`

	Players []PlayerConfig `yaml:"players"`
	Tribes  []TribeConfig  `yaml:"tribes"`
}

// Settings are the scalar knobs; each can be overridden from the
// environment.
type Settings struct {
	Seed     int64  `yaml:"seed" env:"COLONY_SEED"` // 0 picks a fresh seed
	LogLevel string `yaml:"log_level" env:"COLONY_LOG_LEVEL"`

	Map MapConfig `yaml:"map" envPrefix:"COLONY_MAP_"`

	DBPath          string `yaml:"db_path" env:"COLONY_DB_PATH"`
	TickLogDir      string `yaml:"tick_log_dir" env:"COLONY_TICK_LOG_DIR"` // Empty disables the tick log
	TurnsPerLogFile int    `yaml:"turns_per_log_file" env:"COLONY_TURNS_PER_LOG_FILE"`
	SaveEveryTurns  int    `yaml:"save_every_turns" env:"COLONY_SAVE_EVERY_TURNS"`

	HTTPAddr string `yaml:"http_addr" env:"COLONY_HTTP_ADDR"`
	AdminKey string `yaml:"-" env:"COLONY_ADMIN_KEY"` // Never read from the file

	TurnInterval time.Duration `yaml:"turn_interval" env:"COLONY_TURN_INTERVAL"` // 0 advances only on request
	PollInterval time.Duration `yaml:"poll_interval" env:"COLONY_POLL_INTERVAL"`

	Timeouts Timeouts `yaml:"timeouts" envPrefix:"COLONY_TIMEOUT_"`

	StartingGold int `yaml:"starting_gold" env:"COLONY_STARTING_GOLD"`
}

// MapConfig shapes the generated map.
type MapConfig struct {
	Radius        int     `yaml:"radius" env:"RADIUS"`
	SeaLevel      float64 `yaml:"sea_level" env:"SEA_LEVEL"`
	MountainLevel float64 `yaml:"mountain_level" env:"MOUNTAIN_LEVEL"`
	Settlements   int     `yaml:"settlements_per_tribe" env:"SETTLEMENTS_PER_TRIBE"`
}

// Timeouts bound how long a timed interaction waits for its answer.
type Timeouts struct {
	Diplomacy    time.Duration `yaml:"diplomacy" env:"DIPLOMACY"`
	NativeDemand time.Duration `yaml:"native_demand" env:"NATIVE_DEMAND"`
	Mercenaries  time.Duration `yaml:"mercenaries" env:"MERCENARIES"`
}

// PlayerConfig is one colonizing nation of the roster.
type PlayerConfig struct {
	Name   string `yaml:"name"`
	Nation string `yaml:"nation"`
	Royal  bool   `yaml:"royal"`
	Gold   int    `yaml:"gold"` // 0 uses StartingGold
}

// TribeConfig is one native tribe of the roster.
type TribeConfig struct {
	Name string `yaml:"name"`
}

// Default returns a configuration that runs a small four-nation game.
func Default() Config {
	return Config{
		Settings: Settings{
			LogLevel: "info",
			Map: MapConfig{
				Radius:        16,
				SeaLevel:      0.25,
				MountainLevel: 0.72,
				Settlements:   4,
			},
			DBPath:          "data/colony.db",
			TickLogDir:      "data/ticks",
			TurnsPerLogFile: 50,
			SaveEveryTurns:  1,
			HTTPAddr:        ":8080",
			PollInterval:    time.Second,
			Timeouts: Timeouts{
				Diplomacy:    2 * time.Minute,
				NativeDemand: time.Minute,
				Mercenaries:  time.Minute,
			},
			StartingGold: 1000,
		},
		Players: []PlayerConfig{
			{Name: "Dutch", Nation: "dutch"},
			{Name: "English", Nation: "english"},
			{Name: "French", Nation: "french"},
			{Name: "Spanish", Nation: "spanish"},
		},
		Tribes: []TribeConfig{
			{Name: "Arawak"},
			{Name: "Iroquois"},
		},
	}
}

// Load reads path on top of the defaults, then applies environment
// overrides. An empty path uses the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg.Settings); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Map.Radius < 4 {
		errs = append(errs, fmt.Errorf("map radius %d is below 4", c.Map.Radius))
	}
	if c.Map.SeaLevel < 0 || c.Map.SeaLevel >= c.Map.MountainLevel || c.Map.MountainLevel > 1 {
		errs = append(errs, fmt.Errorf("sea level %.2f and mountain level %.2f out of order", c.Map.SeaLevel, c.Map.MountainLevel))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is empty"))
	}
	if c.TurnInterval < 0 || c.PollInterval <= 0 {
		errs = append(errs, errors.New("intervals must not be negative and the poll interval must be set"))
	}
	if len(c.Players) == 0 {
		errs = append(errs, errors.New("no players"))
	}
	return errors.Join(errs...)
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
