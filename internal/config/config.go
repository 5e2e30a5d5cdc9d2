// Package config loads application settings from YAML, the environment and
// an optional .env file.
package config

import (
	"time"

	"tinytactics/internal/mode"
)

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Puzzles PuzzlesConfig `yaml:"puzzles"`
	Modes   ModesConfig   `yaml:"modes"`
	SRS     SRSConfig     `yaml:"srs"`
	Hub     HubConfig     `yaml:"hub"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StorageConfig selects the progress backend.
type StorageConfig struct {
	Driver     string        `yaml:"driver"      env:"STORAGE_DRIVER"      env-default:"memory" validate:"oneof=memory badger postgres"`
	Path       string        `yaml:"path"        env:"STORAGE_PATH"        env-default:"./data"`
	DSN        string        `yaml:"dsn"         env:"DATABASE_DSN"`
	GCInterval time.Duration `yaml:"gc_interval" env:"STORAGE_GC_INTERVAL" env-default:"10m"`
}

// PuzzlesConfig tells where PGN files live.
type PuzzlesConfig struct {
	Dir string `yaml:"dir" env:"PUZZLES_DIR" env-default:"./puzzles" validate:"required"`
	// Seed fixes the shuffle order. Zero picks a random seed per session.
	Seed uint64 `yaml:"seed" env:"PUZZLES_SEED" env-default:"0"`
}

// ModesConfig tunes the product parameters of the built-in modes.
type ModesConfig struct {
	ComboRaw        string        `yaml:"combo"             env:"MODES_COMBO"             env-default:"2:3s,5:5s,10:8s,20:12s,30:15s"`
	PuzzlesPerLevel int           `yaml:"puzzles_per_level" env:"MODES_PUZZLES_PER_LEVEL" env-default:"10" validate:"gt=0"`
	Restart         string        `yaml:"restart"           env:"MODES_RESTART"           env-default:"block" validate:"oneof=block puzzle"`
	TimeBonus       time.Duration `yaml:"time_bonus"        env:"MODES_TIME_BONUS"        validate:"gte=0"`
	TimePenalty     time.Duration `yaml:"time_penalty"      env:"MODES_TIME_PENALTY"      validate:"gte=0"`

	// Combo is parsed from ComboRaw by Validate.
	Combo []mode.ComboThreshold `yaml:"-" env:"-"`
}

// Tuning converts the settings for mode.Registry.Tune.
func (m ModesConfig) Tuning() mode.Tuning {
	return mode.Tuning{
		Combo:           m.Combo,
		PuzzlesPerLevel: m.PuzzlesPerLevel,
		Restart:         mode.RestartScope(m.Restart),
		TimeBonus:       m.TimeBonus,
		TimePenalty:     m.TimePenalty,
	}
}

// SRSConfig holds the SM-2 parameters.
type SRSConfig struct {
	InitialEase     float64 `yaml:"initial_ease"      env:"SRS_INITIAL_EASE"      env-default:"2.5"`
	MinEase         float64 `yaml:"min_ease"          env:"SRS_MIN_EASE"          env-default:"1.3"`
	MaxIntervalDays int     `yaml:"max_interval_days" env:"SRS_MAX_INTERVAL_DAYS" env-default:"0"`
}

// HubConfig controls live session housekeeping.
type HubConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"       env:"HUB_IDLE_TTL"       env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"HUB_SWEEP_INTERVAL" env-default:"1m"`
	TickInterval  time.Duration `yaml:"tick_interval"  env:"HUB_TICK_INTERVAL"  env-default:"1s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
	Debug  bool   `yaml:"debug"  env:"LOG_DEBUG"  env-default:"false"`
}
