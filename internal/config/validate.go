package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tinytactics/internal/mode"
)

var validate = validator.New()

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the postgres driver")
	}
	if c.Storage.Driver == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the badger driver")
	}

	combo, err := ParseCombo(c.Modes.ComboRaw)
	if err != nil {
		return fmt.Errorf("modes.combo: %w", err)
	}
	c.Modes.Combo = combo

	if err := c.SRS.validate(); err != nil {
		return fmt.Errorf("srs: %w", err)
	}
	if c.Hub.TickInterval <= 0 {
		return fmt.Errorf("hub.tick_interval must be > 0 (got %v)", c.Hub.TickInterval)
	}

	return nil
}

func (s *SRSConfig) validate() error {
	if s.MinEase <= 0 {
		return fmt.Errorf("min_ease must be > 0 (got %v)", s.MinEase)
	}
	if s.InitialEase < s.MinEase {
		return fmt.Errorf("initial_ease must be >= min_ease (got %v < %v)", s.InitialEase, s.MinEase)
	}
	if s.MaxIntervalDays < 0 {
		return fmt.Errorf("max_interval_days must be >= 0 (got %d)", s.MaxIntervalDays)
	}
	return nil
}

// ParseCombo parses "streak:bonus" pairs separated by commas, for example
// "2:3s,5:5s". The result is sorted by streak. An empty string disables
// combo bonuses.
func ParseCombo(raw string) ([]mode.ComboThreshold, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var out []mode.ComboThreshold
	seen := make(map[int]bool)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		streakRaw, bonusRaw, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("invalid threshold %q: want streak:bonus", p)
		}
		streak, err := strconv.Atoi(strings.TrimSpace(streakRaw))
		if err != nil || streak <= 0 {
			return nil, fmt.Errorf("invalid streak in %q", p)
		}
		bonus, err := time.ParseDuration(strings.TrimSpace(bonusRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid bonus %q: %w", bonusRaw, err)
		}
		if bonus < 0 {
			return nil, fmt.Errorf("negative bonus in %q", p)
		}
		if seen[streak] {
			return nil, fmt.Errorf("duplicate streak %d", streak)
		}
		seen[streak] = true
		out = append(out, mode.ComboThreshold{Streak: streak, Bonus: bonus})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Streak < out[j].Streak })
	return out, nil
}
