package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinytactics/internal/mode"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir moves into an empty directory so no stray config.yaml or .env is read.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 10, cfg.Modes.PuzzlesPerLevel)
	assert.Equal(t, mode.DefaultCombo(), cfg.Modes.Combo)
	assert.Equal(t, 30*time.Minute, cfg.Hub.IdleTTL)
	assert.InDelta(t, 1.3, cfg.SRS.MinEase, 1e-9)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := chdir(t)
	path := writeYAML(t, dir, `
server:
  addr: ":9090"
storage:
  driver: badger
  path: ./progress
modes:
  combo: "3:4s"
  puzzles_per_level: 5
  restart: puzzle
log:
  format: json
`)
	t.Setenv("MODES_PUZZLES_PER_LEVEL", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, 7, cfg.Modes.PuzzlesPerLevel)
	assert.Equal(t, []mode.ComboThreshold{{Streak: 3, Bonus: 4 * time.Second}}, cfg.Modes.Combo)

	tun := cfg.Modes.Tuning()
	assert.Equal(t, mode.RestartPuzzle, tun.Restart)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CONFIG_PATH", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PUZZLES_DIR=/srv/pgn\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("PUZZLES_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/pgn", cfg.Puzzles.Dir)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	dir := chdir(t)
	cases := map[string]string{
		"postgres without dsn":  "storage:\n  driver: postgres\n",
		"unknown driver":        "storage:\n  driver: sqlite\n",
		"bad combo":             "modes:\n  combo: \"five:3s\"\n",
		"bad restart":           "modes:\n  restart: level\n",
		"ease below floor":      "srs:\n  initial_ease: 1.0\n  min_ease: 1.3\n",
		"negative interval cap": "srs:\n  max_interval_days: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, dir, body))
			assert.Error(t, err)
		})
	}
}

func TestParseCombo(t *testing.T) {
	got, err := ParseCombo(" 5:5s, 2:3s ")
	require.NoError(t, err)
	assert.Equal(t, []mode.ComboThreshold{{Streak: 2, Bonus: 3 * time.Second}, {Streak: 5, Bonus: 5 * time.Second}}, got)

	got, err = ParseCombo("")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"2", "0:1s", "2:abc", "2:1s,2:3s", "2:-1s"} {
		_, err := ParseCombo(bad)
		assert.Error(t, err, bad)
	}
}
