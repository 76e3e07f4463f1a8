package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "database:\n  name: scheduling_test\n"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "scheduling_test", cfg.Database.Name)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15, cfg.Scheduling.GranularityMinutes)
	assert.Equal(t, 30, cfg.Scheduling.HorizonDays)
	assert.Equal(t, 365, cfg.Scheduling.MaxOccurrences)
	assert.Equal(t, "saturday", cfg.Scheduling.WeekStart)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "database:\n  host: db.internal\n  port: 5432\n"))
	t.Setenv("SCHEDULER_DATABASE_HOST", "override.internal")
	t.Setenv("SCHEDULER_DATABASE_PORT", "6543")
	t.Setenv("SCHEDULER_SCHEDULING_GRANULARITY_MINUTES", "30")
	t.Setenv("SCHEDULER_MESSAGING_DRIVER", "kafka")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 30, cfg.Scheduling.GranularityMinutes)
	assert.Equal(t, "kafka", cfg.Messaging.Driver)
	assert.Contains(t, cfg.Database.DSN(), "host=override.internal port=6543")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "database:\n  driver: sqlite\n"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestSchedulingLocation(t *testing.T) {
	loc, err := SchedulingConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = SchedulingConfig{Timezone: "Nowhere/City"}.Location()
	assert.Error(t, err)
}
