package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeYAML(t, "environment: test\nforecast:\n  multi:\n    epochs: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Minute, c.Server.WriteTimeout)
	assert.Equal(t, "badger", c.Store.Backend)
	assert.Equal(t, 8, c.Forecast.Single.Lookback)
	assert.Equal(t, 60, c.Forecast.Single.Epochs)
	assert.Equal(t, 60, c.Forecast.Multi.Lookback)
	assert.Equal(t, 5, c.Forecast.Multi.Epochs)
	assert.Equal(t, 64, c.Forecast.Multi.HeadUnits)
	assert.True(t, c.Forecast.Multi.Shuffle)
	assert.Equal(t, int64(42), c.Forecast.Seed)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeYAML(t, "store:\n  backend: floppy\n"))
	require.Error(t, err)

	_, err = Load(writeYAML(t, "store:\n  backend: clickhouse\n"))
	require.Error(t, err)

	_, err = Load(writeYAML(t, "kafka:\n  enabled: true\n"))
	require.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("SYMBOLS", "AAPL, MSFT,,")
	t.Setenv("FINNHUB_API_KEY", "fk")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PORT", "9090")

	c, err := LoadWithEnv(writeYAML(t, "environment: test\n"))
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Backend)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Finnhub.Symbols)
	assert.True(t, c.Finnhub.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)
}
