package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4200.0, cfg.PlantCapacity)
	assert.Equal(t, 8, cfg.SensorCount)
	assert.Equal(t, 0.05, cfg.NoiseLevel)
	assert.Equal(t, 5*time.Second, cfg.BroadcastInterval)
	assert.Equal(t, 100, cfg.MaxClients)
	assert.Equal(t, 15*time.Second, cfg.AITimeout)
	assert.Equal(t, "plant-history", cfg.InfluxBucket)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PLANT_CAPACITY", "6000")
	t.Setenv("BROADCAST_INTERVAL_MS", "250")
	t.Setenv("NOISE_LEVEL", "0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 6000.0, cfg.PlantCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, 0.1, cfg.NoiseLevel)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("SENSOR_COUNT", "eight")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENSOR_COUNT")
}

func TestLoadValidatesRanges(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PLANT_CAPACITY", "-1"},
		{"SENSOR_COUNT", "0"},
		{"NOISE_LEVEL", "1.5"},
		{"ANOMALY_PROBABILITY", "-0.2"},
		{"BROADCAST_INTERVAL_MS", "0"},
		{"MAX_CLIENTS", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresCompleteInfluxSettings(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "http://localhost:8086")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFLUXDB_TOKEN")

	t.Setenv("INFLUXDB_TOKEN", "secret")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFLUXDB_ORG")

	t.Setenv("INFLUXDB_ORG", "cementlab")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086", cfg.InfluxURL)
}
