// Package config provides environment-based configuration.
//
// Loads from a .env file when present (godotenv), falls back to system
// environment variables. Validates ranges at load time so downstream
// components never see a zero period or negative interval.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	// Plant simulation
	PlantCapacity      float64 // tonnes cement per day
	SensorCount        int
	NoiseLevel         float64 // jitter fraction applied to synthesized values
	AnomalyProbability float64 // chance per equipment unit of a non-running status

	// Broadcast
	BroadcastInterval time.Duration
	MaxClients        int

	// External AI text service
	AIServiceURL string
	AIServiceKey string
	AITimeout    time.Duration

	// Optional snapshot archive (fire-and-forget)
	RedisURL string

	// Optional recorded plant data source
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}

	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		AIServiceURL: getEnv("AI_SERVICE_URL", ""),
		AIServiceKey: getEnv("AI_SERVICE_KEY", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		InfluxURL:    getEnv("INFLUXDB_URL", ""),
		InfluxToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUXDB_ORG", ""),
		InfluxBucket: getEnv("INFLUXDB_BUCKET", "plant-history"),
	}

	var err error
	if cfg.PlantCapacity, err = getEnvFloat("PLANT_CAPACITY", 4200); err != nil {
		return nil, err
	}
	if cfg.SensorCount, err = getEnvInt("SENSOR_COUNT", 8); err != nil {
		return nil, err
	}
	if cfg.NoiseLevel, err = getEnvFloat("NOISE_LEVEL", 0.05); err != nil {
		return nil, err
	}
	if cfg.AnomalyProbability, err = getEnvFloat("ANOMALY_PROBABILITY", 0.05); err != nil {
		return nil, err
	}
	if cfg.MaxClients, err = getEnvInt("MAX_CLIENTS", 100); err != nil {
		return nil, err
	}

	intervalMs, err := getEnvInt("BROADCAST_INTERVAL_MS", 5000)
	if err != nil {
		return nil, err
	}
	cfg.BroadcastInterval = time.Duration(intervalMs) * time.Millisecond

	timeoutMs, err := getEnvInt("AI_TIMEOUT_MS", 15000)
	if err != nil {
		return nil, err
	}
	cfg.AITimeout = time.Duration(timeoutMs) * time.Millisecond

	if cfg.PlantCapacity <= 0 {
		return nil, fmt.Errorf("PLANT_CAPACITY must be positive, got %v", cfg.PlantCapacity)
	}
	if cfg.SensorCount <= 0 {
		return nil, fmt.Errorf("SENSOR_COUNT must be positive, got %d", cfg.SensorCount)
	}
	if cfg.NoiseLevel < 0 || cfg.NoiseLevel > 1 {
		return nil, fmt.Errorf("NOISE_LEVEL must be in [0,1], got %v", cfg.NoiseLevel)
	}
	if cfg.AnomalyProbability < 0 || cfg.AnomalyProbability > 1 {
		return nil, fmt.Errorf("ANOMALY_PROBABILITY must be in [0,1], got %v", cfg.AnomalyProbability)
	}
	if cfg.BroadcastInterval <= 0 {
		return nil, fmt.Errorf("BROADCAST_INTERVAL_MS must be positive")
	}
	if cfg.MaxClients <= 0 {
		return nil, fmt.Errorf("MAX_CLIENTS must be positive, got %d", cfg.MaxClients)
	}

	// Influx settings must be set together
	if cfg.InfluxURL != "" || cfg.InfluxToken != "" {
		if cfg.InfluxURL == "" {
			return nil, fmt.Errorf("INFLUXDB_URL is required when INFLUXDB_TOKEN is set")
		}
		if cfg.InfluxToken == "" {
			return nil, fmt.Errorf("INFLUXDB_TOKEN is required when INFLUXDB_URL is set")
		}
		if cfg.InfluxOrg == "" {
			return nil, fmt.Errorf("INFLUXDB_ORG is required when INFLUXDB_URL is set")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return parsed, nil
}
