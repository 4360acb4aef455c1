package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cementlab/plantpulse/internal/advisor"
	"github.com/cementlab/plantpulse/internal/archive"
	"github.com/cementlab/plantpulse/internal/broadcast"
	"github.com/cementlab/plantpulse/internal/config"
	"github.com/cementlab/plantpulse/internal/datasource"
	"github.com/cementlab/plantpulse/internal/logging"
	"github.com/cementlab/plantpulse/internal/plant"
	"github.com/cementlab/plantpulse/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("No Redis configured, snapshot archiving disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := archive.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		// The archive is optional and fire-and-forget; a missing store
		// must not prevent startup.
		slog.Warn("Failed to connect to Redis, snapshot archiving disabled", "error", err)
		return nil
	}
	return client
}

func setupLoader(cfg *config.Config) (datasource.RecordLoader, func()) {
	if cfg.InfluxURL == "" {
		return datasource.StaticLoader{}, func() {}
	}

	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	slog.Info("Recorded plant data will be loaded from InfluxDB", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	return datasource.NewInfluxLoader(client, cfg.InfluxOrg, cfg.InfluxBucket), client.Close
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "broadcast_interval", cfg.BroadcastInterval)

	redisClient := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	loader, closeLoader := setupLoader(cfg)
	defer closeLoader()

	generator := plant.NewGenerator(plant.GeneratorConfig{
		PlantCapacity:      cfg.PlantCapacity,
		SensorCount:        cfg.SensorCount,
		NoiseLevel:         cfg.NoiseLevel,
		AnomalyProbability: cfg.AnomalyProbability,
	}, clock)

	source := datasource.NewSource(generator, loader)

	var archiver broadcast.Archiver
	if redisClient != nil {
		archiver = archive.NewSnapshotStore(redisClient)
	}
	broadcaster := broadcast.NewBroadcaster(source, archiver, clock, cfg.MaxClients, cfg.BroadcastInterval)

	var textClient advisor.TextClient
	if cfg.AIServiceURL != "" {
		textClient = advisor.NewHTTPClient(cfg.AIServiceURL, cfg.AIServiceKey, cfg.AITimeout)
	} else {
		slog.Warn("No AI service configured, advisor will serve fallback responses")
		textClient = advisor.UnconfiguredClient{}
	}
	advisorSvc := advisor.NewService(textClient)

	srv := server.NewServer(cfg, source, generator, broadcaster, advisorSvc, redisClient)

	done := runGracefulShutdown(srv, broadcaster)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
