package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/consumer"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/database"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	httpapi "github.com/MahmutEsadErman/HealthCareWristlet/internal/http"
	applogger "github.com/MahmutEsadErman/HealthCareWristlet/internal/logger"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/metrics"
	mqttc "github.com/MahmutEsadErman/HealthCareWristlet/internal/mqtt"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/notify"
	rediscommon "github.com/MahmutEsadErman/HealthCareWristlet/internal/redis"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 1. config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. logger
	logger, err := applogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-wristlet")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. store
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	// 4. post-commit notifiers
	notifiers := []notify.AlertNotifier{notify.NewMetricsNotifier()}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = rediscommon.Connect(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rediscommon.Close(redisClient)
		notifiers = append(notifiers, consumer.NewAlertCache(redisClient, cfg.Alert.CacheKeyPrefix, cfg.Alert.CacheTTL, logger))
	}

	if cfg.Notify.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, cfg.Notify.RetryCount, logger)
		if err != nil {
			logger.Fatal("Failed to create webhook notifier", zap.Error(err))
		}
		notifiers = append(notifiers, webhook)
	}
	notifier := notify.NewMulti(logger, notifiers...)

	// 5. engine and services
	engine := service.NewEngine(
		store,
		evaluator.NewEvaluator(cfg.Alert.MotionThreshold, logger),
		evaluator.NewDedupPolicy(cfg.Alert.Cooldown),
		logger,
		service.WithNotifier(notifier),
	)
	alerts := service.NewAlertService(store, notifier, logger)
	patients := service.NewPatientService(store, logger)

	// 6. HTTP
	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterWearableRoutes(httpapi.NewWearableHandler(engine, logger))
	router.RegisterUserRoutes(httpapi.NewUserHandler(patients, logger))
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(alerts, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// 7. MQTT ingestion
	if cfg.MQTT.Enabled {
		client, err := mqttc.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer client.Disconnect()

		mqttConsumer := consumer.NewMQTTConsumer(client, engine, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, logger)
		if err := mqttConsumer.Start(ctx); err != nil {
			logger.Fatal("Failed to start MQTT consumer", zap.Error(err))
		}
		defer mqttConsumer.Stop()
	}

	// 8. Redis Streams ingestion
	if cfg.Ingest.StreamEnabled {
		streamConsumer := consumer.NewStreamConsumer(cfg.Ingest, redisClient, engine, logger)
		go func() {
			if err := streamConsumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// 9. wait for a signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Wristlet service stopped")
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(cfg.Database.GetDSN(), "up"); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("Using postgres store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		return repository.NewPostgresStore(db, logger), nil
	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
}
