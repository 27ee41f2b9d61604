package main

import (
	"context"
	"os"

	"classflow/internal/bookings/cache"
	"classflow/internal/bookings/confirm"
	"classflow/internal/bookings/handler"
	"classflow/internal/bookings/remote"
	"classflow/internal/bookings/repository"
	"classflow/internal/bookings/service"
	"classflow/internal/bookings/state"
	"classflow/internal/bookings/summary"
	"classflow/internal/bookings/validator"
	"classflow/pkg/app"
	"classflow/pkg/config"
	"classflow/pkg/kafka"
	kafka_config "classflow/pkg/kafka/config"
	kafka_middleware "classflow/pkg/kafka/middleware"
)

const ServiceName = "classflow"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting ClassFlow service")
	serverApp := app.NewApplication()

	groupRepo := repository.NewMongoGroupRepository(cfg)
	remoteStore := initRemote(cfg, groupRepo, serverApp)

	localCache, err := cache.Open(cfg.CachePath, cfg.DefaultGroupCode, cfg.Log.Component("cache"))
	if err != nil {
		cfg.Log.Fatal("Failed to open local cache", "path", cfg.CachePath, "error", err)
	}

	bookingValidator := validator.NewBookingValidator(cfg.Log)
	appState := state.New(context.Background(), state.Options{
		Cache:     localCache,
		Remote:    remoteStore,
		Validator: bookingValidator,
		Log:       cfg.Log.Component("state"),
		SyncPulse: cfg.SyncPulse,
	})
	appState.Start(context.Background())

	confirms := confirm.NewStore(cfg.ClearConfirmTTL)
	summarizer := summary.New(summary.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.SummaryTimeout,
	}, cfg.Log.Component("summary"))

	bookingService := service.NewBookingService(appState, bookingValidator, confirms, summarizer, cfg)
	cfg.Log.Info("Booking service initialized",
		"database", cfg.MongoDatabaseName,
		"sync_feed", cfg.SyncFeed,
	)

	serverApp.SetApp(cfg,
		handler.NewHealthHandler(groupRepo, cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
	)
	serverApp.OnShutdown(func(ctx context.Context) {
		appState.Stop()
		confirms.Stop()
		if err := localCache.Close(); err != nil {
			cfg.Log.Warn("Failed to close local cache", "error", err)
		}
		cfg.GracefulShutdown()
	})
	serverApp.Run()
}

// initRemote picks the snapshot feed. Both feeds store the document in
// MongoDB; the Kafka feed additionally fans every write out on a topic.
func initRemote(cfg *config.Config, groupRepo repository.GroupRepository, serverApp *app.Application) remote.Store {
	if cfg.SyncFeed != config.SyncFeedKafka {
		return remote.NewMongoStore(groupRepo, cfg.Log.Component("remote"))
	}

	kafkaCfg, err := kafka_config.Load(os.Getenv)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.SnapshotTopic, cfg.Log.Component("kafka"))
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(func(ctx context.Context) {
		if err := producer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka producer", "error", err)
		}
	})

	return remote.NewKafkaStore(
		groupRepo,
		producer,
		remote.NewKafkaConsumerFactory(kafkaCfg, cfg.SnapshotTopic, cfg.Log.Component("kafka")),
		ServiceName,
		cfg.Log.Component("remote"),
	)
}
