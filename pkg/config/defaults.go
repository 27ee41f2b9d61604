package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "classflow"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultGroupsCollection  = "groups"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultCachePath        = "classflow-cache.db"
	DefaultGroupCode        = "LE"
	DefaultSyncFeed         = SyncFeedMongo
	DefaultSnapshotTopic    = "classflow.group-snapshots"
	DefaultSyncPulse        = 2 * time.Second
	DefaultClearConfirmTTL  = 2 * time.Minute
	DefaultCampusTimezone   = "Asia/Hong_Kong"
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultGeminiBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultSummaryTimeout   = 20 * time.Second
)

const (
	SyncFeedMongo = "mongo"
	SyncFeedKafka = "kafka"
)
