package config

const (
	EnvConfigFile = "CLASSFLOW_CONFIG"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvGroupsCollection  = "GROUPS_COLLECTION"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvCachePath        = "CACHE_PATH"
	EnvDefaultGroupCode = "DEFAULT_GROUP_CODE"
	EnvSyncFeed         = "SYNC_FEED"
	EnvSnapshotTopic    = "KAFKA_SNAPSHOT_TOPIC"
	EnvSyncPulse        = "SYNC_PULSE"
	EnvClearConfirmTTL  = "CLEAR_CONFIRM_TTL"
	EnvCampusTimezone   = "CAMPUS_TIMEZONE"

	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiModel    = "GEMINI_MODEL"
	EnvGeminiBaseURL  = "GEMINI_BASE_URL"
	EnvSummaryTimeout = "SUMMARY_TIMEOUT"
)
