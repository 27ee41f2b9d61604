package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"classflow/pkg/client"
	"classflow/pkg/logger"
	"classflow/pkg/sanitizer"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	GroupsCollection  string

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CachePath        string
	DefaultGroupCode string
	SyncFeed         string
	SnapshotTopic    string
	SyncPulse        time.Duration
	ClearConfirmTTL  time.Duration
	CampusTimezone   string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	SummaryTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load builds the configuration from the optional YAML file named by
// CLASSFLOW_CONFIG, then the environment, then defaults. Invalid
// configuration is fatal.
func Load(serviceName string) *Config {
	file, fileErr := LoadFile(os.Getenv(EnvConfigFile))
	if fileErr != nil {
		file = &File{}
	}

	cfg := FromSources(file, os.Getenv)
	cfg.Log = logger.New(logger.Config{
		Level:     getStr(os.Getenv, EnvLogLevel, file.LogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if fileErr != nil {
		cfg.Log.Fatal("Failed to load config file", "error", fileErr)
	}
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromSources resolves every setting with precedence env > file > default.
// It does not validate and leaves Log and Client unset.
func FromSources(file *File, getenv func(string) string) *Config {
	if file == nil {
		file = &File{}
	}
	return &Config{
		MongoURI:          getStr(getenv, EnvMongoURI, file.Mongo.URI, DefaultMongoURI),
		MongoDatabaseName: getStr(getenv, EnvMongoDatabaseName, file.Mongo.Database, DefaultMongoDatabaseName),
		MongoConnTimeout:  getDuration(getenv, EnvMongoConnTimeout, file.Mongo.ConnTimeout, DefaultMongoConnTimeout),
		GroupsCollection:  getStr(getenv, EnvGroupsCollection, file.Mongo.Collection, DefaultGroupsCollection),

		Port: getStr(getenv, EnvPort, file.Server.Port, DefaultPort),

		RequestTimeout: getDuration(getenv, EnvRequestTimeout, file.Server.RequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getDuration(getenv, EnvIdempotencyTTL, file.Server.IdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getNum(getenv, EnvMaxRequestSize, file.Server.MaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getDuration(getenv, EnvReadTimeout, file.Server.ReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getDuration(getenv, EnvWriteTimeout, file.Server.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getDuration(getenv, EnvIdleTimeout, file.Server.IdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getDuration(getenv, EnvShutdownTimeout, file.Server.ShutdownTimeout, DefaultShutdownTimeout),

		CachePath:        getStr(getenv, EnvCachePath, file.Sync.CachePath, DefaultCachePath),
		DefaultGroupCode: strings.ToUpper(getStr(getenv, EnvDefaultGroupCode, file.Sync.DefaultGroupCode, DefaultGroupCode)),
		SyncFeed:         strings.ToLower(getStr(getenv, EnvSyncFeed, file.Sync.Feed, DefaultSyncFeed)),
		SnapshotTopic:    getStr(getenv, EnvSnapshotTopic, file.Sync.SnapshotTopic, DefaultSnapshotTopic),
		SyncPulse:        getDuration(getenv, EnvSyncPulse, file.Sync.Pulse, DefaultSyncPulse),
		ClearConfirmTTL:  getDuration(getenv, EnvClearConfirmTTL, file.Sync.ClearConfirmTTL, DefaultClearConfirmTTL),
		CampusTimezone:   getStr(getenv, EnvCampusTimezone, file.Sync.CampusTimezone, DefaultCampusTimezone),

		GeminiAPIKey:   getStr(getenv, EnvGeminiAPIKey, file.Summary.APIKey, ""),
		GeminiModel:    getStr(getenv, EnvGeminiModel, file.Summary.Model, DefaultGeminiModel),
		GeminiBaseURL:  getStr(getenv, EnvGeminiBaseURL, file.Summary.BaseURL, DefaultGeminiBaseURL),
		SummaryTimeout: getDuration(getenv, EnvSummaryTimeout, file.Summary.Timeout, DefaultSummaryTimeout),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.GroupsCollection == "" {
		errors = append(errors, "GroupsCollection cannot be empty")
	}

	if cfg.DefaultGroupCode != "" && !sanitizer.ValidGroupCode(cfg.DefaultGroupCode) {
		errors = append(errors, fmt.Sprintf("DefaultGroupCode must be 1-32 of A-Z, 0-9, '-' or '_', got: %s", cfg.DefaultGroupCode))
	}
	if cfg.CachePath == "" {
		errors = append(errors, "CachePath cannot be empty")
	}
	if cfg.SyncFeed != SyncFeedMongo && cfg.SyncFeed != SyncFeedKafka {
		errors = append(errors, fmt.Sprintf("SyncFeed must be one of [%s, %s], got: %s", SyncFeedMongo, SyncFeedKafka, cfg.SyncFeed))
	}
	if cfg.SyncFeed == SyncFeedKafka && cfg.SnapshotTopic == "" {
		errors = append(errors, "SnapshotTopic cannot be empty when SyncFeed is kafka")
	}
	if _, err := time.LoadLocation(cfg.CampusTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("CampusTimezone must be an IANA zone, got: %s", cfg.CampusTimezone))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"SyncPulse", cfg.SyncPulse},
		{"ClearConfirmTTL", cfg.ClearConfirmTTL},
		{"SummaryTimeout", cfg.SummaryTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"groups_collection", cfg.GroupsCollection,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"cache_path", cfg.CachePath,
		"default_group_code", cfg.DefaultGroupCode,
		"sync_feed", cfg.SyncFeed,
		"snapshot_topic", cfg.SnapshotTopic,
		"sync_pulse", cfg.SyncPulse,
		"clear_confirm_ttl", cfg.ClearConfirmTTL,
		"campus_timezone", cfg.CampusTimezone,
		"gemini_key_set", cfg.GeminiAPIKey != "",
		"gemini_model", cfg.GeminiModel,
		"summary_timeout", cfg.SummaryTimeout,
	)
}

// Location returns the campus timezone. Validate has already rejected
// unknown zones, so UTC is only a fallback for unvalidated configs.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.CampusTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getStr(getenv func(string) string, key, fileValue, fallback string) string {
	if value := getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

func getNum(getenv func(string) string, key, fileValue string, fallback int) int {
	for _, value := range []string{getenv(key), fileValue} {
		if value == "" {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(getenv func(string) string, key, fileValue string, fallback time.Duration) time.Duration {
	for _, value := range []string{getenv(key), fileValue} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
