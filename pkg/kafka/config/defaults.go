package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all in-sync replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerMinBytes     = 1
	DefaultConsumerMaxBytes     = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait      = 500 * time.Millisecond
	DefaultConsumerErrorBackoff = 1 * time.Second

	DefaultEnableMiddleware = true
)
