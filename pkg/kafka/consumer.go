package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	kafka_config "classflow/pkg/kafka/config"
	"classflow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// partitionReader is the part of *kafka.Reader a partition loop uses.
type partitionReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer follows every partition of one topic from the offsets recorded by
// Pin and hands each message to a handler. It reads outside any consumer
// group: a subscriber wants every message produced after it pinned, and a
// group join would leave that starting point undefined until partitions are
// assigned. Fetch errors are reported to an optional error callback and
// retried after a fixed backoff.
type Consumer struct {
	topic      string
	backoff    time.Duration
	handler    MessageHandler
	onError    func(error)
	log        *logger.Logger
	middleware []ConsumerMiddleware

	partitions func(ctx context.Context) ([]int, error)
	lastOffset func(ctx context.Context, partition int) (int64, error)
	newReader  func(partition int, offset int64) partitionReader

	offsets map[int]int64
	readers []partitionReader
	started bool
	closed  bool
	mu      sync.RWMutex
	wg      sync.WaitGroup

	// handlers run one at a time across partitions
	handleMu sync.Mutex
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	c := &Consumer{
		topic:      topic,
		backoff:    cfg.ConsumerErrorBackoff,
		handler:    handler,
		log:        log,
		middleware: make([]ConsumerMiddleware, 0),
	}
	c.partitions = func(ctx context.Context) ([]int, error) {
		return readPartitions(ctx, cfg.Brokers, topic)
	}
	c.lastOffset = func(ctx context.Context, partition int) (int64, error) {
		return readLastOffset(ctx, cfg.Brokers, topic, partition)
	}
	c.newReader = func(partition int, offset int64) partitionReader {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			Partition:   partition,
			MinBytes:    cfg.ConsumerMinBytes,
			MaxBytes:    cfg.ConsumerMaxBytes,
			MaxWait:     cfg.ConsumerMaxWait,
			Logger:      kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger: errorLogger(log),
		})
		if err := reader.SetOffset(offset); err != nil {
			log.Error("Failed to set Kafka reader offset", "topic", topic, "partition", partition, "offset", offset, "error", err)
		}
		return reader
	}
	return c, nil
}

func readPartitions(ctx context.Context, brokers []string, topic string) ([]int, error) {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		partitions, err := conn.ReadPartitions(topic)
		_ = conn.Close()
		if err != nil {
			return nil, err
		}

		ids := make([]int, 0, len(partitions))
		for _, p := range partitions {
			ids = append(ids, p.ID)
		}
		sort.Ints(ids)
		return ids, nil
	}
	return nil, fmt.Errorf("no reachable broker: %w", lastErr)
}

func readLastOffset(ctx context.Context, brokers []string, topic string, partition int) (int64, error) {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialLeader(ctx, "tcp", broker, topic, partition)
		if err != nil {
			lastErr = err
			continue
		}
		offset, err := conn.ReadLastOffset()
		_ = conn.Close()
		return offset, err
	}
	return 0, fmt.Errorf("no reachable leader: %w", lastErr)
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// OnError registers a callback for fetch failures.
func (c *Consumer) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Pin records the current end offset of every partition. Start delivers
// every message produced after Pin returns.
func (c *Consumer) Pin(ctx context.Context) error {
	partitions, err := c.partitions(ctx)
	if err != nil {
		return fmt.Errorf("list partitions of %s: %w", c.topic, err)
	}
	if len(partitions) == 0 {
		return fmt.Errorf("topic %s has no partitions", c.topic)
	}

	offsets := make(map[int]int64, len(partitions))
	for _, p := range partitions {
		offset, err := c.lastOffset(ctx, p)
		if err != nil {
			return fmt.Errorf("read last offset of %s/%d: %w", c.topic, p, err)
		}
		offsets[p] = offset
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.offsets = offsets
	return nil
}

// Start consumes until ctx is cancelled or the consumer is closed. Without
// an earlier Pin it pins first. Handler errors are logged and the message is
// skipped; a snapshot that cannot be decoded will not decode on a second
// attempt either.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	pinned := c.offsets != nil
	c.mu.RUnlock()
	if !pinned {
		if err := c.Pin(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrConsumerStarted
	}
	c.started = true
	handler := c.chain()

	partitions := make([]int, 0, len(c.offsets))
	for p := range c.offsets {
		partitions = append(partitions, p)
	}
	sort.Ints(partitions)
	for _, p := range partitions {
		c.readers = append(c.readers, c.newReader(p, c.offsets[p]))
	}
	readers := c.readers
	c.wg.Add(len(readers))
	c.mu.Unlock()

	errs := make(chan error, len(readers))
	for _, reader := range readers {
		go func(reader partitionReader) {
			defer c.wg.Done()
			errs <- c.follow(ctx, reader, handler)
		}(reader)
	}

	var first error
	for range readers {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Consumer) follow(ctx context.Context, reader partitionReader, handler MessageHandler) error {
	for {
		kafkaMsg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrConsumerClosed) || errors.Is(err, errReaderClosed) {
				return ErrConsumerClosed
			}
			c.reportError(err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		msg := convertMessage(kafkaMsg)
		c.handleMu.Lock()
		err = handler(ctx, msg)
		c.handleMu.Unlock()
		if err != nil {
			c.log.Warn("Kafka message handler failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	return handler
}

func (c *Consumer) reportError(err error) {
	c.log.Error("Kafka consumer error", "topic", c.topic, "error", err)

	c.mu.RLock()
	onError := c.onError
	c.mu.RUnlock()
	if onError != nil {
		onError(err)
	}
}

func convertMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, header := range kafkaMsg.Headers {
		msg.Headers[header.Key] = string(header.Value)
	}
	return msg
}

// Close stops every partition reader. Partition loops blocked in
// FetchMessage return once their reader is closed, and Close waits for them.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	readers := c.readers
	c.mu.Unlock()

	var errs []error
	for _, reader := range readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}
