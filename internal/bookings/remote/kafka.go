package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classflow/internal/bookings/repository"
	"classflow/pkg/kafka"
	kafka_config "classflow/pkg/kafka/config"
	kafka_middleware "classflow/pkg/kafka/middleware"
	"classflow/pkg/logger"
	"classflow/pkg/model"
)

const (
	EventTypeGroupSnapshot = "group.snapshot"
	SnapshotSchemaVersion  = "1"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// SnapshotConsumer delivers messages produced after Pin returns once Start
// runs.
type SnapshotConsumer interface {
	Pin(ctx context.Context) error
	Start(ctx context.Context) error
	OnError(fn func(error))
	Close() error
}

// ConsumerFactory opens a consumer of the snapshot topic that hands every
// message to handler.
type ConsumerFactory func(handler kafka.MessageHandler) (SnapshotConsumer, error)

// snapshotPayload keeps a missing bookings field distinguishable from an
// empty one.
type snapshotPayload struct {
	Bookings    *[]model.Booking `json:"bookings"`
	LastUpdated string           `json:"lastUpdated"`
}

// KafkaStore persists the group document in MongoDB and fans every write
// out over a Kafka topic keyed by group code. It serves deployments where
// change streams are unavailable. A subscription pins the topic's end
// offsets, then reads the first snapshot from MongoDB, then follows the topic
// from the pinned offsets. Push stores before it publishes, so a write whose
// message lands before the pin is already visible to the MongoDB read.
type KafkaStore struct {
	repo        repository.GroupRepository
	publisher   Publisher
	newConsumer ConsumerFactory
	source      string
	log         *logger.Logger
	now         func() time.Time
}

func NewKafkaStore(repo repository.GroupRepository, publisher Publisher, newConsumer ConsumerFactory, source string, log *logger.Logger) *KafkaStore {
	return &KafkaStore{
		repo:        repo,
		publisher:   publisher,
		newConsumer: newConsumer,
		source:      source,
		log:         log,
		now:         time.Now,
	}
}

func (s *KafkaStore) Push(ctx context.Context, code string, bookings []model.Booking) error {
	doc := model.NewGroupDocument(code, bookings, s.now())
	if err := s.repo.Replace(ctx, doc); err != nil {
		return writeFailure(err)
	}

	msg, err := kafka.NewMessage().
		WithKey(code).
		WithValue(doc).
		WithEventType(EventTypeGroupSnapshot).
		WithSchemaVersion(SnapshotSchemaVersion).
		WithSource(s.source).
		Build()
	if err != nil {
		return writeFailure(err)
	}

	// The document is stored at this point; a failed publish only means
	// other clients miss this version until the next write.
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return writeFailure(err)
	}
	return nil
}

func (s *KafkaStore) Subscribe(ctx context.Context, code string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	consumer, err := s.newConsumer(func(_ context.Context, msg kafka.Message) error {
		if msg.Key != code {
			return nil
		}
		if t := msg.GetEventType(); t != "" && t != EventTypeGroupSnapshot {
			return nil
		}
		snap, err := decodePayload(code, msg)
		if err != nil {
			return kafka.NewPermanentError("undecodable group snapshot", err)
		}
		if subCtx.Err() == nil {
			onSnapshot(snap)
		}
		return nil
	})
	if err != nil {
		cancel()
		return nil, Classify(err)
	}
	consumer.OnError(func(err error) {
		if subCtx.Err() == nil {
			onError(Classify(err))
		}
	})

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer func() {
			if err := consumer.Close(); err != nil {
				s.log.Warn("Failed to close snapshot consumer", "group_code", code, "error", err)
			}
		}()

		if err := consumer.Pin(subCtx); err != nil {
			if subCtx.Err() == nil {
				onError(Classify(err))
			}
			return
		}

		initial, err := s.repo.FindSnapshot(subCtx, code)
		if err != nil {
			if subCtx.Err() == nil {
				onError(Classify(err))
			}
		} else if subCtx.Err() == nil {
			onSnapshot(initial)
		}

		if err := consumer.Start(subCtx); err != nil && subCtx.Err() == nil {
			onError(Classify(err))
		}
	}()

	s.log.Info("Subscribed to group document", "group_code", code, "feed", "kafka")
	return sub, nil
}

func decodePayload(code string, msg kafka.Message) (model.GroupSnapshot, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return model.GroupSnapshot{}, fmt.Errorf("decode snapshot for group %s: %w", code, err)
	}

	snap := model.GroupSnapshot{Code: code, Exists: true, LastUpdated: payload.LastUpdated}
	if payload.Bookings != nil {
		snap.HasBookings = true
		snap.Bookings = *payload.Bookings
		if snap.Bookings == nil {
			snap.Bookings = []model.Booking{}
		}
	}
	return snap, nil
}

// NewKafkaConsumerFactory returns a factory of partition consumers, so every
// subscriber sees every snapshot produced after it pinned.
func NewKafkaConsumerFactory(cfg *kafka_config.Config, topic string, log *logger.Logger) ConsumerFactory {
	return func(handler kafka.MessageHandler) (SnapshotConsumer, error) {
		consumer, err := kafka.NewConsumer(cfg, topic, handler, log)
		if err != nil {
			return nil, err
		}
		if cfg.EnableMiddleware {
			consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
		}
		return consumer, nil
	}
}
