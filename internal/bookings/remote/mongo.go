package remote

import (
	"context"
	"fmt"
	"time"

	"classflow/internal/bookings/repository"
	"classflow/pkg/logger"
	"classflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

// MongoStore keeps the group document in MongoDB and follows it with a
// change stream. Change streams need a replica set or sharded cluster.
type MongoStore struct {
	repo repository.GroupRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewMongoStore(repo repository.GroupRepository, log *logger.Logger) *MongoStore {
	return &MongoStore{repo: repo, log: log, now: time.Now}
}

func (s *MongoStore) Push(ctx context.Context, code string, bookings []model.Booking) error {
	doc := model.NewGroupDocument(code, bookings, s.now())
	if err := s.repo.Replace(ctx, doc); err != nil {
		return writeFailure(err)
	}
	return nil
}

// Subscribe opens the change stream before reading the current document so
// that no version written in between is lost.
func (s *MongoStore) Subscribe(ctx context.Context, code string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	feed, err := s.repo.Watch(subCtx, code)
	if err != nil {
		cancel()
		return nil, Classify(err)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go s.follow(subCtx, code, feed, sub.done, onSnapshot, onError)

	s.log.Info("Subscribed to group document", "group_code", code, "feed", "mongo")
	return sub, nil
}

func (s *MongoStore) follow(ctx context.Context, code string, feed repository.ChangeFeed, done chan struct{}, onSnapshot SnapshotFunc, onError ErrorFunc) {
	defer close(done)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = feed.Close(closeCtx)
	}()

	initial, err := s.repo.FindSnapshot(ctx, code)
	if err != nil {
		if ctx.Err() == nil {
			onError(Classify(err))
		}
	} else {
		onSnapshot(initial)
	}

	for feed.Next(ctx) {
		snap, ok, err := s.decodeEvent(code, feed)
		if err != nil {
			s.log.Warn("Skipping undecodable change event", "group_code", code, "error", err)
			continue
		}
		if ok {
			onSnapshot(snap)
		}
	}

	if err := feed.Err(); err != nil && ctx.Err() == nil {
		onError(Classify(err))
		return
	}
	if ctx.Err() == nil {
		// server closed the stream, e.g. after the collection was dropped
		onError(Classify(fmt.Errorf("change stream for group %s closed", code)))
	}
}

func (s *MongoStore) decodeEvent(code string, feed repository.ChangeFeed) (model.GroupSnapshot, bool, error) {
	var event changeEvent
	if err := feed.Decode(&event); err != nil {
		return model.GroupSnapshot{}, false, err
	}

	switch event.OperationType {
	case "insert", "replace", "update":
		if len(event.FullDocument) == 0 {
			// updateLookup found the document already gone
			return model.GroupSnapshot{Code: code}, true, nil
		}
		snap, err := repository.DecodeSnapshot(code, event.FullDocument)
		return snap, err == nil, err
	case "delete":
		return model.GroupSnapshot{Code: code}, true, nil
	default:
		return model.GroupSnapshot{}, false, nil
	}
}
