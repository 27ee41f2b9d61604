package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classflow/pkg/config"
	"classflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChangeFeed is the part of *mongo.ChangeStream the sync client reads.
type ChangeFeed interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

type GroupRepository interface {
	FindSnapshot(ctx context.Context, code string) (model.GroupSnapshot, error)
	Replace(ctx context.Context, doc *model.GroupDocument) error
	Watch(ctx context.Context, code string) (ChangeFeed, error)
	Ping(ctx context.Context) error
}

type mongoGroupRepository struct {
	cfg        *config.Config
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoGroupRepository(cfg *config.Config) GroupRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoGroupRepository{
		cfg:        cfg,
		client:     cfg.Client.Mongo,
		collection: db.Collection(cfg.GroupsCollection),
	}
}

// withTimeout caps ctx at timeout without extending an earlier deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoGroupRepository) FindSnapshot(ctx context.Context, code string) (model.GroupSnapshot, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	raw, err := r.collection.FindOne(ctx, bson.M{"_id": code}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.GroupSnapshot{Code: code}, nil
		}
		return model.GroupSnapshot{}, fmt.Errorf("failed to read group %s: %w", code, err)
	}

	return DecodeSnapshot(code, raw)
}

// Replace overwrites the whole group document, creating it if needed.
// There is no version check: the last writer wins.
func (r *mongoGroupRepository) Replace(ctx context.Context, doc *model.GroupDocument) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.Code},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to replace group %s: %w", doc.Code, err)
	}
	return nil
}

// Watch opens a change stream on one group document. Update events carry the
// post-image through updateLookup.
func (r *mongoGroupRepository) Watch(ctx context.Context, code string) (ChangeFeed, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: code}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch group %s: %w", code, err)
	}
	return stream, nil
}

func (r *mongoGroupRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()
	return r.client.Ping(ctx, nil)
}

// DecodeSnapshot reads a raw group document. A bookings field that is absent
// or not an array leaves HasBookings false.
func DecodeSnapshot(code string, raw bson.Raw) (model.GroupSnapshot, error) {
	snap := model.GroupSnapshot{Code: code, Exists: true}

	if v, err := raw.LookupErr("lastUpdated"); err == nil {
		snap.LastUpdated, _ = v.StringValueOK()
	}

	v, err := raw.LookupErr("bookings")
	if err != nil || v.Type != bson.TypeArray {
		return snap, nil
	}

	var bookings []model.Booking
	if err := v.Unmarshal(&bookings); err != nil {
		return model.GroupSnapshot{}, fmt.Errorf("failed to decode bookings of group %s: %w", code, err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	snap.HasBookings = true
	snap.Bookings = bookings
	return snap, nil
}
