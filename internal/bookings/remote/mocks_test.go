package remote

import (
	"context"
	"errors"
	"sync"

	"classflow/internal/bookings/repository"
	"classflow/pkg/kafka"
	"classflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

type mockGroupRepository struct {
	mu             sync.Mutex
	snapshot       model.GroupSnapshot
	findErr        error
	replaceErr     error
	watchErr       error
	replaced       []*model.GroupDocument
	feed           *mockChangeFeed
	findSnapshotFn func(ctx context.Context, code string) (model.GroupSnapshot, error)
}

func (m *mockGroupRepository) FindSnapshot(ctx context.Context, code string) (model.GroupSnapshot, error) {
	if m.findSnapshotFn != nil {
		return m.findSnapshotFn(ctx, code)
	}
	return m.snapshot, m.findErr
}

func (m *mockGroupRepository) Replace(ctx context.Context, doc *model.GroupDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = append(m.replaced, doc)
	return nil
}

func (m *mockGroupRepository) Watch(ctx context.Context, code string) (repository.ChangeFeed, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	return m.feed, nil
}

func (m *mockGroupRepository) Ping(ctx context.Context) error { return nil }

// mockChangeFeed replays queued events, then blocks until ctx ends or a
// terminal error is injected.
type mockChangeFeed struct {
	events  chan bson.Raw
	current bson.Raw
	err     error
	closed  chan struct{}
	once    sync.Once
}

func newMockChangeFeed() *mockChangeFeed {
	return &mockChangeFeed{events: make(chan bson.Raw, 16), closed: make(chan struct{})}
}

func (f *mockChangeFeed) push(event any) {
	data, err := bson.Marshal(event)
	if err != nil {
		panic(err)
	}
	f.events <- data
}

func (f *mockChangeFeed) Next(ctx context.Context) bool {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return false
		}
		f.current = ev
		return true
	case <-ctx.Done():
		f.err = ctx.Err()
		return false
	}
}

func (f *mockChangeFeed) Decode(val any) error {
	if f.current == nil {
		return errors.New("no current event")
	}
	return bson.Unmarshal(f.current, val)
}

func (f *mockChangeFeed) Err() error { return f.err }

func (f *mockChangeFeed) Close(ctx context.Context) error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type mockPublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (p *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type mockConsumer struct {
	handler  kafka.MessageHandler
	onError  func(error)
	messages chan kafka.Message
	closed   chan struct{}
	once     sync.Once

	mu     sync.Mutex
	pinErr error
	calls  []string
}

func newMockConsumer(handler kafka.MessageHandler) *mockConsumer {
	return &mockConsumer{handler: handler, messages: make(chan kafka.Message, 16), closed: make(chan struct{})}
}

func (c *mockConsumer) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *mockConsumer) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *mockConsumer) Pin(ctx context.Context) error {
	c.record("pin")
	return c.pinErr
}

func (c *mockConsumer) Start(ctx context.Context) error {
	c.record("start")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.messages:
			_ = c.handler(ctx, msg)
		}
	}
}

func (c *mockConsumer) OnError(fn func(error)) { c.onError = fn }

func (c *mockConsumer) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type recorder struct {
	mu        sync.Mutex
	snapshots []model.GroupSnapshot
	errs      []error
	notify    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 64)}
}

func (r *recorder) onSnapshot(s model.GroupSnapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, s)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.notify <- struct{}{}
}
