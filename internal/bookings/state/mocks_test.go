package state

import (
	"context"
	"sync"
	"time"

	"classflow/internal/bookings/remote"
	"classflow/pkg/model"
)

type fakeCache struct {
	mu        sync.Mutex
	bookings  []model.Booking
	groupCode string
	loadErr   error
	saves     int
}

func (c *fakeCache) LoadBookings(ctx context.Context) ([]model.Booking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return model.CloneBookings(c.bookings), nil
}

func (c *fakeCache) SaveBookings(ctx context.Context, bookings []model.Booking) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookings = model.CloneBookings(bookings)
	c.saves++
	return nil
}

func (c *fakeCache) LoadGroupCode(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupCode, nil
}

func (c *fakeCache) SaveGroupCode(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupCode = code
	return nil
}

type pushCall struct {
	code     string
	bookings []model.Booking
}

type fakeSubscription struct {
	code       string
	onSnapshot remote.SnapshotFunc
	onError    remote.ErrorFunc
	closed     bool
}

func (s *fakeSubscription) Close() error {
	s.closed = true
	return nil
}

// fakeRemote records pushes and hands out subscriptions whose callbacks the
// test fires by hand.
type fakeRemote struct {
	mu           sync.Mutex
	pushes       []pushCall
	pushErr      error
	subscribeErr error
	subs         []*fakeSubscription

	// when gate is set, Push announces itself on entered and blocks until
	// gate is closed
	gate    chan struct{}
	entered chan struct{}
}

func (r *fakeRemote) Push(ctx context.Context, code string, bookings []model.Booking) error {
	if r.gate != nil {
		r.entered <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushes = append(r.pushes, pushCall{code: code, bookings: model.CloneBookings(bookings)})
	return nil
}

func (r *fakeRemote) Subscribe(ctx context.Context, code string, onSnapshot remote.SnapshotFunc, onError remote.ErrorFunc) (remote.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribeErr != nil {
		return nil, r.subscribeErr
	}
	sub := &fakeSubscription{code: code, onSnapshot: onSnapshot, onError: onError}
	r.subs = append(r.subs, sub)
	return sub, nil
}

func (r *fakeRemote) pushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *fakeRemote) lastSub() *fakeSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) == 0 {
		return nil
	}
	return r.subs[len(r.subs)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
