// Package confirm implements the two-step confirmation for clearing a
// month: the first call issues a token, the second must present it.
package confirm

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Token struct {
	Token     string    `json:"token"`
	Month     string    `json:"month"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type pending struct {
	month     string
	expiresAt time.Time
}

// Store keeps issued tokens in memory. Each token is bound to one month and
// can be consumed once.
type Store struct {
	mu     sync.Mutex
	tokens map[string]pending
	ttl    time.Duration
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

func NewStore(ttl time.Duration) *Store {
	return newStore(ttl, time.Now, true)
}

func newStore(ttl time.Duration, now func() time.Time, sweep bool) *Store {
	s := &Store{
		tokens: make(map[string]pending),
		ttl:    ttl,
		now:    now,
		stopCh: make(chan struct{}),
	}
	if sweep {
		go s.cleanup(ttl)
	}
	return s
}

func (s *Store) Issue(month string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Token{
		Token:     uuid.NewString(),
		Month:     month,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.tokens[t.Token] = pending{month: month, expiresAt: t.ExpiresAt}
	return t
}

// Consume reports whether token was issued for month and has not expired.
// A token presented for the wrong month stays valid for its own.
func (s *Store) Consume(month, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !s.now().Before(p.expiresAt) {
		delete(s.tokens, token)
		return false
	}
	if p.month != month {
		return false
	}
	delete(s.tokens, token)
	return true
}

func (s *Store) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, p := range s.tokens {
		if !now.Before(p.expiresAt) {
			delete(s.tokens, token)
		}
	}
}

func (s *Store) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}
