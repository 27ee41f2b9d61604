package state

import "sync"

// pushQueue hands out tickets in mutation order and lets one push run at a
// time, in ticket order. Tickets are taken under AppState.mu; waiting for a
// turn happens without it.
type pushQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

func newPushQueue() *pushQueue {
	q := &pushQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *pushQueue) ticket() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.next
	q.next++
	return t
}

func (q *pushQueue) wait(t uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.serving != t {
		q.cond.Wait()
	}
}

func (q *pushQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.serving++
	q.cond.Broadcast()
}
