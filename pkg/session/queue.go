package session

import "sync"

// Queue is an unbounded callback queue. Any goroutine may Post; only the
// session owner runs Drain. Posting never blocks, so background workers
// can hand results over while holding their own locks.
type Queue struct {
	mu     sync.Mutex
	items  []func()
	ready  chan struct{}
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post appends fn. It reports false once the queue is closed.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value whenever callbacks may be pending.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Len returns the number of pending callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain runs pending callbacks in order, including any they post, and
// returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.mu.Unlock()
			return n
		}
		batch := q.items
		q.items = nil
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Close drops pending callbacks and rejects new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
}
