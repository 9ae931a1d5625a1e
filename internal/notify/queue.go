package notify

import "sync"

// Queue buffers messages published from any goroutine until the host loop drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Message
	limit   int
}

// NewQueue returns a queue that keeps at most limit undisplayed messages (0 = unbounded).
// When full the oldest message is dropped.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

// Push is a Handler suitable for Hub.Subscribe.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.pending) >= q.limit {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, m)
}

// Drain returns and clears all pending messages in publish order.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
