package session

import "sync"

// outboundQueue holds envelopes awaiting first transmission in FIFO
// order. It is unbounded unless max is set; there is no backpressure
// beyond the optional cap, a producer outrunning the transport grows
// the queue without limit.
type outboundQueue struct {
	mu    sync.Mutex
	items []*Envelope
	max   int
}

func newOutboundQueue(max int) *outboundQueue {
	return &outboundQueue{max: max}
}

func (q *outboundQueue) push(env *Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.max > 0 && len(q.items) >= q.max {
		return ErrQueueFull
	}
	q.items = append(q.items, env)
	return nil
}

func (q *outboundQueue) pop() (*Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	env := q.items[0]
	q.items = q.items[1:]
	return env, true
}

// requeue appends env regardless of the cap; retries of an envelope
// already admitted once are never dropped.
func (q *outboundQueue) requeue(env *Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, env)
}

// removeTag drops the first queued envelope carrying tag.
func (q *outboundQueue) removeTag(tag string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, env := range q.items {
		if env.tag == tag {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *outboundQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
