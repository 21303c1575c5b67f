package messaging

import (
	"context"
	"sync"

	"github.com/agentbus/agentbus-go/contracts"
)

// DefaultInboxCapacity bounds each recipient's inbound queue.
const DefaultInboxCapacity = 5000

// Inbox is one recipient's bounded inbound queue. Messages dequeue high
// priority first, then normal, then low; arrival order is preserved within a
// priority. When the inbox is full, admitting a new message evicts the
// oldest low-priority message; if none exists the push fails with
// ErrQueueFull.
type Inbox struct {
	mu       sync.Mutex
	lanes    [3][]*contracts.Message // indexed by contracts.Priority
	size     int
	capacity int
	evicted  uint64
	notify   chan struct{}
}

// NewInbox creates an inbox with the given capacity. Capacities below 1
// fall back to DefaultInboxCapacity.
func NewInbox(capacity int) *Inbox {
	if capacity < 1 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push enqueues msg, evicting the oldest low-priority message if the inbox
// is full. Returns ErrQueueFull when the inbox is full and nothing is
// evictable.
func (q *Inbox) Push(msg *contracts.Message) error {
	q.mu.Lock()

	if q.size >= q.capacity {
		low := q.lanes[contracts.PriorityLow]
		if len(low) == 0 {
			q.mu.Unlock()
			return contracts.ErrQueueFull
		}
		q.lanes[contracts.PriorityLow] = low[1:]
		q.size--
		q.evicted++
	}

	p := msg.Priority
	if p < contracts.PriorityLow || p > contracts.PriorityHigh {
		p = contracts.PriorityNormal
	}
	q.lanes[p] = append(q.lanes[p], msg)
	q.size++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the next message, or nil if the inbox is empty.
func (q *Inbox) Pop() *contracts.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := contracts.PriorityHigh; p >= contracts.PriorityLow; p-- {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		msg := lane[0]
		q.lanes[p] = lane[1:]
		q.size--
		return msg
	}
	return nil
}

// Receive blocks until a message is available or ctx is cancelled.
func (q *Inbox) Receive(ctx context.Context) (*contracts.Message, error) {
	for {
		if msg := q.Pop(); msg != nil {
			return msg, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued messages.
func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Evicted returns how many low-priority messages were evicted to admit
// newer traffic.
func (q *Inbox) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
