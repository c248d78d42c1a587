package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Pop once the queue is closed and empty
var ErrQueueClosed = errors.New("frame queue closed")

// FrameQueue is a bounded, insertion-ordered, thread-safe ring of frames with a
// single producer and a single consumer. Push never blocks: when the ring is full
// the oldest frame is evicted. Pop waits on a notification channel instead of polling.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []Frame
	head    int
	count   int
	dropped int64
	closed  bool

	notify chan struct{}

	// OnDrop is called (outside the lock) for every evicted frame
	OnDrop func()
}

// NewFrameQueue creates a queue holding at most capacity frames
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{
		frames: make([]Frame, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends a frame. It returns false if the queue is closed.
// If the queue is full the oldest frame is dropped to make room.
func (q *FrameQueue) Push(frame Frame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	dropped := false
	if q.count == len(q.frames) {
		q.frames[q.head] = Frame{}
		q.head = (q.head + 1) % len(q.frames)
		q.count--
		q.dropped++
		dropped = true
	}
	q.frames[(q.head+q.count)%len(q.frames)] = frame
	q.count++
	q.mu.Unlock()

	if dropped && q.OnDrop != nil {
		q.OnDrop()
	}
	q.signal()
	return true
}

// Pop removes and returns the oldest frame, waiting until one is available,
// the queue is closed, or ctx is done.
func (q *FrameQueue) Pop(ctx context.Context) (Frame, error) {
	for {
		if frame, ok := q.TryPop(); ok {
			return frame, nil
		}

		q.mu.Lock()
		closed := q.closed && q.count == 0
		q.mu.Unlock()
		if closed {
			return Frame{}, ErrQueueClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

// TryPop removes and returns the oldest frame without waiting
func (q *FrameQueue) TryPop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Frame{}, false
	}
	frame := q.frames[q.head]
	q.frames[q.head] = Frame{}
	q.head = (q.head + 1) % len(q.frames)
	q.count--
	return frame, true
}

// Drain removes and returns all pending frames in capture order
func (q *FrameQueue) Drain() []Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Frame, 0, q.count)
	for q.count > 0 {
		out = append(out, q.frames[q.head])
		q.frames[q.head] = Frame{}
		q.head = (q.head + 1) % len(q.frames)
		q.count--
	}
	return out
}

// Len returns the number of pending frames
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity
func (q *FrameQueue) Cap() int {
	return len(q.frames)
}

// Dropped returns the number of frames evicted because the queue was full
func (q *FrameQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting frames and wakes a waiting consumer. Pending frames remain poppable.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *FrameQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
