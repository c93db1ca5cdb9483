package stream

import (
	"errors"
	"io"
	"sync"
	"time"
)

// DefaultCapacity bounds the number of in-flight PCM segments per job.
const DefaultCapacity = 200

// ErrTimeout is returned by Pop when no segment arrived within the wait
// window. The stream is not necessarily over; callers decide whether to
// retry or give up.
var ErrTimeout = errors.New("stream: pop timed out")

// Channel is a bounded, ordered queue of raw PCM byte segments with a
// terminal end-of-stream marker. One producer (the synthesis worker) and
// one consumer (a stream relay) communicate only through it.
//
// The end marker is modeled as a closed done channel: Close never blocks,
// happens exactly once, and is observed by the consumer only after all
// buffered segments have been drained.
type Channel struct {
	segments chan []byte
	done     chan struct{}
	once     sync.Once
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		segments: make(chan []byte, capacity),
		done:     make(chan struct{}),
	}
}

// Push enqueues a segment, waiting up to timeout for buffer space. It
// reports false when the segment was dropped, either because the buffer
// stayed full for the whole window or because the channel has ended.
// Dropping favors liveness over stream completeness.
func (c *Channel) Push(data []byte, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case c.segments <- data:
		return true
	case <-c.done:
		return false
	case <-t.C:
		return false
	}
}

// Close delivers the end-of-stream marker. It is safe to call from any
// path (completion, error, cancellation) and from multiple goroutines;
// only the first call has effect.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}

// Closed reports whether the end marker has been delivered.
func (c *Channel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Pop dequeues the next segment, waiting up to timeout. It returns io.EOF
// once the channel is closed and all buffered segments have been consumed,
// and ErrTimeout when the wait window elapsed with the stream still open.
func (c *Channel) Pop(timeout time.Duration) ([]byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case data := <-c.segments:
		return data, nil
	case <-c.done:
		// Drain segments buffered before the close.
		select {
		case data := <-c.segments:
			return data, nil
		default:
			return nil, io.EOF
		}
	case <-t.C:
		return nil, ErrTimeout
	}
}
