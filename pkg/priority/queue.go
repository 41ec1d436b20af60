// Package priority provides the two-lane outbound queue the live client
// drains: control messages (setup, tool responses, text turns) must never sit
// behind a backlog of media chunks.
package priority

import (
	"sync"
	"sync/atomic"
)

type Stats struct {
	ControlPush int64
	MediaPush   int64
	ControlPop  int64
	MediaPop    int64
}

// Queue buffers outbound payloads in two lanes. The control lane always
// drains first. Close unblocks Pop; queued control payloads are still handed
// out after Close so a final tool response is not lost.
type Queue struct {
	control chan []byte
	media   chan []byte
	closed  chan struct{}
	once    sync.Once

	controlPush atomic.Int64
	mediaPush   atomic.Int64
	controlPop  atomic.Int64
	mediaPop    atomic.Int64
}

func New(controlCap, mediaCap int) *Queue {
	if controlCap <= 0 {
		controlCap = 64
	}
	if mediaCap <= 0 {
		mediaCap = 256
	}
	return &Queue{
		control: make(chan []byte, controlCap),
		media:   make(chan []byte, mediaCap),
		closed:  make(chan struct{}),
	}
}

// TryPushControl enqueues a control payload without blocking.
func (q *Queue) TryPushControl(p []byte) bool {
	select {
	case q.control <- p:
		q.controlPush.Add(1)
		return true
	default:
		return false
	}
}

// TryPushMedia enqueues a media payload without blocking.
func (q *Queue) TryPushMedia(p []byte) bool {
	select {
	case q.media <- p:
		q.mediaPush.Add(1)
		return true
	default:
		return false
	}
}

// Pop blocks until a payload is available or the queue is closed and fully
// drained of control payloads.
func (q *Queue) Pop() ([]byte, bool) {
	select {
	case p := <-q.control:
		q.controlPop.Add(1)
		return p, true
	default:
	}
	select {
	case p := <-q.control:
		q.controlPop.Add(1)
		return p, true
	case p := <-q.media:
		q.mediaPop.Add(1)
		return p, true
	case <-q.closed:
		select {
		case p := <-q.control:
			q.controlPop.Add(1)
			return p, true
		default:
			return nil, false
		}
	}
}

// Close marks the queue finished. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.closed) })
}

func (q *Queue) Stats() Stats {
	return Stats{
		ControlPush: q.controlPush.Load(),
		MediaPush:   q.mediaPush.Load(),
		ControlPop:  q.controlPop.Load(),
		MediaPop:    q.mediaPop.Load(),
	}
}
