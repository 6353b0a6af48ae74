package session

import (
	"context"
	"sync"
)

// markRequest asks the worker to fetch and cooldown-gate one subject.
type markRequest struct {
	subjectID string
	reply     chan markResult
}

// worker serializes record-store round trips on a dedicated goroutine so the
// tick loop never blocks on the store. Requests carry a buffered reply
// channel; the controller polls it on subsequent ticks. Abandoned sessions
// simply drop their reply channel, the buffered send never blocks the worker.
type worker struct {
	c        *Controller
	requests chan markRequest
	done     chan struct{}
	once     sync.Once
}

func newWorker(c *Controller, queueSize int) *worker {
	if queueSize <= 0 {
		queueSize = 8
	}
	return &worker{
		c:        c,
		requests: make(chan markRequest, queueSize),
		done:     make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.run()
}

func (w *worker) run() {
	defer close(w.done)
	for req := range w.requests {
		res := w.c.mark(context.Background(), req.subjectID)
		req.reply <- res
	}
}

// dispatch enqueues a request without blocking. Returns false when the queue
// is full, which the controller treats as a transient store stall.
func (w *worker) dispatch(req markRequest) bool {
	select {
	case w.requests <- req:
		return true
	default:
		return false
	}
}

func (w *worker) stop() {
	w.once.Do(func() {
		close(w.requests)
		<-w.done
	})
}
