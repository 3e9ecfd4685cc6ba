package queue

import (
	"sync"

	"github.com/gammazero/deque"
	"go.uber.org/atomic"
)

type (
	// Queue implements variable size FIFO queue. Unlike channels, never jams.
	// Consumer takes up to maxBatch elements at once, in FIFO order
	Queue[T any] struct {
		d                       *deque.Deque[T] // variable size deque
		mutex                   sync.Mutex
		cond                    *sync.Cond
		consume                 func(batch []T)
		maxBatch                int
		closing                 bool
		processRemainingOnClose bool
		len                     atomic.Int32
		stopped                 chan struct{}
	}
)

const defaultMaxBatch = 1

func New[T any](consume func(batch []T), maxBatch ...int) *Queue[T] {
	mb := defaultMaxBatch
	if len(maxBatch) > 0 && maxBatch[0] > 0 {
		mb = maxBatch[0]
	}
	ret := &Queue[T]{
		d:        new(deque.Deque[T]),
		consume:  consume,
		maxBatch: mb,
		stopped:  make(chan struct{}),
	}
	ret.cond = sync.NewCond(&ret.mutex)
	go ret.consumeLoop()
	return ret
}

// Close queue must be closed in order to stop the consumer goroutine.
// With processRemaining = false, elements still in the buffer are discarded
func (q *Queue[T]) Close(processRemaining bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if !q.closing {
		q.closing = true
		q.processRemainingOnClose = processRemaining
		q.cond.Broadcast()
	}
}

// WaitStopped blocks until the consumer goroutine exits after Close
func (q *Queue[T]) WaitStopped() {
	<-q.stopped
}

// Push places element into the queue optionally with priority.
// Returns false if queue is closing and element was not accepted
func (q *Queue[T]) Push(e T, priority ...bool) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closing {
		return false
	}
	if len(priority) > 0 && priority[0] {
		q.d.PushFront(e)
	} else {
		q.d.PushBack(e)
	}
	q.len.Store(int32(q.d.Len()))
	q.cond.Signal()
	return true
}

func (q *Queue[T]) Len() int {
	return int(q.len.Load())
}

func (q *Queue[T]) consumeLoop() {
	defer close(q.stopped)

	for {
		batch, ok := q.nextBatch()
		if !ok {
			return
		}
		q.consume(batch)
	}
}

func (q *Queue[T]) nextBatch() ([]T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.d.Len() == 0 && !q.closing {
		q.cond.Wait()
	}
	if q.closing && (!q.processRemainingOnClose || q.d.Len() == 0) {
		return nil, false
	}
	n := q.d.Len()
	if n > q.maxBatch {
		n = q.maxBatch
	}
	ret := make([]T, n)
	for i := range ret {
		ret[i] = q.d.PopFront()
	}
	q.len.Store(int32(q.d.Len()))
	return ret, true
}
