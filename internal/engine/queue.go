package engine

import (
	"sync"

	"github.com/go-ispider/ispider/internal/types"
)

// OutQueue is an unbounded LIFO stack of pending requests. Pushing newly
// discovered links onto a stack (rather than a FIFO) biases the crawl
// depth-first: a page's own links are explored before siblings discovered
// earlier are revisited, which in practice finishes individual domains
// faster and lets them hit FetchController's quota and fall out of rotation
// sooner. Grounded on the teacher's Frontier, replacing its container/heap
// priority queue with a plain stack plus sync.Cond blocking-pop.
type OutQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*types.Request
	closed bool
}

// NewOutQueue creates an empty OutQueue.
func NewOutQueue() *OutQueue {
	q := &OutQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a request to the top of the stack.
func (q *OutQueue) Push(req *types.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, req)
	q.cond.Signal()
}

// PushAll adds multiple requests, signaling once.
func (q *OutQueue) PushAll(reqs []*types.Request) {
	if len(reqs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, reqs...)
	q.cond.Signal()
}

// Pop blocks until a request is available or the queue is closed, in which
// case it returns nil.
func (q *OutQueue) Pop() *types.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil
	}
	last := len(q.items) - 1
	req := q.items[last]
	q.items[last] = nil
	q.items = q.items[:last]
	return req
}

// Len returns the current number of queued requests.
func (q *OutQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close unblocks any goroutine waiting in Pop; subsequent Pop calls drain
// remaining items and then return nil.
func (q *OutQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Snapshot returns every pending request without removing them.
func (q *OutQueue) Snapshot() []*types.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.Request, len(q.items))
	copy(out, q.items)
	return out
}

// InQueue is the bounded FIFO handed to the worker pool. Its fixed capacity
// (EngineConfig.QueueMaxSize) is the backpressure valve between the feeder
// and the workers: once full, Feeder.Run blocks pulling more work off the
// OutQueue, naturally throttling link discovery to the pace of fetching.
type InQueue struct {
	ch chan *types.Request
}

// NewInQueue creates an InQueue with the given capacity.
func NewInQueue(capacity int) *InQueue {
	return &InQueue{ch: make(chan *types.Request, capacity)}
}

// Send enqueues req, blocking if the queue is full. Returns false if done
// is closed first.
func (q *InQueue) Send(req *types.Request, done <-chan struct{}) bool {
	select {
	case q.ch <- req:
		return true
	case <-done:
		return false
	}
}

// Chan exposes the receive side for worker goroutines to range over.
func (q *InQueue) Chan() <-chan *types.Request {
	return q.ch
}

// Close closes the channel; workers ranging over Chan() exit once drained.
func (q *InQueue) Close() {
	close(q.ch)
}

// Len reports the number of requests currently buffered.
func (q *InQueue) Len() int {
	return len(q.ch)
}
