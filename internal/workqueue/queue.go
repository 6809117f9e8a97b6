// Package workqueue implements a lock-free bounded MPMC ring buffer used to
// hand connection-ready tasks from the reactor goroutine to the worker
// pool, the way the reference server's BoundQueue<T> hands tasks to its
// thread pool without a mutex around the hot path.
package workqueue

import (
	"sync/atomic"
)

// Task is the unit of work handed to a worker.
type Task func()

// Queue is a bounded multi-producer multi-consumer ring. Enqueue and
// Dequeue never block; WaitEnqueue/WaitDequeue retry through a
// WaitStrategy until an element is available or the queue is broken.
//
// head/tail/commit follow the reference implementation: a slot is reserved
// by CAS-advancing tail, written, then published by CAS-advancing commit so
// a concurrent dequeuer never observes a half-written slot. The ring holds
// capacity+2 slots so the full/empty conditions never collide.
type Queue struct {
	head   atomic.Uint64
	tail   atomic.Uint64
	commit atomic.Uint64

	slots    []Task
	poolSize uint64

	broken atomic.Bool
	wait   WaitStrategy
}

// New creates a bounded queue of the given capacity using strategy as its
// wait strategy for WaitEnqueue/WaitDequeue. If strategy is nil, a
// BlockWaitStrategy is used.
func New(capacity int, strategy WaitStrategy) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	if strategy == nil {
		strategy = NewBlockWaitStrategy()
	}
	q := &Queue{
		slots:    make([]Task, capacity+2),
		poolSize: uint64(capacity + 2),
		wait:     strategy,
	}
	q.tail.Store(1)
	q.commit.Store(1)
	return q
}

func (q *Queue) index(n uint64) uint64 { return n % q.poolSize }

// Size reports the approximate number of queued tasks.
func (q *Queue) Size() uint64 { return q.tail.Load() - q.head.Load() - 1 }

// Enqueue attempts to reserve a slot and publish task without blocking.
// Returns false if the queue is full.
func (q *Queue) Enqueue(task Task) bool {
	for {
		oldTail := q.tail.Load()
		newTail := oldTail + 1
		if q.index(newTail) == q.index(q.head.Load()) {
			return false
		}
		if q.tail.CompareAndSwap(oldTail, newTail) {
			q.slots[q.index(oldTail)] = task

			for {
				oldCommit := oldTail
				if q.commit.CompareAndSwap(oldCommit, newTail) {
					break
				}
			}
			q.wait.NotifyOne()
			return true
		}
	}
}

// Dequeue attempts to reserve and return the next task without blocking.
// Returns nil, false if the queue is empty.
func (q *Queue) Dequeue() (Task, bool) {
	for {
		oldHead := q.head.Load()
		newHead := oldHead + 1
		if newHead == q.commit.Load() {
			return nil, false
		}
		task := q.slots[q.index(newHead)]
		if q.head.CompareAndSwap(oldHead, newHead) {
			return task, true
		}
	}
}

// WaitEnqueue retries Enqueue, yielding to the wait strategy between
// attempts, until it succeeds or the queue is broken. EmptyWait's return
// value only tells us whether the wait observed a signal or timed out; it
// never means "give up" on its own, since the queue isn't broken until
// BreakAllWait says so.
func (q *Queue) WaitEnqueue(task Task) bool {
	for !q.broken.Load() {
		if q.Enqueue(task) {
			return true
		}
		q.wait.EmptyWait()
	}
	return false
}

// WaitDequeue retries Dequeue, yielding to the wait strategy between
// attempts, until an element is available or the queue is broken.
func (q *Queue) WaitDequeue() (Task, bool) {
	for !q.broken.Load() {
		if task, ok := q.Dequeue(); ok {
			return task, true
		}
		q.wait.EmptyWait()
	}
	return nil, false
}

// BreakAllWait releases every goroutine blocked in WaitEnqueue/WaitDequeue,
// used during shutdown.
func (q *Queue) BreakAllWait() {
	q.broken.Store(true)
	q.wait.BreakAllWait()
}
