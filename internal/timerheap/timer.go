// Package timerheap implements an indexed binary min-heap timer wheel used
// to evict idle connections, the way the reference server's HeapTimer
// evicts connections that sit idle past their timeout.
package timerheap

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// Callback runs when a timer expires.
type Callback func()

type node struct {
	id      int
	expires time.Time
	cb      Callback
}

// Heap is an indexed min-heap ordered by expiry time. ref maps a timer id
// to its current heap index so Adjust/Cancel can find it in O(1) instead
// of scanning, and that index is kept correct on every swap.
type Heap struct {
	mu   sync.Mutex
	heap []*node
	ref  map[int]int
}

// New creates an empty timer heap.
func New() *Heap {
	return &Heap{ref: make(map[int]int)}
}

// Add inserts a new timer, or reschedules an existing one with the same
// id, expiring after timeout from now with cb.
func (h *Heap) Add(id int, timeout time.Duration, cb Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()

	expires := time.Now().Add(timeout)
	if i, ok := h.ref[id]; ok {
		h.heap[i].expires = expires
		h.heap[i].cb = cb
		if !h.siftdown(i, len(h.heap)) {
			h.siftup(i)
		}
		return
	}

	i := len(h.heap)
	h.ref[id] = i
	h.heap = append(h.heap, &node{id: id, expires: expires, cb: cb})
	h.siftup(i)
}

// Adjust reschedules an existing timer's expiry without changing its
// callback. It is a no-op if id is not tracked.
func (h *Heap) Adjust(id int, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i, ok := h.ref[id]
	if !ok {
		return
	}
	h.heap[i].expires = time.Now().Add(timeout)
	h.siftdown(i, len(h.heap))
}

// Cancel removes a timer without running its callback. It is a no-op if id
// is not tracked.
func (h *Heap) Cancel(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i, ok := h.ref[id]
	if !ok {
		return
	}
	h.remove(i)
}

// Len reports the number of tracked timers.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.heap)
}

// Tick runs the callback of every timer that has expired and removes it
// from the heap. Callbacks run after the lock is released, collected via a
// FIFO drain queue so a callback that re-adds a timer doesn't deadlock.
func (h *Heap) Tick() {
	expired := queue.New()

	h.mu.Lock()
	now := time.Now()
	for len(h.heap) > 0 {
		n := h.heap[0]
		if n.expires.After(now) {
			break
		}
		expired.Add(n.cb)
		h.remove(0)
	}
	h.mu.Unlock()

	for expired.Length() > 0 {
		cb := expired.Remove().(Callback)
		cb()
	}
}

// NextTick reports how long until the next timer expires, after running
// Tick to clear anything already due. Returns 0 if a timer is already due
// (shouldn't happen right after Tick) and -1 if the heap is empty.
func (h *Heap) NextTick() time.Duration {
	h.Tick()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.heap) == 0 {
		return -1
	}
	d := time.Until(h.heap[0].expires)
	if d < 0 {
		d = 0
	}
	return d
}

// remove deletes the heap element at index i, restoring the heap property.
// Caller must hold h.mu.
func (h *Heap) remove(i int) {
	n := len(h.heap) - 1
	if i < n {
		h.swap(i, n)
		if !h.siftdown(i, n) {
			h.siftup(i)
		}
	}
	delete(h.ref, h.heap[n].id)
	h.heap = h.heap[:n]
}

func (h *Heap) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.ref[h.heap[i].id] = i
	h.ref[h.heap[j].id] = j
}

func (h *Heap) siftup(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.heap[i].expires.Before(h.heap[parent].expires) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap) siftdown(index, n int) bool {
	i := index
	for {
		j := i*2 + 1
		if j >= n {
			break
		}
		if j+1 < n && h.heap[j+1].expires.Before(h.heap[j].expires) {
			j++
		}
		if !h.heap[j].expires.Before(h.heap[i].expires) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > index
}
