package logging

import (
	"io"
	"sync"
)

// AsyncWriter is a bounded-queue, background-flush io.Writer. Spec treats
// the asynchronous logger as an external collaborator: only its write and
// flush contract matters, not its internals. Modeled on the bounded
// producer/consumer deque in the reference implementation's log subsystem
// (one flush goroutine draining a channel of pre-formatted lines), adapted
// to this package's Logger idiom rather than translated line-by-line.
type AsyncWriter struct {
	out     io.Writer
	lines   chan entry
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// entry is either a line to write (reply == nil) or a flush sentinel: the
// flush goroutine reads it off the queue in order and closes reply,
// signaling that every line enqueued before it has been written.
type entry struct {
	line  []byte
	reply chan struct{}
}

// NewAsyncWriter starts a background flush goroutine writing to out.
// capacity bounds the number of queued, not-yet-flushed lines; a producer
// blocks once the queue is full, mirroring BlockDeque's push_back wait.
func NewAsyncWriter(out io.Writer, capacity int) *AsyncWriter {
	if capacity <= 0 {
		capacity = 1000
	}
	w := &AsyncWriter{
		out:   out,
		lines: make(chan entry, capacity),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for e := range w.lines {
		if e.reply != nil {
			close(e.reply)
			continue
		}
		w.out.Write(e.line)
	}
}

// Write enqueues a copy of p and returns immediately; the background
// goroutine performs the actual write. Blocks if the queue is full.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)

	w.closeMu.Lock()
	closed := w.closed
	w.closeMu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}

	w.lines <- entry{line: cp}
	return len(p), nil
}

// Flush blocks until every line enqueued before the call has been written.
func (w *AsyncWriter) Flush() {
	reply := make(chan struct{})
	w.lines <- entry{reply: reply}
	<-reply
}

// Close drains the remaining queued lines and stops the flush goroutine.
// Idempotent.
func (w *AsyncWriter) Close() error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return nil
	}
	w.closed = true
	w.closeMu.Unlock()

	close(w.lines)
	<-w.done
	return nil
}
