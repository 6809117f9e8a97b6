// Package bytebuf implements a growable connection buffer with a
// scatter-read fast path, the way the reference server's Buffer class reads
// directly off a socket without knowing the pending size ahead of time.
package bytebuf

import (
	"bytes"
	"fmt"
	"sync"
	"syscall"

	"github.com/behrlich/webd/internal/constants"
)

// scratchPool holds the stack-equivalent overflow buffers used by ReadFd's
// second iovec, avoiding a fresh allocation on every readable event.
var scratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, constants.ScatterReadOverflow)
		return &b
	},
}

// Buffer is a growable byte buffer split into prependable, readable, and
// writable regions. Bytes already consumed (Retrieve) are not compacted
// away until growth actually needs the space back.
type Buffer struct {
	buf      []byte
	readPos  int
	writePos int
}

// New creates a Buffer with the given initial capacity.
func New(initSize int) *Buffer {
	if initSize <= 0 {
		initSize = 1024
	}
	return &Buffer{buf: make([]byte, initSize)}
}

// ReadableBytes returns the number of bytes available to read.
func (b *Buffer) ReadableBytes() int { return b.writePos - b.readPos }

// WritableBytes returns the number of bytes available to write without growing.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.writePos }

// PrependableBytes returns the number of bytes already retrieved, reusable
// by a future compaction.
func (b *Buffer) PrependableBytes() int { return b.readPos }

// Peek returns the unread region without consuming it.
func (b *Buffer) Peek() []byte { return b.buf[b.readPos:b.writePos] }

// Retrieve consumes n bytes from the front of the readable region.
func (b *Buffer) Retrieve(n int) {
	if n > b.ReadableBytes() {
		panic(fmt.Sprintf("bytebuf: Retrieve(%d) exceeds readable bytes %d", n, b.ReadableBytes()))
	}
	b.readPos += n
}

// RetrieveAll resets the buffer to empty, zeroing its backing array.
func (b *Buffer) RetrieveAll() {
	for i := range b.buf {
		b.buf[i] = 0
	}
	b.readPos = 0
	b.writePos = 0
}

// RetrieveAllToString drains the buffer and returns its contents as a string.
func (b *Buffer) RetrieveAllToString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// BeginWrite returns the writable tail of the buffer.
func (b *Buffer) BeginWrite() []byte { return b.buf[b.writePos:] }

// HasWritten advances the write cursor after an out-of-band write into the
// slice returned by BeginWrite.
func (b *Buffer) HasWritten(n int) { b.writePos += n }

// EnsureWritable grows or compacts the buffer so at least n bytes are
// writable without reallocating mid-write.
func (b *Buffer) EnsureWritable(n int) {
	if b.WritableBytes() < n {
		b.makeRoom(n)
	}
}

// Append copies p into the buffer, growing it as needed.
func (b *Buffer) Append(p []byte) {
	b.EnsureWritable(len(p))
	copy(b.BeginWrite(), p)
	b.HasWritten(len(p))
}

// AppendString is a convenience wrapper around Append.
func (b *Buffer) AppendString(s string) { b.Append([]byte(s)) }

func (b *Buffer) makeRoom(n int) {
	if b.WritableBytes()+b.PrependableBytes() < n {
		grown := make([]byte, b.writePos+n+1)
		copy(grown, b.buf)
		b.buf = grown
		return
	}
	readable := b.ReadableBytes()
	copy(b.buf, b.buf[b.readPos:b.writePos])
	b.readPos = 0
	b.writePos = readable
}

// ReadFd performs a scatter read off fd: the buffer's writable tail and a
// pooled 64KiB scratch slice are read in one readv so a single readiness
// notification can drain sockets with more pending data than the buffer
// currently has room for. Returns the number of bytes read, or an error
// wrapping the underlying errno (including EAGAIN on non-blocking sockets).
func (b *Buffer) ReadFd(fd int) (int, error) {
	writable := b.WritableBytes()
	scratch := scratchPool.Get().(*[]byte)
	defer scratchPool.Put(scratch)

	iovs := [][]byte{b.buf[b.writePos:], *scratch}
	n, err := syscallReadv(fd, iovs)
	if err != nil {
		return n, err
	}

	if n <= writable {
		b.writePos += n
	} else {
		b.writePos = len(b.buf)
		b.Append((*scratch)[:n-writable])
	}
	return n, nil
}

// WriteFd writes the readable region to fd and advances the read cursor by
// however much was actually written.
func (b *Buffer) WriteFd(fd int) (int, error) {
	n, err := syscall.Write(fd, b.Peek())
	if n > 0 {
		b.readPos += n
	}
	if err != nil {
		return n, err
	}
	return n, nil
}

// Equal reports whether two buffers hold the same unread bytes; used in tests.
func Equal(a, b *Buffer) bool {
	return bytes.Equal(a.Peek(), b.Peek())
}
