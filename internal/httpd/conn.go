package httpd

import (
	"syscall"

	"github.com/behrlich/webd/internal/bytebuf"
)

// AuthVerifier checks or creates a user's credentials; internal/authsvc
// implements this against the DB pool. Defined here, at the point of use,
// so httpd doesn't need to import the DB layer.
type AuthVerifier interface {
	Verify(username, password string, isLogin bool) bool
}

// Conn is one accepted HTTP/1.1 connection: its read/write buffers, the
// in-progress request, and the response being assembled for it. It mirrors
// the reference server's HttpConn, but read/write no longer loop directly
// on the fd themselves -- the reactor drives ReadOnce/WriteOnce from its
// own readiness loop and owns the edge-triggered retry.
type Conn struct {
	FD         int
	IP         string
	Port       int
	StaticRoot string

	closed bool

	readBuf  *bytebuf.Buffer
	writeBuf *bytebuf.Buffer

	request  *Request
	response Response

	iovHeader []byte
	iovFile   []byte
}

// NewConn wraps fd as a connection, ready to read.
func NewConn(fd int, ip string, port int, staticRoot string) *Conn {
	return &Conn{
		FD:         fd,
		IP:         ip,
		Port:       port,
		StaticRoot: staticRoot,
		readBuf:    bytebuf.New(1024),
		writeBuf:   bytebuf.New(1024),
		request:    New(),
	}
}

// ReadOnce performs one scatter-read off the fd into the read buffer.
func (c *Conn) ReadOnce() (int, error) {
	return c.readBuf.ReadFd(c.FD)
}

// Process parses whatever is in the read buffer and, once a full request
// has arrived, builds the response into the write buffer. auth is
// consulted when the request targets the login/register routes; it may be
// nil if the server has no DB backing (auth requests then always fail).
// Returns false if the read buffer held no data to parse.
func (c *Conn) Process(auth AuthVerifier) bool {
	c.request = New()
	if c.readBuf.ReadableBytes() <= 0 {
		return false
	}

	ok := c.request.Parse(c.readBuf)
	if ok && c.request.Done() {
		c.runAuth(auth)
		c.response.Init(c.StaticRoot, c.request.Path, c.request.IsKeepAlive(), 200)
	} else if !ok {
		c.response.Init(c.StaticRoot, c.request.Path, false, 400)
	} else {
		return false // request incomplete; wait for more bytes
	}

	c.response.MakeResponse(c.writeBuf)

	c.iovHeader = c.writeBuf.Peek()
	c.iovFile = nil
	if c.response.FileLen() > 0 && c.response.File() != nil {
		c.iovFile = c.response.File()
	}
	return true
}

func (c *Conn) runAuth(auth AuthVerifier) {
	username, password, isLogin, wantsAuth := c.request.AuthAction()
	if !wantsAuth {
		return
	}
	ok := auth != nil && auth.Verify(username, password, isLogin)
	if ok {
		c.request.Path = "/welcome.html"
	} else {
		c.request.Path = "/error.html"
	}
}

// IsKeepAlive reports whether the in-flight request asked to keep the
// connection open.
func (c *Conn) IsKeepAlive() bool { return c.request.IsKeepAlive() }

// PendingWriteBytes reports how many response bytes remain to be written,
// matching HttpConn::toWriteBytes's role in deciding whether an
// edge-triggered write loop should keep draining.
func (c *Conn) PendingWriteBytes() int {
	return len(c.iovHeader) + len(c.iovFile)
}

// WriteOnce vectors the pending header bytes and mapped file bytes onto
// the fd in a single writev, advancing both regions by however much was
// actually written.
func (c *Conn) WriteOnce() (int, error) {
	if len(c.iovHeader) == 0 && len(c.iovFile) == 0 {
		return 0, nil
	}

	iovs := make([][]byte, 0, 2)
	if len(c.iovHeader) > 0 {
		iovs = append(iovs, c.iovHeader)
	}
	if len(c.iovFile) > 0 {
		iovs = append(iovs, c.iovFile)
	}

	n, err := writev(c.FD, iovs)
	if n > 0 {
		c.advanceWritten(n)
	}
	return n, err
}

func (c *Conn) advanceWritten(n int) {
	if n >= len(c.iovHeader) {
		n -= len(c.iovHeader)
		if len(c.iovHeader) > 0 {
			c.writeBuf.RetrieveAll()
			c.iovHeader = nil
		}
		if n > 0 && len(c.iovFile) > 0 {
			c.iovFile = c.iovFile[n:]
		}
		return
	}
	c.writeBuf.Retrieve(n)
	c.iovHeader = c.iovHeader[n:]
}

// ResponseDone reports whether every pending response byte has been
// written.
func (c *Conn) ResponseDone() bool { return c.PendingWriteBytes() == 0 }

// Close releases the connection's mapped file (if any) and the fd itself.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.response.UnmapFile()
	return syscall.Close(c.FD)
}
