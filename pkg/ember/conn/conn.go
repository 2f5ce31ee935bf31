// Package conn implements the per-socket HTTP connection state machine:
// read into the buffer, parse and respond, gather-write the response.
package conn

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/yourusername/ember/pkg/ember/buffer"
	"github.com/yourusername/ember/pkg/ember/httpmsg"
)

// Router decides, for a finished request, what response path and status
// code to build. It is the seam the parser is deliberately decoupled
// from: the parser never calls into the database, only a Router does.
type Router func(req *httpmsg.Request) (path string, code int)

// Conn is exclusively owned by one sub-reactor at a time. While a worker
// task is executing for this fd, no other task may touch it -- that
// invariant is enforced entirely by the selector's one-shot re-arm
// discipline, not by any lock inside Conn.
type Conn struct {
	FD       int
	PeerAddr string

	ReadBuf  *buffer.Buffer
	WriteBuf *buffer.Buffer

	request  *httpmsg.Request
	response httpmsg.Response

	fileOffset int64

	srcDir        string
	router        Router
	activeUserCnt *int64
	closed        bool
	forceClose    bool
}

// New constructs a Conn for fd. activeUserCnt is incremented once here
// and decremented once on Close, mirroring the reference's userCount.
func New(fd int, peerAddr, srcDir string, router Router, activeUserCnt *int64) *Conn {
	atomic.AddInt64(activeUserCnt, 1)
	return &Conn{
		FD:            fd,
		PeerAddr:      peerAddr,
		ReadBuf:       buffer.New(),
		WriteBuf:      buffer.New(),
		request:       httpmsg.NewRequest(),
		srcDir:        srcDir,
		router:        router,
		activeUserCnt: activeUserCnt,
	}
}

// Close is idempotent; decrements activeUserCnt the first time only.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	atomic.AddInt64(c.activeUserCnt, -1)
	c.response.UnmapFile()
	return unix.Close(c.FD)
}

// Read drains the socket into ReadBuf until a call returns <= 0 (EOF or
// EAGAIN). err carries the errno from that final call, if any.
func (c *Conn) Read() (total int, err error) {
	if c.closed {
		return 0, nil
	}
	for {
		n, e := c.ReadBuf.FillFromFD(c.FD)
		total += n
		err = e
		if n <= 0 {
			break
		}
	}
	return total, err
}

// Write performs the gather-write loop over [header, mapped file],
// advancing both regions as the kernel accepts bytes, and returns once
// either everything has been written or the socket would block.
func (c *Conn) Write() (total int, err error) {
	if c.closed {
		return 0, nil
	}
	file := c.response.File()
	for {
		headerLen := c.WriteBuf.ReadableBytes()
		fileLen := int64(len(file)) - c.fileOffset
		if fileLen < 0 {
			fileLen = 0
		}
		if headerLen == 0 && fileLen == 0 {
			return total, nil
		}

		iov := make([][]byte, 0, 2)
		iov = append(iov, c.WriteBuf.Peek())
		if fileLen > 0 {
			iov = append(iov, file[c.fileOffset:])
		}

		n, werr := unix.Writev(c.FD, iov)
		total += n
		if n <= 0 {
			err = werr
			return total, err
		}

		if int64(n) > int64(headerLen) {
			overflow := int64(n) - int64(headerLen)
			c.fileOffset += overflow
			if headerLen > 0 {
				c.WriteBuf.Reset()
			}
		} else {
			c.WriteBuf.Consume(n)
		}
	}
}

// ToWriteBytes reports how many bytes remain to be written for the
// current response.
func (c *Conn) ToWriteBytes() int {
	return c.WriteBuf.ReadableBytes() + int(int64(len(c.response.File()))-c.fileOffset)
}

// KeepAlive reports whether the connection should be kept open once the
// queued response has been fully written. A malformed request forces a
// close regardless of any Connection header, since the request line
// never got far enough to be trusted.
func (c *Conn) KeepAlive() bool {
	if c.forceClose {
		return false
	}
	return c.request.KeepAlive()
}

// ProcessResult reports what Process did with ReadBuf's current
// contents, so the caller can tell "nothing to send yet" apart from "a
// response was queued and must be flushed".
type ProcessResult int

const (
	// ProcessNeedsMoreData means ReadBuf held no complete request.
	// Nothing was queued into WriteBuf; the caller should re-arm for
	// read and wait for more bytes.
	ProcessNeedsMoreData ProcessResult = iota
	// ProcessBadRequest means the request line failed to match the
	// fixed grammar. A 400 response was queued into WriteBuf; the
	// caller must re-arm for write and close the connection once it
	// drains (KeepAlive reports false for the rest of this Conn's
	// life after this).
	ProcessBadRequest
	// ProcessDone means a complete request was parsed (and routed, if
	// it was a finished form POST) and its response was queued into
	// WriteBuf.
	ProcessDone
)

// Process parses ReadBuf, routes a finished form POST if any, and builds
// the response into WriteBuf. The request is reset once the previous one
// finished; a request left incomplete by an earlier call resumes parsing
// from where it stopped.
func (c *Conn) Process() ProcessResult {
	if c.request.State == httpmsg.StateFinish {
		c.request.Reset()
	}
	c.fileOffset = 0
	if c.ReadBuf.ReadableBytes() <= 0 {
		return ProcessNeedsMoreData
	}

	if !httpmsg.Parse(c.request, c.ReadBuf) {
		c.forceClose = true
		httpmsg.Init(&c.response, c.srcDir, c.request.Path, false, 400)
		c.response.MakeResponse(c.WriteBuf)
		return ProcessBadRequest
	}

	if c.request.State != httpmsg.StateFinish {
		// Headers or body are still incomplete; nothing was consumed
		// into a response. Wait for the rest on the next read.
		return ProcessNeedsMoreData
	}

	path := c.request.Path
	code := 200
	if c.request.IsFormPost() && c.router != nil {
		if p, cc := c.router(c.request); p != "" {
			path, code = p, cc
		}
	}

	httpmsg.Init(&c.response, c.srcDir, path, c.request.KeepAlive(), code)
	c.response.MakeResponse(c.WriteBuf)
	return ProcessDone
}
