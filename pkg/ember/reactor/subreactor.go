// Package reactor implements the sub-reactor (owns a selector and a set
// of connections, dispatches readiness into the worker pool) and the
// master reactor (owns the listening socket, accepts and round-robins
// new connections across sub-reactors).
package reactor

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/yourusername/ember/pkg/ember/conn"
	"github.com/yourusername/ember/pkg/ember/selector"
	"github.com/yourusername/ember/pkg/ember/workerpool"
)

const waitTimeoutMS = 1000

// SubReactor owns a selector and the set of connections registered with
// it. The users map is the single source of truth for which fds this
// sub-reactor owns; it is locked only for lookup/insert/erase, never for
// the duration of a read/write handler (see the design notes on the
// reference's coarser lock).
type SubReactor struct {
	sel    selector.Selector
	pool   *workerpool.Pool
	router conn.Router
	active *int64
	srcDir string
	logger Logger

	mu      sync.Mutex
	users   map[int]*conn.Conn
	running bool
}

// NewSubReactor constructs a SubReactor sharing pool with its siblings.
func NewSubReactor(sel selector.Selector, pool *workerpool.Pool, srcDir string, router conn.Router, active *int64, logger Logger) *SubReactor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SubReactor{
		sel:    sel,
		pool:   pool,
		router: router,
		active: active,
		srcDir: srcDir,
		logger: logger,
		users:  make(map[int]*conn.Conn),
	}
}

// AddConn registers a newly accepted fd, under the users lock, with
// read|edge|one-shot interest.
func (s *SubReactor) AddConn(fd int, peerAddr string) {
	unix.SetNonblock(fd, true)
	c := conn.New(fd, peerAddr, s.srcDir, s.router, s.active)

	s.mu.Lock()
	s.users[fd] = c
	s.mu.Unlock()

	if err := s.sel.Register(fd, selector.Read|selector.EdgeTriggered|selector.OneShot); err != nil {
		s.logger.Errorf("subreactor: register fd %d: %v", fd, err)
		s.CloseConn(fd)
	}
}

// CloseConn deregisters and closes fd, erasing its map entry.
func (s *SubReactor) CloseConn(fd int) {
	s.mu.Lock()
	c, ok := s.users[fd]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.users, fd)
	s.mu.Unlock()

	_ = s.sel.Deregister(fd)
	_ = c.Close()
}

func (s *SubReactor) lookup(fd int) (*conn.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[fd]
	return c, ok
}

// Run executes the sub-reactor's event loop. It returns when Stop is
// called and the next selector wait times out.
func (s *SubReactor) Run() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for s.isRunning() {
		events, err := s.sel.Wait(waitTimeoutMS)
		if err != nil {
			s.logger.Errorf("subreactor: wait: %v", err)
			continue
		}
		for _, ev := range events {
			s.dispatch(ev)
		}
	}
}

func (s *SubReactor) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop flips running false; observed on the next loop iteration.
func (s *SubReactor) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *SubReactor) dispatch(ev selector.Event) {
	if _, ok := s.lookup(ev.FD); !ok {
		return
	}
	switch {
	case ev.ErrorOr && ev.Ready == 0:
		s.CloseConn(ev.FD)
	case ev.Ready&selector.Read != 0:
		fd := ev.FD
		s.pool.Submit(func() {
			if c, ok := s.lookup(fd); ok {
				s.handleRead(c)
			}
		})
	case ev.Ready&selector.Write != 0:
		fd := ev.FD
		s.pool.Submit(func() {
			if c, ok := s.lookup(fd); ok {
				s.handleWrite(c)
			}
		})
	default:
		s.CloseConn(ev.FD)
	}
}

// handleRead reads available bytes and processes the request. On a
// failed or closed read it closes and returns immediately without
// calling Process -- the fix for the reference's defect of building and
// attempting to send a response on a closed socket.
func (s *SubReactor) handleRead(c *conn.Conn) {
	n, err := c.Read()
	if n <= 0 && err != unix.EAGAIN {
		s.CloseConn(c.FD)
		return
	}

	switch c.Process() {
	case conn.ProcessDone, conn.ProcessBadRequest:
		// Either way a response is now queued in WriteBuf and must be
		// flushed; a bad request forces Conn.KeepAlive false so
		// handleWrite closes the connection once it drains.
		s.rearm(c.FD, selector.Write|selector.EdgeTriggered|selector.OneShot)
	case conn.ProcessNeedsMoreData:
		s.rearm(c.FD, selector.Read|selector.EdgeTriggered|selector.OneShot)
	}
}

func (s *SubReactor) handleWrite(c *conn.Conn) {
	_, err := c.Write()

	if c.ToWriteBytes() == 0 {
		if c.KeepAlive() {
			s.rearm(c.FD, selector.Read|selector.EdgeTriggered|selector.OneShot)
			return
		}
		s.CloseConn(c.FD)
		return
	}

	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		s.rearm(c.FD, selector.Write|selector.EdgeTriggered|selector.OneShot)
		return
	}

	s.CloseConn(c.FD)
}

func (s *SubReactor) rearm(fd int, interest selector.Interest) {
	if err := s.sel.Modify(fd, interest); err != nil {
		s.CloseConn(fd)
	}
}
