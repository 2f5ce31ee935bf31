package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/yourusername/ember/pkg/ember/conn"
	"github.com/yourusername/ember/pkg/ember/selector"
	"github.com/yourusername/ember/pkg/ember/workerpool"
)

const listenBacklog = 1024

// MasterReactor owns the listening socket, accepts new connections, and
// round-robins them across its sub-reactors.
type MasterReactor struct {
	listenFD int
	sel      selector.Selector
	subs     []*SubReactor
	logger   Logger

	nextSub int
	running bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// New binds a non-blocking, SO_REUSEADDR, backlog-1024 listener on
// host:port and builds subReactorNum sub-reactors sharing pool.
func New(host string, port int, subReactorNum int, srcDir string, router conn.Router, active *int64, pool *workerpool.Pool, logger Logger) (*MasterReactor, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("masterreactor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("masterreactor: setsockopt: %w", err)
	}

	addr, err := parseIPv4(host)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("masterreactor: bind: %w", err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("masterreactor: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("masterreactor: set nonblock: %w", err)
	}

	sel, err := selector.New()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := sel.Register(fd, selector.Read|selector.EdgeTriggered); err != nil {
		unix.Close(fd)
		return nil, err
	}

	m := &MasterReactor{listenFD: fd, sel: sel, logger: logger}
	if subReactorNum <= 0 {
		subReactorNum = 4
	}
	for i := 0; i < subReactorNum; i++ {
		subSel, err := selector.New()
		if err != nil {
			return nil, err
		}
		m.subs = append(m.subs, NewSubReactor(subSel, pool, srcDir, router, active, logger))
	}
	return m, nil
}

// parseIPv4 resolves a dotted-quad or "" (meaning INADDR_ANY) into the
// 4-byte form unix.SockaddrInet4 requires. IPv6 is explicitly out of
// scope.
func parseIPv4(host string) ([4]byte, error) {
	if host == "" {
		return [4]byte{}, nil
	}
	var a, b, c, d int
	n, err := fmt.Sscanf(host, "%d.%d.%d.%d", &a, &b, &c, &d)
	if err != nil || n != 4 {
		return [4]byte{}, fmt.Errorf("masterreactor: invalid IPv4 host %q", host)
	}
	return [4]byte{byte(a), byte(b), byte(c), byte(d)}, nil
}

// Run spawns one goroutine per sub-reactor and then loops accepting new
// connections on the listen fd until Stop is called.
func (m *MasterReactor) Run() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	for _, sub := range m.subs {
		sub := sub
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			sub.Run()
		}()
	}

	for m.isRunning() {
		events, err := m.sel.Wait(0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			m.logger.Errorf("masterreactor: wait: %v", err)
			break
		}
		for _, ev := range events {
			if ev.FD == m.listenFD && ev.Ready&selector.Read != 0 {
				m.acceptLoop()
			}
		}
	}
}

func (m *MasterReactor) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// acceptLoop drains the listen backlog with accept4 until EAGAIN,
// round-robining each new fd across the sub-reactors.
func (m *MasterReactor) acceptLoop() {
	for {
		fd, sa, err := unix.Accept4(m.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			m.logger.Errorf("masterreactor: accept: %v", err)
			return
		}
		peer := peerAddrString(sa)

		m.mu.Lock()
		idx := m.nextSub
		m.nextSub = (m.nextSub + 1) % len(m.subs)
		m.mu.Unlock()

		m.subs[idx].AddConn(fd, peer)
	}
}

func peerAddrString(sa unix.Sockaddr) string {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		a := in4.Addr
		return fmt.Sprintf("%d.%d.%d.%d:%d", a[0], a[1], a[2], a[3], in4.Port)
	}
	return ""
}

// Stop flips running false for the master loop and every sub-reactor,
// then waits for their goroutines to exit.
func (m *MasterReactor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	for _, sub := range m.subs {
		sub.Stop()
	}
	m.wg.Wait()
	m.sel.Close()
	unix.Close(m.listenFD)
}
