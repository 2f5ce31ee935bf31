//go:build linux

package selector

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// defaultMaxEvents matches the reference's fixed-size ready-event vector.
const defaultMaxEvents = 1024

// epollSelector implements Selector over epoll_create1/epoll_ctl/epoll_wait.
type epollSelector struct {
	epfd   int
	events []unix.EpollEvent
	out    []Event
}

// New creates an epoll instance with the reference's default ready-event
// capacity.
func New() (Selector, error) {
	return NewSize(defaultMaxEvents)
}

// NewSize creates an epoll instance with the given ready-event capacity.
func NewSize(maxEvents int) (Selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("selector: epoll_create1: %w", err)
	}
	return &epollSelector{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents),
		out:    make([]Event, 0, maxEvents),
	}, nil
}

func toEpollBits(i Interest) uint32 {
	var bits uint32
	if i&Read != 0 {
		bits |= unix.EPOLLIN
	}
	if i&Write != 0 {
		bits |= unix.EPOLLOUT
	}
	if i&EdgeTriggered != 0 {
		bits |= unix.EPOLLET
	}
	if i&OneShot != 0 {
		bits |= unix.EPOLLONESHOT
	}
	return bits
}

func (s *epollSelector) ctl(op int, fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: toEpollBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("selector: epoll_ctl(%d): %w", op, err)
	}
	return nil
}

func (s *epollSelector) Register(fd int, interest Interest) error {
	return s.ctl(unix.EPOLL_CTL_ADD, fd, interest)
}

func (s *epollSelector) Modify(fd int, interest Interest) error {
	return s.ctl(unix.EPOLL_CTL_MOD, fd, interest)
}

func (s *epollSelector) Deregister(fd int) error {
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("selector: epoll_ctl(del): %w", err)
	}
	return nil
}

func (s *epollSelector) Wait(timeoutMS int) ([]Event, error) {
	for {
		n, err := unix.EpollWait(s.epfd, s.events, timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("selector: epoll_wait: %w", err)
		}
		s.out = s.out[:0]
		for i := 0; i < n; i++ {
			ev := s.events[i]
			var ready Interest
			errored := ev.Events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0
			if ev.Events&unix.EPOLLIN != 0 {
				ready |= Read
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				ready |= Write
			}
			s.out = append(s.out, Event{FD: int(ev.Fd), Ready: ready, ErrorOr: errored})
		}
		return s.out, nil
	}
}

func (s *epollSelector) Close() error {
	return unix.Close(s.epfd)
}
