//go:build !linux

package selector

import "errors"

// ErrUnsupported is returned by New/NewSize on platforms without an epoll
// readiness mechanism.
var ErrUnsupported = errors.New("selector: epoll is only supported on linux")

func New() (Selector, error) {
	return nil, ErrUnsupported
}

func NewSize(maxEvents int) (Selector, error) {
	return nil, ErrUnsupported
}
