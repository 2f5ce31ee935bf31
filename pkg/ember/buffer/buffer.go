// Package buffer implements a growable byte region with separate read and
// write cursors and a reclaimable prepend zone, used as the per-connection
// read and write scratch space for the HTTP connection state machine.
package buffer

import (
	"errors"

	"golang.org/x/sys/unix"
)

const initialCapacity = 1024

// scatterOverflowSize bounds the stack-resident overflow buffer used by
// FillFromFD's scatter read. One syscall drains whatever the kernel has
// without the caller needing to know the writable region's size up front.
const scatterOverflowSize = 65536

// ErrClosedFD is a sentinel for a descriptor that is no longer usable.
// FillFromFD and FlushToFD never return it: they pass through the error
// of the underlying system call unchanged.
var ErrClosedFD = errors.New("buffer: fd closed")

// Buffer is a contiguous byte slice with three regions:
// [0, readPos) prepend (reclaimable), [readPos, writePos) readable,
// [writePos, cap) writable. readPos <= writePos <= len(data) always holds.
type Buffer struct {
	data     []byte
	readPos  int
	writePos int
}

// New returns a Buffer with the reference implementation's default initial
// capacity.
func New() *Buffer {
	return &Buffer{data: make([]byte, initialCapacity)}
}

// NewSize returns a Buffer with the given initial capacity.
func NewSize(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// ReadableBytes returns the size of the readable region.
func (b *Buffer) ReadableBytes() int { return b.writePos - b.readPos }

// WritableBytes returns the size of the writable region.
func (b *Buffer) WritableBytes() int { return len(b.data) - b.writePos }

// PrependableBytes returns the size of the reclaimable prepend zone.
func (b *Buffer) PrependableBytes() int { return b.readPos }

// Peek returns the readable region without consuming it. The returned
// slice aliases the buffer's storage and is invalidated by any mutating
// call.
func (b *Buffer) Peek() []byte { return b.data[b.readPos:b.writePos] }

// HasWritten advances writePos by n. Caller guarantees n <= WritableBytes().
func (b *Buffer) HasWritten(n int) { b.writePos += n }

// Append copies p into the writable region, growing the buffer first if
// necessary, and advances writePos.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.ensureWritable(len(p))
	copy(b.data[b.writePos:], p)
	b.writePos += len(p)
}

// AppendString is Append for a string, avoiding a caller-side conversion.
func (b *Buffer) AppendString(s string) {
	b.Append([]byte(s))
}

// ensureWritable implements the documented growth policy: compact first,
// and if that's not enough, grow by exactly the additional bytes needed.
// No geometric doubling -- this keeps peak memory tight at the cost of more
// reallocations under a slow-client workload.
func (b *Buffer) ensureWritable(need int) {
	if b.WritableBytes() >= need {
		return
	}
	if b.PrependableBytes()+b.WritableBytes() >= need {
		n := b.ReadableBytes()
		copy(b.data, b.data[b.readPos:b.writePos])
		b.readPos = 0
		b.writePos = n
		return
	}
	grow := need - b.WritableBytes()
	grown := make([]byte, len(b.data)+grow)
	n := b.ReadableBytes()
	copy(grown, b.data[b.readPos:b.writePos])
	b.data = grown
	b.readPos = 0
	b.writePos = n
}

// Consume advances readPos by n, clamped to ReadableBytes. If readPos
// catches up to writePos both reset to 0 (trivial compaction).
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.ReadableBytes() {
		b.Reset()
		return
	}
	b.readPos += n
}

// ConsumeUntil consumes the readable bytes before the given offset within
// the readable region; the byte at that offset is not consumed.
func (b *Buffer) ConsumeUntil(offsetFromReadPos int) {
	b.Consume(offsetFromReadPos)
}

// Reset clears both cursors, reclaiming the entire buffer as writable.
func (b *Buffer) Reset() {
	b.readPos = 0
	b.writePos = 0
}

// DrainToString returns the readable region as a string and resets the
// buffer.
func (b *Buffer) DrainToString() string {
	s := string(b.Peek())
	b.Reset()
	return s
}

// FillFromFD performs a single scatterv read into the writable region plus
// a 64KiB overflow buffer, appending any overflow onto the buffer. It
// mirrors the reference's dual-destination scatter read: one syscall
// drains whatever the kernel has regardless of how small the writable
// region currently is.
func (b *Buffer) FillFromFD(fd int) (int, error) {
	var overflow [scatterOverflowSize]byte
	writable := b.WritableBytes()
	if writable == 0 {
		// Still must offer at least the overflow buffer so pending bytes
		// aren't silently dropped; grow modestly to accept a tiny read.
		b.ensureWritable(1)
		writable = b.WritableBytes()
	}
	iov := [][]byte{b.data[b.writePos : b.writePos+writable], overflow[:]}
	n, err := readv(fd, iov)
	if n <= 0 {
		return n, err
	}
	if n <= writable {
		b.HasWritten(n)
		return n, err
	}
	b.HasWritten(writable)
	b.Append(overflow[:n-writable])
	return n, err
}

// FlushToFD writes from the readable region and advances readPos by the
// number of bytes actually written.
func (b *Buffer) FlushToFD(fd int) (int, error) {
	n, err := unix.Write(fd, b.Peek())
	if n > 0 {
		b.Consume(n)
	}
	return n, err
}

// readv wraps golang.org/x/sys/unix's scatter read (readv) over the two
// destination slices.
func readv(fd int, iov [][]byte) (int, error) {
	total := 0
	for _, v := range iov {
		total += len(v)
	}
	if total == 0 {
		return 0, nil
	}
	return unix.Readv(fd, iov)
}
