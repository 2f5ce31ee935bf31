//go:build linux

package selector

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestRegisterWaitModifyDeregister(t *testing.T) {
	sel, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sel.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := sel.Register(fds[0], Read|EdgeTriggered|OneShot); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := sel.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 || events[0].FD != fds[0] || events[0].Ready&Read == 0 {
		t.Fatalf("unexpected events: %+v", events)
	}

	// One-shot: a second wait with no re-arm should see nothing ready.
	events, err = sel.Wait(50)
	if err != nil {
		t.Fatalf("Wait after one-shot: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events before re-arm, got %+v", events)
	}

	if err := sel.Modify(fds[0], Read|EdgeTriggered|OneShot); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	events, err = sel.Wait(1000)
	if err != nil {
		t.Fatalf("Wait after re-arm: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected re-armed fd to be ready again, got %+v", events)
	}

	if err := sel.Deregister(fds[0]); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
}
