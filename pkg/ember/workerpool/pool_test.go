package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsAllTasks(t *testing.T) {
	p := New(4, nil)
	defer p.Close()

	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		})
	}
	wg.Wait()
	if got := atomic.LoadInt64(&n); got != 100 {
		t.Fatalf("ran %d tasks, want 100", got)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	var recovered atomic.Int32
	p := New(1, func(r any) { recovered.Add(1) })
	defer p.Close()

	done := make(chan struct{})
	p.Submit(func() { panic("boom") })
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker appears to have died after a panicking task")
	}
	if recovered.Load() != 1 {
		t.Fatalf("panic handler invoked %d times, want 1", recovered.Load())
	}
}

func TestCloseDrainsQueueBeforeReturning(t *testing.T) {
	p := New(2, nil)
	var n int64
	for i := 0; i < 20; i++ {
		p.Submit(func() { atomic.AddInt64(&n, 1) })
	}
	p.Close()
	if got := atomic.LoadInt64(&n); got != 20 {
		t.Fatalf("ran %d of 20 queued tasks before Close returned", got)
	}
}
