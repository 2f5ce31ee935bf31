// Package dbpool implements a fixed-size pool of reusable *sql.DB handles
// with timed blocking acquisition and scoped release, gated by a counting
// semaphore the way the reference's SqlConnPool gates its handles.
package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned by Acquire when no handle became free within the
// requested timeout.
var ErrTimeout = errors.New("dbpool: acquire timed out")

// Config describes how to dial the database and how many handles to keep.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	PoolSize int
}

// Pool is a fixed-size set of *sql.DB handles. Each handle is tuned to a
// single underlying connection (SetMaxOpenConns(1)) so admission control
// is entirely owned by Pool's semaphore and free queue, not by
// database/sql's own pooling.
type Pool struct {
	mu    sync.Mutex
	free  []*sql.DB
	sem   *semaphore.Weighted
	total int64
}

// Open creates up to cfg.PoolSize handles. Partial failure is tolerated:
// the semaphore is sized to the number of handles that were actually
// created, matching the reference's partial-initialization behavior.
func Open(cfg Config) (*Pool, error) {
	n := cfg.PoolSize
	if n <= 0 {
		n = 1
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	p := &Pool{}
	var firstErr error
	for i := 0; i < n; i++ {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := db.Ping(); err != nil {
			db.Close()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		p.free = append(p.free, db)
	}
	if len(p.free) == 0 {
		if firstErr == nil {
			firstErr = errors.New("dbpool: no handles could be created")
		}
		return nil, firstErr
	}
	p.total = int64(len(p.free))
	p.sem = semaphore.NewWeighted(p.total)
	// Drain the semaphore down to 0, then release one token per free
	// handle, so its count always mirrors free_count as the invariant
	// requires.
	_ = p.sem.Acquire(context.Background(), p.total)
	p.sem.Release(p.total)
	return p, nil
}

// NewForTesting builds a Pool directly from already-open handles, the way
// go-ublk's NewStubRunner builds a Runner without real hardware. It lets
// the pool's acquire/release/timeout semantics be exercised without a
// live database.
func NewForTesting(handles []*sql.DB) *Pool {
	p := &Pool{free: append([]*sql.DB(nil), handles...), total: int64(len(handles))}
	p.sem = semaphore.NewWeighted(p.total)
	return p
}

// Acquire waits up to timeout for a free handle. timeout == 0 blocks
// forever; timeout < 0 fails immediately if none is free.
func (p *Pool) Acquire(timeout time.Duration) (*sql.DB, error) {
	ctx := context.Background()
	switch {
	case timeout == 0:
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	case timeout < 0:
		if !p.sem.TryAcquire(1) {
			return nil, ErrTimeout
		}
	default:
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := p.sem.Acquire(cctx, 1); err != nil {
			return nil, ErrTimeout
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	db := p.free[0]
	p.free = p.free[1:]
	return db, nil
}

// Release returns db to the free queue and posts the semaphore outside
// the critical section, mirroring the reference's release ordering.
func (p *Pool) Release(db *sql.DB) {
	p.mu.Lock()
	p.free = append(p.free, db)
	p.mu.Unlock()
	p.sem.Release(1)
}

// WithConn is the scoped-acquisition helper: it acquires a handle, runs
// fn, and guarantees Release on every exit path including a panic
// propagating out of fn.
func (p *Pool) WithConn(timeout time.Duration, fn func(db *sql.DB) error) error {
	db, err := p.Acquire(timeout)
	if err != nil {
		return err
	}
	defer p.Release(db)
	return fn(db)
}

// Close closes every handle in the free queue; a handle still held by a
// caller is not closed. Callers must ensure no acquisition is in flight.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for _, db := range p.free {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	p.free = nil
	return err
}

// Stats reports the at-rest invariant quantities for tests and
// diagnostics.
type Stats struct {
	Free int
	Used int
	Max  int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := len(p.free)
	return Stats{Free: free, Used: int(p.total) - free, Max: int(p.total)}
}
