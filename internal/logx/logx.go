// Package logx is a non-blocking, level-filtered, file-backed logger. It
// mirrors the reference AsyncLogger's bounded queue + single background
// goroutine design, using logrus as the underlying formatter and level
// gate instead of a hand-rolled switch over level constants.
package logx

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors the reference's INFO/WARNING/ERROR/DEBUG enum.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelDebug
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelWarning:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps the config file's string levels ("info", "warning",
// "error", "debug") onto Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

type record struct {
	level Level
	msg   string
}

// Logger enqueues records from arbitrarily many caller goroutines and
// drains them from a single background goroutine, so a caller never
// waits on the queue. The one exception to background writing is the
// queue-full warning: at most once per second, the caller whose record
// was dropped writes that warning to the file itself.
type Logger struct {
	entry     *logrus.Logger
	queue     chan record
	done      chan struct{}
	wg        sync.WaitGroup
	dropCount int64
	lastWarn  atomic.Int64
}

// New opens path in append mode and starts the background drain
// goroutine. queueSize bounds how many records may be in flight before
// new records are dropped (and counted) rather than blocking the
// caller.
func New(path string, level Level, queueSize int) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logx: open %s: %w", path, err)
	}
	l := logrus.New()
	l.SetOutput(f)
	l.SetLevel(level.logrusLevel())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if queueSize <= 0 {
		queueSize = 1024
	}
	lg := &Logger{
		entry: l,
		queue: make(chan record, queueSize),
		done:  make(chan struct{}),
	}
	lg.wg.Add(1)
	go lg.run()
	return lg, nil
}

func (l *Logger) run() {
	defer l.wg.Done()
	for rec := range l.queue {
		l.entry.Log(rec.level.logrusLevel(), rec.msg)
	}
}

func (l *Logger) enqueue(level Level, msg string) {
	select {
	case l.queue <- record{level: level, msg: msg}:
	default:
		dropped := atomic.AddInt64(&l.dropCount, 1)
		now := time.Now().Unix()
		last := l.lastWarn.Load()
		if now != last && l.lastWarn.CompareAndSwap(last, now) {
			l.entry.Warnf("logx: dropped %d log records, queue full", dropped)
		}
	}
}

func (l *Logger) Info(msg string)  { l.enqueue(LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.enqueue(LevelWarning, msg) }
func (l *Logger) Error(msg string) { l.enqueue(LevelError, msg) }
func (l *Logger) Debug(msg string) { l.enqueue(LevelDebug, msg) }

func (l *Logger) Infof(format string, args ...any)  { l.enqueue(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.enqueue(LevelWarning, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.enqueue(LevelError, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...any) { l.enqueue(LevelDebug, fmt.Sprintf(format, args...)) }

// Close stops accepting new records, drains whatever is already queued,
// and joins the background goroutine.
func (l *Logger) Close() {
	close(l.queue)
	l.wg.Wait()
}
