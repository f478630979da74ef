package coord

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	// ErrLoopStopped is returned when posting to a stopped loop.
	ErrLoopStopped = errors.New("ui loop stopped")

	errLoopRunning = errors.New("ui loop already running")
)

// Loop is a task queue drained by a single goroutine. Everything that
// touches UI state is posted to it instead of running on the caller's
// goroutine.
type Loop struct {
	tasks    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	// OnStop runs on the loop goroutine after Stop, before Run returns.
	OnStop func()
}

// NewLoop returns a loop whose queue holds up to buffer pending tasks.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stop:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.stop:
		return ErrLoopStopped
	}
}

// Call runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	err := l.Post(func() {
		result <- guardedTask(fn)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

func guardedTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: "ui", Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Run drains the queue on the calling goroutine, locked to its OS thread,
// until Stop is called or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errLoopRunning
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-l.stop:
			l.shutdown()
			return nil
		case fn := <-l.tasks:
			l.runTask(fn)
		}
	}
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in UI task", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) shutdown() {
	if dropped := len(l.tasks); dropped > 0 {
		slog.Debug("Dropping queued UI tasks", "count", dropped)
	}
	if l.OnStop != nil {
		l.runTask(l.OnStop)
	}
	slog.Info("UI loop stopped")
}

// Stop asks the loop to exit. The loop finishes its current task, runs
// OnStop on its own goroutine and returns. Stop never blocks and may be
// called from any goroutine, including the loop's, any number of times.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
