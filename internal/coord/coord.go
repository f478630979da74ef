// Package coord coordinates the application's goroutines: a single-fire
// shutdown latch, named lock domains, supervised goroutines and the UI task
// loop.
package coord

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// PanicError is returned by UIOperation and ResourceLock when fn panicked.
type PanicError struct {
	Op    string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s operation: %v", e.Op, e.Value)
}

type hook struct {
	name string
	fn   func()
}

// Coordinator is created once at startup and passed to every component
// that starts goroutines or can trigger shutdown.
type Coordinator struct {
	mu           sync.Mutex
	shuttingDown bool
	hooks        []hook

	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	uiMu       sync.Mutex
	resourceMu sync.Mutex

	wg sync.WaitGroup
}

// New returns a coordinator whose context derives from parent.
func New(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnShutdown registers fn to run, in registration order, when shutdown is
// requested. If shutdown already happened fn runs immediately.
func (c *Coordinator) OnShutdown(name string, fn func()) {
	c.mu.Lock()
	if !c.shuttingDown {
		c.hooks = append(c.hooks, hook{name: name, fn: fn})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	runHook(hook{name: name, fn: fn})
}

// RequestShutdown returns true for exactly one caller over the coordinator's
// lifetime. That caller closes Done, cancels Context and runs the shutdown
// hooks before returning. Every other caller gets false immediately.
func (c *Coordinator) RequestShutdown() bool {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return false
	}
	c.shuttingDown = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	slog.Info("Shutdown requested")
	close(c.done)
	c.cancel()
	for _, h := range hooks {
		runHook(h)
	}
	slog.Info("Shutdown hooks completed", "hooks", len(hooks))
	return true
}

func runHook(h hook) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in shutdown hook", "hook", h.name, "panic", r)
		}
	}()
	h.fn()
}

// ShuttingDown reports whether shutdown has been requested.
func (c *Coordinator) ShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown
}

// Done is closed when shutdown is requested.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Context is cancelled when shutdown is requested.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// WaitForShutdown blocks until shutdown is requested or timeout passes, and
// reports which happened.
func (c *Coordinator) WaitForShutdown(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-c.done:
		return true
	case <-t.C:
		return false
	}
}

// UIOperation runs fn while holding the UI lock domain.
func (c *Coordinator) UIOperation(fn func() error) error {
	return guarded(&c.uiMu, "ui", fn)
}

// ResourceLock runs fn while holding the shared-resource lock domain.
func (c *Coordinator) ResourceLock(fn func() error) error {
	return guarded(&c.resourceMu, "resource", fn)
}

func guarded(mu *sync.Mutex, op string, fn func() error) (err error) {
	mu.Lock()
	defer mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: op, Value: r, Stack: debug.Stack()}
			slog.Error("Recovered from panic", "op", op, "panic", r)
		}
	}()
	return fn()
}

// Go runs fn in a supervised goroutine. A panic is logged and ends only that
// goroutine. fn receives Context and should return once it is cancelled.
// Once shutdown has been requested nothing new is started and Go returns
// false.
func (c *Coordinator) Go(name string, fn func(ctx context.Context)) bool {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		slog.Debug("Dropped goroutine started during shutdown", "goroutine", name)
		return false
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered from panic in goroutine", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(c.ctx)
	}()
	return true
}

// Wait waits up to timeout for every goroutine started with Go and reports
// whether they all returned.
func (c *Coordinator) Wait(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-finished:
		return true
	case <-t.C:
		slog.Warn("Timed out waiting for goroutines to stop", "timeout", timeout)
		return false
	}
}
