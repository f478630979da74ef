package coord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestShutdownOnlyOneWinner(t *testing.T) {
	c := New(context.Background())
	var hookRuns atomic.Int32
	c.OnShutdown("count", func() { hookRuns.Add(1) })

	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		start = make(chan struct{})
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if c.RequestShutdown() {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("RequestShutdown returned true %d times, want 1", got)
	}
	if got := hookRuns.Load(); got != 1 {
		t.Errorf("hook ran %d times, want 1", got)
	}
	if c.RequestShutdown() {
		t.Error("later RequestShutdown returned true")
	}
}

func TestShutdownSignalsAndHookOrder(t *testing.T) {
	c := New(context.Background())
	var order []string
	c.OnShutdown("first", func() { order = append(order, "first") })
	c.OnShutdown("panics", func() { panic("boom") })
	c.OnShutdown("last", func() { order = append(order, "last") })

	if c.WaitForShutdown(10 * time.Millisecond) {
		t.Fatal("WaitForShutdown returned true before shutdown")
	}
	if c.ShuttingDown() {
		t.Fatal("ShuttingDown true before shutdown")
	}

	c.RequestShutdown()

	if !c.WaitForShutdown(time.Second) {
		t.Fatal("WaitForShutdown returned false after shutdown")
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done not closed")
	}
	if !errors.Is(c.Context().Err(), context.Canceled) {
		t.Errorf("Context().Err() = %v, want Canceled", c.Context().Err())
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "last" {
		t.Errorf("hooks ran as %v, want [first last]", order)
	}
}

func TestOnShutdownAfterShutdownRunsImmediately(t *testing.T) {
	c := New(context.Background())
	c.RequestShutdown()
	ran := false
	c.OnShutdown("late", func() { ran = true })
	if !ran {
		t.Error("hook registered after shutdown did not run")
	}
}

func TestUIOperation(t *testing.T) {
	c := New(context.Background())
	want := errors.New("dialog failed")

	if err := c.UIOperation(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("UIOperation error = %v, want %v", err, want)
	}

	err := c.UIOperation(func() error { panic("bad widget") })
	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("UIOperation after panic = %v, want *PanicError", err)
	}
	if perr.Op != "ui" || perr.Value != "bad widget" {
		t.Errorf("PanicError = %+v", perr)
	}

	// The lock must have been released by the panicking call.
	done := make(chan struct{})
	go func() {
		_ = c.UIOperation(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("UI lock still held after panic")
	}
}

func TestLockDomainsSerialize(t *testing.T) {
	c := New(context.Background())
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.ResourceLock(func() error { counter++; return nil })
		}()
		go func() {
			defer wg.Done()
			_ = c.ResourceLock(func() error { counter--; return nil })
		}()
	}
	wg.Wait()
	if counter != 0 {
		t.Errorf("counter = %d, want 0", counter)
	}
}

func TestGoRecoversAndStopsOnShutdown(t *testing.T) {
	c := New(context.Background())

	c.Go("panics", func(ctx context.Context) { panic("worker exploded") })
	c.Go("waits", func(ctx context.Context) { <-ctx.Done() })

	if c.Wait(20 * time.Millisecond) {
		t.Fatal("Wait returned true while a worker is still running")
	}
	c.RequestShutdown()
	if !c.Wait(time.Second) {
		t.Fatal("workers did not stop after shutdown")
	}
}

func TestGoAfterShutdownIsRefused(t *testing.T) {
	c := New(context.Background())
	c.RequestShutdown()

	var ran atomic.Bool
	if c.Go("late", func(context.Context) { ran.Store(true) }) {
		t.Error("Go started a goroutine after shutdown")
	}
	if !c.Wait(time.Second) {
		t.Fatal("Wait blocked on a refused goroutine")
	}
	if ran.Load() {
		t.Error("refused goroutine ran")
	}
}

func TestGoRacesWithWait(t *testing.T) {
	c := New(context.Background())
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Go("click", func(context.Context) {})
		}()
	}
	c.RequestShutdown()
	if !c.Wait(time.Second) {
		t.Error("Wait timed out")
	}
	wg.Wait()
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := range 5 {
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	if err := l.Call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran as %v", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("ran %d tasks, want 5", len(got))
	}
}

func TestLoopCall(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	want := errors.New("no display")
	if err := l.Call(ctx, func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Call = %v, want %v", err, want)
	}
	var perr *PanicError
	if err := l.Call(ctx, func() error { panic("x") }); !errors.As(err, &perr) {
		t.Errorf("Call after panic = %v, want *PanicError", err)
	}
	// A panicking posted task does not end the loop.
	_ = l.Post(func() { panic("y") })
	if err := l.Call(ctx, func() error { return nil }); err != nil {
		t.Errorf("Call after panicking task = %v", err)
	}
}

func TestLoopStop(t *testing.T) {
	l := NewLoop(4)
	var onStop atomic.Bool
	l.OnStop = func() { onStop.Store(true) }

	ranOnLoop := make(chan error, 1)
	go func() { ranOnLoop <- l.Run(context.Background()) }()

	// Stop from inside a task must not deadlock.
	if err := l.Post(func() { l.Stop() }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case err := <-ranOnLoop:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if !onStop.Load() {
		t.Error("OnStop did not run")
	}

	l.Stop()
	if err := l.Post(func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Post after Stop = %v, want ErrLoopStopped", err)
	}
	if err := l.Call(context.Background(), func() error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Call after Stop = %v, want ErrLoopStopped", err)
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestLoopContextCancel(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if err := l.Run(context.Background()); err == nil {
		t.Error("second Run returned nil")
	}
}
