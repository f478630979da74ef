package clipboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rkvasne/dahora-app-sub000/internal/history"
)

// Recorder receives new clipboard text. *history.Store implements it.
type Recorder interface {
	Add(text, source string) (bool, error)
}

// MonitorConfig sets the polling intervals. While the clipboard changed
// within IdleThreshold the monitor polls every FastInterval; after that the
// interval starts at SlowInterval and grows with the idle time up to
// MaxInterval.
type MonitorConfig struct {
	FastInterval  time.Duration
	SlowInterval  time.Duration
	MaxInterval   time.Duration
	ErrorInterval time.Duration
	IdleThreshold time.Duration

	// OnChange is called from the monitor goroutine after new text was seen.
	OnChange func(text string)
}

// DefaultMonitorConfig returns the stock intervals.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		FastInterval:  500 * time.Millisecond,
		SlowInterval:  5 * time.Second,
		MaxInterval:   30 * time.Second,
		ErrorInterval: 3 * time.Second,
		IdleThreshold: 30 * time.Second,
	}
}

func (c *MonitorConfig) fill() {
	def := DefaultMonitorConfig()
	if c.FastInterval <= 0 {
		c.FastInterval = def.FastInterval
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = def.SlowInterval
	}
	if c.MaxInterval < c.SlowInterval {
		c.MaxInterval = c.SlowInterval
	}
	if c.ErrorInterval <= 0 {
		c.ErrorInterval = def.ErrorInterval
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = def.IdleThreshold
	}
}

// Monitor polls a Clipboard and records every new text.
type Monitor struct {
	clip Clipboard
	rec  Recorder
	cfg  MonitorConfig

	mu           sync.Mutex
	lastSeen     string
	lastActivity time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMonitor returns a monitor that feeds rec from clip. Zero intervals in
// cfg take their defaults.
func NewMonitor(clip Clipboard, rec Recorder, cfg MonitorConfig) *Monitor {
	cfg.fill()
	return &Monitor{
		clip:  clip,
		rec:   rec,
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run polls until ctx is cancelled. The content present at start is taken
// as already seen. Read errors are logged and retried; they never stop the
// loop.
func (m *Monitor) Run(ctx context.Context) error {
	baseline, err := m.clip.Read()
	if err != nil {
		slog.Warn("Failed to read initial clipboard content", "error", err)
		baseline = ""
	}
	m.mu.Lock()
	m.lastSeen = baseline
	m.lastActivity = m.now()
	m.mu.Unlock()

	slog.Info("Clipboard monitor started",
		"fast", m.cfg.FastInterval, "slow", m.cfg.SlowInterval, "idle_threshold", m.cfg.IdleThreshold)

	for {
		wait := m.poll()
		if err := m.sleep(ctx, wait); err != nil {
			slog.Info("Clipboard monitor stopped")
			return nil
		}
	}
}

// poll reads the clipboard once and returns how long to wait before the
// next read.
func (m *Monitor) poll() time.Duration {
	text, err := m.clip.Read()
	if err != nil {
		slog.Warn("Failed to read clipboard", "error", err, "retry_in", m.cfg.ErrorInterval)
		return m.cfg.ErrorInterval
	}

	now := m.now()
	m.mu.Lock()
	changed := text != "" && text != m.lastSeen
	if changed {
		m.lastSeen = text
		m.lastActivity = now
	}
	m.mu.Unlock()

	if changed {
		if _, err := m.rec.Add(text, history.SourceMonitor); err != nil {
			slog.Error("Failed to record clipboard change", "error", err)
		}
		if m.cfg.OnChange != nil {
			m.cfg.OnChange(text)
		}
	}
	return m.NextInterval(now)
}

// NextInterval returns the wait that follows a poll at now.
func (m *Monitor) NextInterval(now time.Time) time.Duration {
	m.mu.Lock()
	idle := now.Sub(m.lastActivity)
	m.mu.Unlock()

	if idle < m.cfg.IdleThreshold {
		return m.cfg.FastInterval
	}
	// SlowInterval at the threshold, growing in proportion to the idle time.
	scaled := float64(m.cfg.SlowInterval) * float64(idle) / float64(m.cfg.IdleThreshold)
	if scaled >= float64(m.cfg.MaxInterval) {
		return m.cfg.MaxInterval
	}
	return time.Duration(scaled)
}

// Ignore marks text as already seen, so writing it to the clipboard is not
// recorded as a change. It doesn't count as activity.
func (m *Monitor) Ignore(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = text
}
