package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dana/stagehand/internal/ports"
)

// LifecycleState tracks the test runner through its one-way lifecycle.
type LifecycleState int

const (
	// StateNotStarted: no artifact published yet.
	StateNotStarted LifecycleState = iota

	// StateArmed: first artifact staged, settle timer pending.
	StateArmed

	// StateRunning: runner started. One start per process.
	StateRunning

	// StateStopped: terminal. Set on interruption or shutdown.
	StateStopped
)

// DefaultSettleDelay lets the staging directory settle before the runner
// scans its watch folder; a cold scan of a half-written directory logs
// spurious pattern-mismatch warnings.
const DefaultSettleDelay = 50 * time.Millisecond

// RunnerLifecycle defers the browser test runner's start until the first
// artifact exists, then runs it until the process is interrupted.
type RunnerLifecycle struct {
	runner   ports.TestRunner // nil = integration disabled
	disabled bool
	settle   time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	state LifecycleState
	timer *time.Timer
}

// NewRunnerLifecycle creates the lifecycle. runner may be nil and disabled
// may be set; either way Initialize logs that the integration is off.
func NewRunnerLifecycle(runner ports.TestRunner, disabled bool, settle time.Duration, log *slog.Logger) *RunnerLifecycle {
	if log == nil {
		log = slog.Default()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &RunnerLifecycle{
		runner:   runner,
		disabled: disabled,
		settle:   settle,
		log:      log,
	}
}

// Initialize reports whether the integration is active. Disabled states are
// logged explicitly — a silently absent test runner is a common
// misconfiguration.
func (l *RunnerLifecycle) Initialize() {
	if l.runner == nil {
		l.log.Info("test runner disabled: no staging root configured")
		return
	}
	if l.disabled {
		l.log.Info("test runner disabled by configuration")
		return
	}
	l.log.Debug("test runner armed for deferred start", "settle", l.settle)
}

// ArmStart installs the one-shot deferred start. The first call arms the
// settle timer; every later call — before or after the timer fires — is a
// no-op. The runner starts once per process.
func (l *RunnerLifecycle) ArmStart() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateNotStarted {
		return
	}
	if l.runner == nil || l.disabled {
		return
	}

	l.state = StateArmed
	l.timer = time.AfterFunc(l.settle, l.fire)
}

// fire transitions Armed → Running and starts the runner. A Stop that won
// the race leaves the state terminal and the start is abandoned.
func (l *RunnerLifecycle) fire() {
	l.mu.Lock()
	if l.state != StateArmed {
		l.mu.Unlock()
		return
	}
	l.state = StateRunning
	l.mu.Unlock()

	if err := l.runner.Start(context.Background()); err != nil {
		l.log.Error("test runner start failed", "err", err)
	}
}

// Stop transitions to the terminal state and stops the runner if it was
// started. Safe to call multiple times and from a signal handler; the
// first interrupt is enough.
func (l *RunnerLifecycle) Stop() {
	l.mu.Lock()
	prev := l.state
	l.state = StateStopped
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()

	if prev == StateRunning && l.runner != nil {
		if err := l.runner.Stop(); err != nil {
			l.log.Error("test runner stop failed", "err", err)
		}
	}
}

// State returns the current lifecycle state.
func (l *RunnerLifecycle) State() LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
