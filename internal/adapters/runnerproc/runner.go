// Package runnerproc implements the ports.TestRunner interface by spawning
// the browser test runner as a child process. The runner is invoked, never
// introspected: it gets its own config file path and watches the staging
// directory on its own. Stop terminates it politely (SIGTERM), then firmly.
package runnerproc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// stopGrace is how long Stop waits after SIGTERM before SIGKILL.
const stopGrace = 3 * time.Second

// Runner implements ports.TestRunner over a subprocess.
type Runner struct {
	command    []string
	configPath string
	log        *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	waitCh  chan error
	stopped bool
}

// New creates a Runner launching command; configPath, when set, is passed
// as --config.
func New(command []string, configPath string, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{command: command, configPath: configPath, log: log}
}

// Start launches the runner process. Returns once the process is running;
// the runner's own output goes straight to this process's stdout/stderr.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return fmt.Errorf("test runner already stopped")
	}
	if r.cmd != nil {
		return fmt.Errorf("test runner already started")
	}
	if len(r.command) == 0 {
		return fmt.Errorf("no test runner command configured")
	}

	args := append([]string{}, r.command[1:]...)
	if r.configPath != "" {
		args = append(args, "--config", r.configPath)
	}

	cmd := exec.Command(r.command[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start test runner: %w", err)
	}
	r.log.Info("test runner started", "pid", cmd.Process.Pid)

	r.cmd = cmd
	r.waitCh = make(chan error, 1)
	go func() {
		r.waitCh <- cmd.Wait()
	}()

	_ = ctx // the runner outlives the start call; Stop owns termination
	return nil
}

// Stop terminates the runner: SIGTERM, a grace period, then SIGKILL.
// Safe to call multiple times and before Start.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil
	}
	r.stopped = true

	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return nil
	}

	select {
	case <-r.waitCh:
		r.log.Debug("test runner exited after SIGTERM")
	case <-time.After(stopGrace):
		r.log.Warn("test runner did not exit, killing")
		r.cmd.Process.Kill()
		<-r.waitCh
	}
	return nil
}
