// Package checkproc implements the ports.Checker interface by driving the
// external type checker as a subprocess in watch mode. The checker speaks
// JSONL on stdout — round banners, diagnostics, intercepted file emits, and
// watch registrations — and receives change notifications as JSONL on
// stdin. One line is one event; malformed lines are logged and skipped.
package checkproc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/dana/stagehand/internal/ports"
)

// maxLineBytes bounds one JSONL event. Diagnostics can carry long
// messages but never megabytes.
const maxLineBytes = 1 << 20

// Config holds parameters for creating a Checker.
type Config struct {
	// ConfigPath is the checker's own configuration file. Must exist;
	// checked before the subprocess is spawned.
	ConfigPath string

	// Command launches the checker bridge, e.g. {"tsc-bridge", "--watch"}.
	// The config path is appended as --project <path>.
	Command []string

	// Log receives protocol-level noise (skipped lines, watch errors).
	Log *slog.Logger
}

// Checker implements ports.Checker over a JSONL subprocess.
type Checker struct {
	cfg Config
	log *slog.Logger
}

// New creates a Checker. The subprocess is not spawned until Watch.
func New(cfg Config) *Checker {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Checker{cfg: cfg, log: log}
}

// event is one JSONL line in either direction.
type event struct {
	Kind     string `json:"kind"`
	OutDir   string `json:"outDir,omitempty"`
	Severity string `json:"severity,omitempty"`
	Code     int    `json:"code,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Watch spawns the checker and pumps its event stream into hooks until ctx
// is cancelled or the process exits. Watch registrations requested by the
// checker are forwarded to host; file changes flow back to the checker's
// stdin as {"kind":"changed"} lines.
func (c *Checker) Watch(ctx context.Context, host ports.WatchHost, hooks ports.CheckerHooks) error {
	if _, err := os.Stat(c.cfg.ConfigPath); err != nil {
		return fmt.Errorf("checker config %s: %w", c.cfg.ConfigPath, err)
	}
	if len(c.cfg.Command) == 0 {
		return fmt.Errorf("no checker command configured")
	}

	args := append(append([]string{}, c.cfg.Command[1:]...), "--project", c.cfg.ConfigPath)
	cmd := exec.CommandContext(ctx, c.cfg.Command[0], args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("checker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("checker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start checker: %w", err)
	}

	session := &watchSession{
		host:   host,
		hooks:  hooks,
		stdin:  stdin,
		log:    c.log,
		closers: make(map[string][]io.Closer),
	}
	defer session.closeAll()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			c.log.Error("checker emitted malformed event", "err", err)
			continue
		}
		session.dispatch(&ev)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.log.Error("checker stream read failed", "err", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("checker exited: %w", err)
	}
	return ctx.Err()
}

// watchSession holds the per-Watch state: open watch registrations and the
// stdin writer used to notify the checker of changes.
type watchSession struct {
	host  ports.WatchHost
	hooks ports.CheckerHooks
	log   *slog.Logger

	stdinMu sync.Mutex
	stdin   io.WriteCloser

	closers map[string][]io.Closer
}

// dispatch routes one event from the checker into the hooks.
func (s *watchSession) dispatch(ev *event) {
	switch ev.Kind {
	case "roundStart":
		if s.hooks.RoundStarted != nil {
			s.hooks.RoundStarted(ev.OutDir)
		}
	case "diagnostic":
		if s.hooks.Diagnostic != nil {
			s.hooks.Diagnostic(ports.Diagnostic{
				Severity: mapSeverity(ev.Severity),
				Code:     ev.Code,
				Path:     ev.Path,
				Message:  ev.Message,
			})
		}
	case "emit":
		if s.hooks.EmitFile != nil {
			s.hooks.EmitFile(ev.Path)
		}
	case "roundComplete":
		if s.hooks.RoundCompleted != nil {
			s.hooks.RoundCompleted()
		}
	case "watch":
		s.watchFile(ev.Path)
	case "unwatch":
		s.unwatchFile(ev.Path)
	default:
		s.log.Debug("unknown checker event", "kind", ev.Kind)
	}
}

// watchFile registers ev.Path with the host; on change the checker is told
// via stdin. Registrations stack — the checker may re-register a path
// after a config reload before unwatching the old one.
func (s *watchSession) watchFile(path string) {
	closer, err := s.host.WatchFile(path, func() {
		s.notifyChanged(path)
	})
	if err != nil {
		s.log.Error("watch registration failed", "path", path, "err", err)
		return
	}
	s.closers[path] = append(s.closers[path], closer)
}

// unwatchFile drops the oldest registration for path.
func (s *watchSession) unwatchFile(path string) {
	regs := s.closers[path]
	if len(regs) == 0 {
		s.log.Debug("unwatch for unknown path", "path", path)
		return
	}
	regs[0].Close()
	if len(regs) == 1 {
		delete(s.closers, path)
	} else {
		s.closers[path] = regs[1:]
	}
}

// notifyChanged tells the checker a watched file changed. May be invoked
// from any goroutine; stdin writes are serialized.
func (s *watchSession) notifyChanged(path string) {
	line, err := json.Marshal(event{Kind: "changed", Path: path})
	if err != nil {
		return
	}
	s.stdinMu.Lock()
	defer s.stdinMu.Unlock()
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		s.log.Debug("change notify failed", "path", path, "err", err)
	}
}

// closeAll releases every outstanding registration and the stdin pipe.
func (s *watchSession) closeAll() {
	for _, regs := range s.closers {
		for _, closer := range regs {
			closer.Close()
		}
	}
	s.closers = make(map[string][]io.Closer)

	s.stdinMu.Lock()
	defer s.stdinMu.Unlock()
	s.stdin.Close()
}

// mapSeverity translates the wire severity to the port's enum. Unknown
// strings degrade to info — only explicit errors may taint a round.
func mapSeverity(s string) ports.Severity {
	switch s {
	case "error":
		return ports.SeverityError
	case "warning":
		return ports.SeverityWarning
	default:
		return ports.SeverityInfo
	}
}
