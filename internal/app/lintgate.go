package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dana/stagehand/internal/ports"
)

// LintPolicy controls whether the lint pass runs after a check round.
type LintPolicy string

const (
	// LintNever disables linting entirely.
	LintNever LintPolicy = "never"

	// LintForce runs lint even when the round had type errors.
	LintForce LintPolicy = "force"

	// LintNormal runs lint only on clean rounds. Default.
	LintNormal LintPolicy = "normal"
)

// ErrLintBusy is returned when a lint run is requested while one is still
// outstanding. Callers serialize on the completion channel; overlapping
// requests are a caller error and are rejected rather than silently
// dropping the earlier caller's completion signal.
var ErrLintBusy = errors.New("lint run already in progress")

// lintRequest is one run request to the worker. done is closed when the
// run finishes, on every exit path.
type lintRequest struct {
	done chan struct{}
}

// LintGate runs the lint pass on a dedicated worker goroutine so a long
// lint cannot delay artifact publishing. Communication is message passing
// only: a request channel of capacity one plus a per-request completion
// channel; at most one request is outstanding at a time.
type LintGate struct {
	policy    LintPolicy
	patterns  []string
	linter    ports.Linter
	formatter ports.Formatter
	out       io.Writer
	log       *slog.Logger

	requests chan lintRequest
	busy     atomic.Bool
}

// NewLintGate creates the gate. out receives the formatted report (nil
// discards it). The worker does not run until Start.
func NewLintGate(policy LintPolicy, patterns []string, linter ports.Linter, out io.Writer, log *slog.Logger) *LintGate {
	if log == nil {
		log = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	if policy == "" {
		policy = LintNormal
	}
	return &LintGate{
		policy:   policy,
		patterns: patterns,
		linter:   linter,
		out:      out,
		log:      log,
		requests: make(chan lintRequest, 1),
	}
}

// Start loads the report formatter once and launches the worker goroutine.
// A formatter that fails to load falls back to an error-logging stub so
// lint execution still completes. The worker exits when ctx is cancelled.
func (g *LintGate) Start(ctx context.Context, formatterName string) {
	if g.policy == LintNever {
		g.log.Debug("lint disabled by policy")
		return
	}

	f, err := g.linter.LoadFormatter(formatterName)
	if err != nil {
		g.log.Error("lint formatter load failed, using stub", "formatter", formatterName, "err", err)
		f = &stubFormatter{log: g.log}
	}
	g.formatter = f

	go g.worker(ctx)
}

// Run requests one lint pass. Policy decides whether the worker is
// invoked: never → immediate completion, normal with ok=false → immediate
// completion, otherwise the request is handed to the worker. The returned
// channel closes when the run finishes. A request while another is
// outstanding returns ErrLintBusy.
func (g *LintGate) Run(ok bool) (<-chan struct{}, error) {
	done := make(chan struct{})

	if g.policy == LintNever || (g.policy == LintNormal && !ok) {
		g.log.Debug("lint skipped", "policy", string(g.policy), "ok", ok)
		close(done)
		return done, nil
	}

	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrLintBusy
	}

	g.requests <- lintRequest{done: done}
	return done, nil
}

// worker serves lint requests one at a time. Completion is signaled on
// every exit path; a lint failure is logged, never propagated.
func (g *LintGate) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-g.requests:
			g.runOne(ctx)
			close(req.done)
			g.busy.Store(false)
		}
	}
}

func (g *LintGate) runOne(ctx context.Context) {
	report, err := g.linter.Lint(ctx, g.patterns)
	if err != nil {
		g.log.Error("lint run failed", "err", err)
		return
	}

	text, err := g.formatter.Format(report)
	if err != nil {
		g.log.Error("lint report format failed", "err", err)
		return
	}
	if text != "" {
		fmt.Fprintln(g.out, text)
	}

	g.log.Info("lint finished",
		"errors", report.ErrorCount,
		"warnings", report.WarningCount,
	)
}

// stubFormatter stands in when the configured formatter cannot be loaded.
// It logs the condition per report and renders nothing, so lint runs still
// complete and findings still count.
type stubFormatter struct {
	log *slog.Logger
}

func (s *stubFormatter) Format(report *ports.LintReport) (string, error) {
	s.log.Error("no lint formatter loaded; report not rendered",
		"errors", report.ErrorCount,
		"warnings", report.WarningCount,
	)
	return "", nil
}
