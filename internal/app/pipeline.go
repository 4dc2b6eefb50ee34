package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dana/stagehand/internal/domain/round"
	"github.com/dana/stagehand/internal/domain/router"
	"github.com/dana/stagehand/internal/ports"
)

// Pipeline glues the checker's watch stream to the round state machine and,
// on each completed round, to the publisher and the lint gate. All round
// bookkeeping happens on the checker's single delivery goroutine; only the
// per-file publishes fan out.
type Pipeline struct {
	checker   ports.Checker
	round     *round.Round
	router    *router.Router
	publisher *Publisher
	gate      *LintGate
	log       *slog.Logger

	firstOnce sync.Once
	firstDone chan struct{}

	publishWG sync.WaitGroup
}

// NewPipeline wires the pipeline. The router instance is shared with the
// filesystem watcher, which feeds it change notifications.
func NewPipeline(checker ports.Checker, rt *router.Router, publisher *Publisher, gate *LintGate, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		checker:   checker,
		round:     round.New(),
		router:    rt,
		publisher: publisher,
		gate:      gate,
		log:       log,
		firstDone: make(chan struct{}),
	}
}

// FirstRound is closed once the first check round and its lint pass have
// both finished — the pipeline's "ready" signal.
func (p *Pipeline) FirstRound() <-chan struct{} {
	return p.firstDone
}

// Run starts the checker in persistent watch mode and blocks until it
// exits or ctx is cancelled. A missing checker configuration surfaces here
// as a startup error, before the first round.
func (p *Pipeline) Run(ctx context.Context) error {
	hooks := ports.CheckerHooks{
		RoundStarted:   p.onRoundStarted,
		Diagnostic:     p.onDiagnostic,
		EmitFile:       p.onEmitFile,
		RoundCompleted: func() { p.onRoundCompleted(ctx) },
	}

	err := p.checker.Watch(ctx, &watchHost{router: p.router}, hooks)
	p.publishWG.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pipeline) onRoundStarted(outDir string) {
	p.log.Info("check round running")
	p.round.Start(outDir)
}

func (p *Pipeline) onDiagnostic(d ports.Diagnostic) {
	switch d.Severity {
	case ports.SeverityError:
		p.round.MarkError()
		p.log.Error("check error", "path", d.Path, "code", d.Code, "msg", d.Message)
	case ports.SeverityWarning:
		p.log.Warn("check warning", "path", d.Path, "code", d.Code, "msg", d.Message)
	default:
		p.log.Debug("check notice", "msg", d.Message)
	}
}

func (p *Pipeline) onEmitFile(absPath string) {
	if err := p.round.AddIntent(absPath); err != nil {
		// Protocol violation by the checker. A stale log line beats a
		// crash here.
		p.log.Error("emit outside a running round", "path", absPath, "err", err)
	}
}

// onRoundCompleted drains the round and gates the downstream work: clean
// rounds flush every buffered intent to the publisher; tainted rounds
// discard them. The lint gate runs once per round either way (its policy
// decides whether anything happens).
func (p *Pipeline) onRoundCompleted(ctx context.Context) {
	out := p.round.Complete()

	if out.OK {
		p.log.Info("check round clean", "files", len(out.Intents))
		for _, rel := range out.Intents {
			p.publishWG.Add(1)
			go func(rel string) {
				defer p.publishWG.Done()
				// Per-file failures are logged by the publisher and
				// must not affect sibling publishes.
				_ = p.publisher.Publish(ctx, rel)
			}(rel)
		}
	} else {
		p.log.Info("check round had errors, skipping publish", "discarded", out.Discarded)
	}

	done, err := p.gate.Run(out.OK)
	if err != nil {
		// Overlap means the previous round's lint is still going; this
		// round's pass is dropped, not queued behind it.
		p.log.Error("lint gate rejected run", "err", err)
		p.signalFirstRound()
		return
	}

	go func() {
		<-done
		p.signalFirstRound()
	}()
}

func (p *Pipeline) signalFirstRound() {
	p.firstOnce.Do(func() { close(p.firstDone) })
}

// watchHost adapts the change router to the registration surface the
// checker expects.
type watchHost struct {
	router *router.Router
}

func (h *watchHost) WatchFile(path string, onChange func()) (io.Closer, error) {
	reg := h.router.Register(path, func(router.Event) { onChange() })
	return reg, nil
}

func (h *watchHost) WatchDirectory(string, func()) (io.Closer, error) {
	return nil, ports.ErrDirWatchUnsupported
}
