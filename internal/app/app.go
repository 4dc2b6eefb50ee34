// Package app wires together all adapters and pipeline logic.
// It provides lifecycle management for the stagehand pipeline: create,
// start, stop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dana/stagehand/internal/adapters/bbolt"
	"github.com/dana/stagehand/internal/adapters/checkproc"
	"github.com/dana/stagehand/internal/adapters/devserver"
	fsw "github.com/dana/stagehand/internal/adapters/fsnotify"
	"github.com/dana/stagehand/internal/adapters/lintproc"
	"github.com/dana/stagehand/internal/adapters/runnerproc"
	"github.com/dana/stagehand/internal/domain/router"
	"github.com/dana/stagehand/internal/ports"
)

// App is the top-level container wiring all components together.
type App struct {
	cfg Config
	log *slog.Logger

	Router    *router.Router
	Pipeline  *Pipeline
	Publisher *Publisher
	Gate      *LintGate
	Lifecycle *RunnerLifecycle
	Watcher   ports.Watcher

	cache  *bbolt.Cache // nil when cache disabled
	cancel context.CancelFunc
	done   chan error
}

// New creates an App with all dependencies wired. Does not start anything.
// A missing checker config file fails here, before watch mode.
func New(cfg Config) (*App, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rt := router.New(log)

	var cache *bbolt.Cache
	if cfg.CachePath != "" {
		var err error
		cache, err = bbolt.NewCache(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("open artifact cache: %w", err)
		}
	}

	var runner ports.TestRunner
	if cfg.StagingRoot != "" && !cfg.DisableRunner {
		runner = runnerproc.New(cfg.RunnerCommand, cfg.RunnerConfig, log)
	}
	lifecycle := NewRunnerLifecycle(runner, cfg.DisableRunner, time.Duration(cfg.SettleDelay), log)

	transform := cfg.Transform
	if transform == nil && cfg.TransformCommand != "" {
		transform = CommandTransform(cfg.TransformCommand, log)
	}

	source := devserver.NewClient(cfg.DevServerHost, cfg.DevServerPort)

	var artifactCache ports.ArtifactCache
	if cache != nil {
		artifactCache = cache
	}
	publisher := NewPublisher(cfg.StagingRoot, source, transform, artifactCache, lifecycle.ArmStart, log)

	gate := NewLintGate(cfg.LintPolicy, cfg.LintPatterns, lintproc.New(cfg.LintCommand, log), os.Stdout, log)

	checker := checkproc.New(checkproc.Config{
		ConfigPath: cfg.CheckerConfig,
		Command:    cfg.CheckerCommand,
		Log:        log,
	})

	pipeline := NewPipeline(checker, rt, publisher, gate, log)

	watcher, err := fsw.NewWatcher(cfg.StagingRoot)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		Router:    rt,
		Pipeline:  pipeline,
		Publisher: publisher,
		Gate:      gate,
		Lifecycle: lifecycle,
		Watcher:   watcher,
		cache:     cache,
		done:      make(chan error, 1),
	}, nil
}

// Start launches the watch subsystem, the lint worker, and the check
// pipeline. Returns once everything is running; use FirstRound and Done to
// observe progress.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Lifecycle.Initialize()
	a.Gate.Start(ctx, a.cfg.LintFormatter)

	if err := a.Watcher.Watch(a.cfg.ProjectRoot, a.OnFileChanged); err != nil {
		cancel()
		return fmt.Errorf("watch %s: %w", a.cfg.ProjectRoot, err)
	}

	go func() {
		a.done <- a.Pipeline.Run(ctx)
	}()

	return nil
}

// OnFileChanged is the host-facing file-changed hook. Paths are forwarded
// into the change router, which fans them out to the checker's per-file
// registrations.
func (a *App) OnFileChanged(absPath string) {
	a.Router.Notify(absPath)
}

// FirstRound is closed once the first check+lint round completes.
func (a *App) FirstRound() <-chan struct{} {
	return a.Pipeline.FirstRound()
}

// Done receives the pipeline's exit error when watch mode ends.
func (a *App) Done() <-chan error {
	return a.done
}

// Stop shuts everything down: cancels the pipeline, stops the watcher and
// the test runner, and closes the artifact cache. Safe to call once from a
// signal handler.
func (a *App) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.Watcher.Stop()
	a.Lifecycle.Stop()
	if a.cache != nil {
		if cerr := a.cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
