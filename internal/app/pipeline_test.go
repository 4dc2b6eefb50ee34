package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dana/stagehand/internal/domain/router"
	"github.com/dana/stagehand/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChecker plays a scripted watch session against the hooks, the way
// the real checker delivers one round's diagnostics sequentially.
type fakeChecker struct {
	script func(host ports.WatchHost, hooks ports.CheckerHooks)
	err    error
}

func (f *fakeChecker) Watch(ctx context.Context, host ports.WatchHost, hooks ports.CheckerHooks) error {
	if f.script != nil {
		f.script(host, hooks)
	}
	return f.err
}

type pipelineFixture struct {
	pipeline *Pipeline
	router   *router.Router
	source   *fakeSource
	linter   *fakeLinter
	staging  string
	armed    *int
}

func newPipelineFixture(t *testing.T, checker ports.Checker, policy LintPolicy) *pipelineFixture {
	t.Helper()

	staging := t.TempDir()
	source := &fakeSource{bodies: map[string][]byte{
		"a.js": []byte("aa"),
		"b.js": []byte("bb"),
	}}
	armed := 0

	rt := router.New(nil)
	publisher := NewPublisher(staging, source, nil, nil, func() { armed++ }, nil)
	linter := &fakeLinter{}
	gate := NewLintGate(policy, nil, linter, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	gate.Start(ctx, "compact")

	return &pipelineFixture{
		pipeline: NewPipeline(checker, rt, publisher, gate, nil),
		router:   rt,
		source:   source,
		linter:   linter,
		staging:  staging,
		armed:    &armed,
	}
}

// runOneRound is a checker script for a single round.
func runOneRound(outDir string, errDiag bool, emits ...string) func(ports.WatchHost, ports.CheckerHooks) {
	return func(_ ports.WatchHost, hooks ports.CheckerHooks) {
		hooks.RoundStarted(outDir)
		if errDiag {
			hooks.Diagnostic(ports.Diagnostic{Severity: ports.SeverityError, Path: "src/a.ts", Message: "type error"})
		}
		for _, e := range emits {
			hooks.EmitFile(e)
		}
		hooks.RoundCompleted()
	}
}

func TestCleanRound_PublishesAndArms(t *testing.T) {
	checker := &fakeChecker{script: runOneRound("/out", false, "/out/a.js", "/out/b.js")}
	fx := newPipelineFixture(t, checker, LintNormal)

	require.NoError(t, fx.pipeline.Run(context.Background()))

	for _, name := range []string{"a.js", "b.js"} {
		_, err := os.Stat(filepath.Join(fx.staging, name))
		assert.NoError(t, err, "expected staged %s", name)
	}
	assert.Len(t, fx.source.fetched, 2)
	assert.Equal(t, 1, *fx.armed, "first successful write arms the runner")

	select {
	case <-fx.pipeline.FirstRound():
	case <-time.After(2 * time.Second):
		t.Fatal("first round signal missing")
	}
	assert.Equal(t, 1, fx.linter.Runs())
}

func TestErrorRound_PublishesNothingAndSkipsLint(t *testing.T) {
	checker := &fakeChecker{script: runOneRound("/out", true, "/out/a.js", "/out/b.js")}
	fx := newPipelineFixture(t, checker, LintNormal)

	require.NoError(t, fx.pipeline.Run(context.Background()))
	<-fx.pipeline.FirstRound()

	assert.Empty(t, fx.source.fetched, "tainted round must not fetch")
	assert.Equal(t, 0, *fx.armed)
	assert.Equal(t, 0, fx.linter.Runs())

	entries, err := os.ReadDir(fx.staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDuplicateIntents_PublishOnce(t *testing.T) {
	checker := &fakeChecker{script: runOneRound("/out", false, "/out/a.js", "/out/a.js", "/out/a.js")}
	fx := newPipelineFixture(t, checker, LintNever)

	require.NoError(t, fx.pipeline.Run(context.Background()))

	assert.Equal(t, []string{"a.js"}, fx.source.fetched)
}

func TestPartialFetchFailure_DoesNotAffectSiblings(t *testing.T) {
	checker := &fakeChecker{script: runOneRound("/out", false, "/out/a.js", "/out/b.js")}
	fx := newPipelineFixture(t, checker, LintNever)
	delete(fx.source.bodies, "a.js") // a.js now 404s

	require.NoError(t, fx.pipeline.Run(context.Background()))

	_, err := os.Stat(filepath.Join(fx.staging, "a.js"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(fx.staging, "b.js"))
	assert.NoError(t, err, "b.js publishes despite a.js failing")
	assert.Equal(t, 1, *fx.armed)
}

func TestEmitOutsideRound_LoggedNotFatal(t *testing.T) {
	checker := &fakeChecker{script: func(_ ports.WatchHost, hooks ports.CheckerHooks) {
		hooks.EmitFile("/out/orphan.js") // before any round start
		hooks.RoundStarted("/out")
		hooks.RoundCompleted()
	}}
	fx := newPipelineFixture(t, checker, LintNever)

	require.NoError(t, fx.pipeline.Run(context.Background()))
	assert.Empty(t, fx.source.fetched, "orphan emit must not publish")
}

func TestRapidRounds_NoStateLeak(t *testing.T) {
	checker := &fakeChecker{script: func(_ ports.WatchHost, hooks ports.CheckerHooks) {
		// Round N: fails with an intent buffered.
		hooks.RoundStarted("/out")
		hooks.EmitFile("/out/stale.js")
		hooks.Diagnostic(ports.Diagnostic{Severity: ports.SeverityError})
		hooks.RoundCompleted()
		// Round N+1: clean, different file.
		hooks.RoundStarted("/out")
		hooks.EmitFile("/out/b.js")
		hooks.RoundCompleted()
	}}
	fx := newPipelineFixture(t, checker, LintNever)

	require.NoError(t, fx.pipeline.Run(context.Background()))

	assert.Equal(t, []string{"b.js"}, fx.source.fetched, "stale intent must not leak into round N+1")
}

func TestCheckerStartupFailure_Propagates(t *testing.T) {
	checker := &fakeChecker{err: errors.New("checker config missing")}
	fx := newPipelineFixture(t, checker, LintNever)

	err := fx.pipeline.Run(context.Background())
	assert.ErrorContains(t, err, "checker config missing")
}

func TestWatchHost_RoutesThroughRouter(t *testing.T) {
	var notified int
	checker := &fakeChecker{script: func(host ports.WatchHost, hooks ports.CheckerHooks) {
		_, err := host.WatchFile("/src/a.ts", func() { notified++ })
		if err != nil {
			panic(err)
		}
	}}
	fx := newPipelineFixture(t, checker, LintNever)

	require.NoError(t, fx.pipeline.Run(context.Background()))

	fx.router.Notify("/src/a.ts")
	assert.Equal(t, 1, notified)
}

func TestWatchHost_DirectoryWatchUnsupported(t *testing.T) {
	var dirErr error
	checker := &fakeChecker{script: func(host ports.WatchHost, hooks ports.CheckerHooks) {
		_, dirErr = host.WatchDirectory("/src", func() {})
	}}
	fx := newPipelineFixture(t, checker, LintNever)

	require.NoError(t, fx.pipeline.Run(context.Background()))
	assert.ErrorIs(t, dirErr, ports.ErrDirWatchUnsupported)
}
