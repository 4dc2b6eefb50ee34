package checkproc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dana/stagehand/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost records watch registrations and hands out closers that track
// their own Close calls.
type fakeHost struct {
	registered []string
	closed     *int
}

type fakeCloser struct {
	closed *int
}

func (f *fakeCloser) Close() error {
	*f.closed++
	return nil
}

func (h *fakeHost) WatchFile(path string, onChange func()) (io.Closer, error) {
	h.registered = append(h.registered, path)
	return &fakeCloser{closed: h.closed}, nil
}

func (h *fakeHost) WatchDirectory(string, func()) (io.Closer, error) {
	return nil, ports.ErrDirWatchUnsupported
}

func TestMapSeverity(t *testing.T) {
	assert.Equal(t, ports.SeverityError, mapSeverity("error"))
	assert.Equal(t, ports.SeverityWarning, mapSeverity("warning"))
	assert.Equal(t, ports.SeverityInfo, mapSeverity("info"))
	assert.Equal(t, ports.SeverityInfo, mapSeverity("bogus"))
}

func TestDispatch_RoutesEvents(t *testing.T) {
	var started []string
	var diags []ports.Diagnostic
	var emits []string
	var completed int

	s := &watchSession{
		hooks: ports.CheckerHooks{
			RoundStarted:   func(outDir string) { started = append(started, outDir) },
			Diagnostic:     func(d ports.Diagnostic) { diags = append(diags, d) },
			EmitFile:       func(p string) { emits = append(emits, p) },
			RoundCompleted: func() { completed++ },
		},
		log:     slog.Default(),
		closers: make(map[string][]io.Closer),
	}

	s.dispatch(&event{Kind: "roundStart", OutDir: "/out"})
	s.dispatch(&event{Kind: "diagnostic", Severity: "error", Code: 2304, Path: "src/a.ts", Message: "cannot find name"})
	s.dispatch(&event{Kind: "emit", Path: "/out/a.js"})
	s.dispatch(&event{Kind: "roundComplete"})
	s.dispatch(&event{Kind: "mystery"}) // unknown kinds are skipped

	assert.Equal(t, []string{"/out"}, started)
	require.Len(t, diags, 1)
	assert.Equal(t, ports.SeverityError, diags[0].Severity)
	assert.Equal(t, 2304, diags[0].Code)
	assert.Equal(t, []string{"/out/a.js"}, emits)
	assert.Equal(t, 1, completed)
}

func TestDispatch_WatchAndUnwatchStack(t *testing.T) {
	closed := 0
	host := &fakeHost{closed: &closed}
	s := &watchSession{
		host:    host,
		log:     slog.Default(),
		closers: make(map[string][]io.Closer),
	}

	s.dispatch(&event{Kind: "watch", Path: "/src/a.ts"})
	s.dispatch(&event{Kind: "watch", Path: "/src/a.ts"})
	assert.Equal(t, []string{"/src/a.ts", "/src/a.ts"}, host.registered)

	s.dispatch(&event{Kind: "unwatch", Path: "/src/a.ts"})
	assert.Equal(t, 1, closed, "unwatch drops exactly one registration")

	s.dispatch(&event{Kind: "unwatch", Path: "/src/a.ts"})
	assert.Equal(t, 2, closed)

	// Unwatch with nothing registered is logged, not fatal.
	s.dispatch(&event{Kind: "unwatch", Path: "/src/a.ts"})
	assert.Equal(t, 2, closed)
}

func TestWatch_MissingConfigIsFatalBeforeSpawn(t *testing.T) {
	c := New(Config{
		ConfigPath: filepath.Join(t.TempDir(), "absent.json"),
		Command:    []string{"sh", "-c", "exit 0"},
	})

	err := c.Watch(context.Background(), &fakeHost{closed: new(int)}, ports.CheckerHooks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checker config")
}

func TestWatch_StreamsOneRound(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{}"), 0644))

	script := `
printf '%s\n' '{"kind":"roundStart","outDir":"/out"}'
printf '%s\n' '{"kind":"diagnostic","severity":"info","message":"starting"}'
printf '%s\n' 'not json at all'
printf '%s\n' '{"kind":"emit","path":"/out/a.js"}'
printf '%s\n' '{"kind":"roundComplete"}'
`
	c := New(Config{
		ConfigPath: cfgPath,
		Command:    []string{"sh", "-c", script},
	})

	var emits []string
	var completed int
	hooks := ports.CheckerHooks{
		EmitFile:       func(p string) { emits = append(emits, p) },
		RoundCompleted: func() { completed++ },
	}

	err := c.Watch(context.Background(), &fakeHost{closed: new(int)}, hooks)
	require.NoError(t, err)

	assert.Equal(t, []string{"/out/a.js"}, emits, "malformed line skipped, emit delivered")
	assert.Equal(t, 1, completed)
}

func TestWatch_ClosesRegistrationsOnExit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{}"), 0644))

	script := `printf '%s\n' '{"kind":"watch","path":"/src/a.ts"}'`
	c := New(Config{
		ConfigPath: cfgPath,
		Command:    []string{"sh", "-c", script},
	})

	closed := 0
	host := &fakeHost{closed: &closed}
	require.NoError(t, c.Watch(context.Background(), host, ports.CheckerHooks{}))

	assert.Equal(t, []string{"/src/a.ts"}, host.registered)
	assert.Equal(t, 1, closed, "registrations released when watch mode ends")
}
