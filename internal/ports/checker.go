// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Pipeline logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"context"
	"errors"
	"io"
)

// Severity classifies a diagnostic emitted by the type checker or linter.
type Severity int

const (
	// SeverityInfo is an informational message (round banners, progress).
	SeverityInfo Severity = iota

	// SeverityWarning is a non-fatal finding.
	SeverityWarning

	// SeverityError is a finding that taints the whole check round.
	SeverityError
)

// Diagnostic is one message from the type checker's watch stream.
type Diagnostic struct {
	Severity Severity
	Code     int    // checker-specific message code (0 = none)
	Path     string // file the diagnostic refers to ("" = global)
	Message  string
}

// CheckerHooks receives the checker's watch-mode event stream. The checker
// delivers all events for one round before starting the next; hooks are
// invoked sequentially from a single goroutine.
type CheckerHooks struct {
	// RoundStarted fires when the checker begins a new check cycle.
	// outDir is the compiler's configured output directory for this round
	// (may change between rounds; emitted paths are rooted under it).
	RoundStarted func(outDir string)

	// Diagnostic fires for every message in the stream, including the
	// round banners that RoundStarted/RoundCompleted are derived from.
	Diagnostic func(d Diagnostic)

	// EmitFile fires for each file the checker would have written.
	// The write is intercepted; absPath never exists on disk.
	EmitFile func(absPath string)

	// RoundCompleted fires when the current cycle's diagnostics are done.
	RoundCompleted func()
}

// ErrDirWatchUnsupported is returned by WatchHost.WatchDirectory: the watch
// bridge tracks individual files only. A file created after watch-mode
// startup requires a full restart to be noticed.
var ErrDirWatchUnsupported = errors.New("directory watching is not supported")

// WatchHost is the watch registration surface the pipeline exposes to the
// checker. The checker registers the files it reads; the host notifies it
// on change so it can re-run a round.
type WatchHost interface {
	// WatchFile registers a callback for changes to exactly path.
	// Registering the same path twice appends a second callback.
	// The returned closer removes this one registration.
	WatchFile(path string, onChange func()) (io.Closer, error)

	// WatchDirectory always returns ErrDirWatchUnsupported.
	WatchDirectory(path string, onChange func()) (io.Closer, error)
}

// Checker runs the external type checker in persistent watch mode.
//
// Watch blocks until ctx is cancelled or the checker terminates. A missing
// checker configuration file is reported as an error before the first round
// (fatal at startup, never mid-stream).
type Checker interface {
	Watch(ctx context.Context, host WatchHost, hooks CheckerHooks) error
}
