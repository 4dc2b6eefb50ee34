// Package round implements the check-cycle state machine. One Round value
// tracks exactly one type-check cycle at a time: the sticky error flag and
// the set of write intents the checker emitted during the cycle.
//
// All transitions happen under a single mutex, so round state can never be
// observed mid-transition and round N's completion fully drains state
// before round N+1 starts accumulating.
package round

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNoActiveRound is returned by AddIntent when no round is running.
// A write intent outside a round is a protocol violation by the checker;
// callers log it and carry on rather than crash.
var ErrNoActiveRound = errors.New("write intent outside a running round")

// Outcome is the result of one completed round.
type Outcome struct {
	// OK is true when the round produced no error diagnostics.
	OK bool

	// Intents holds each distinct emitted path, relative to OutDir, in
	// sorted order. Empty unless OK — a tainted round's intents are
	// discarded.
	Intents []string

	// Discarded counts the intents dropped because the round failed.
	Discarded int

	// OutDir is the compiler output directory captured at round start.
	OutDir string
}

// Round is the per-cycle state machine: Idle → Running → Idle.
// The zero value is an idle round, ready for Start.
type Round struct {
	mu       sync.Mutex
	running  bool
	hasError bool
	outDir   string
	intents  map[string]struct{}
}

// New returns an idle round.
func New() *Round {
	return &Round{}
}

// Start begins a new cycle: clears the error flag and intent set and
// captures outDir for path normalization. The output directory can change
// between rounds when the checker reloads its configuration, so it is
// re-captured every cycle.
func (r *Round) Start(outDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = true
	r.hasError = false
	r.outDir = outDir
	r.intents = make(map[string]struct{})
}

// MarkError taints the current round. Sticky: one error taints the whole
// round regardless of later messages. Harmless when idle.
func (r *Round) MarkError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasError = true
}

// AddIntent records an emitted path. Set semantics: repeated writes of the
// same path within one round collapse to one entry. Returns
// ErrNoActiveRound when called while idle.
func (r *Round) AddIntent(absPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNoActiveRound
	}
	r.intents[absPath] = struct{}{}
	return nil
}

// Running reports whether a cycle is in progress.
func (r *Round) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Complete ends the cycle and resets to idle. The outcome carries the
// normalized intent paths only when the round was clean; a tainted round
// reports how many intents were discarded instead.
func (r *Round) Complete() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Outcome{
		OK:     !r.hasError,
		OutDir: r.outDir,
	}

	if out.OK {
		out.Intents = make([]string, 0, len(r.intents))
		for p := range r.intents {
			out.Intents = append(out.Intents, normalize(p, r.outDir))
		}
		sort.Strings(out.Intents)
	} else {
		out.Discarded = len(r.intents)
	}

	r.running = false
	r.hasError = false
	r.intents = nil
	return out
}

// normalize strips the output-directory prefix from an emitted path. Paths
// outside outDir (or with no outDir configured) pass through unchanged.
func normalize(absPath, outDir string) string {
	if outDir == "" {
		return absPath
	}
	rel, err := filepath.Rel(outDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}
