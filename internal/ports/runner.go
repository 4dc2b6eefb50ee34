package ports

import "context"

// TestRunner is the browser test runner, invoked but never introspected.
// Start launches it against its own config file; Stop terminates it.
type TestRunner interface {
	// Start launches the runner. Returns once the process is started
	// (not once tests complete — the runner watches the staging dir).
	Start(ctx context.Context) error

	// Stop terminates the runner and releases resources.
	// Safe to call multiple times and before Start.
	Stop() error
}
