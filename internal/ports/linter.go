package ports

import "context"

// LintMessage is a single finding within one linted file.
type LintMessage struct {
	Line     int
	Column   int
	Severity Severity
	RuleID   string
	Message  string
}

// LintFileResult groups the findings for one file.
type LintFileResult struct {
	Path     string
	Messages []LintMessage
}

// LintReport is the outcome of one batch lint run.
type LintReport struct {
	Files        []LintFileResult
	ErrorCount   int
	WarningCount int
}

// Formatter renders a lint report for terminal output.
type Formatter interface {
	Format(report *LintReport) (string, error)
}

// Linter is the batch interface to the external lint engine.
// One Lint call per completed check round; the caller serializes.
type Linter interface {
	// Lint evaluates the configured rules against files matching patterns.
	// A non-nil error means the lint run itself failed (not that findings
	// exist — findings are in the report).
	Lint(ctx context.Context, patterns []string) (*LintReport, error)

	// LoadFormatter resolves a report formatter by name.
	LoadFormatter(name string) (Formatter, error)
}
