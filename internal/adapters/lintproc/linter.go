// Package lintproc implements the ports.Linter interface by executing the
// external lint engine as a batch subprocess. One Lint call is one process
// run: the file patterns go on the command line, the report comes back as
// JSON on stdout. A nonzero exit with a parseable report means findings,
// not failure — lint engines conventionally exit 1 when rules fire.
package lintproc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/dana/stagehand/internal/ports"
)

// Linter implements ports.Linter over a subprocess.
type Linter struct {
	command []string
	log     *slog.Logger
}

// New creates a Linter running command with the lint patterns appended.
func New(command []string, log *slog.Logger) *Linter {
	if log == nil {
		log = slog.Default()
	}
	return &Linter{command: command, log: log}
}

// wireFile mirrors the engine's JSON report schema: an array of per-file
// entries with numeric severities (1 = warning, 2 = error).
type wireFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		Line     int    `json:"line"`
		Column   int    `json:"column"`
		Severity int    `json:"severity"`
		RuleID   string `json:"ruleId"`
		Message  string `json:"message"`
	} `json:"messages"`
}

// Lint runs the engine against patterns and parses its report.
func (l *Linter) Lint(ctx context.Context, patterns []string) (*ports.LintReport, error) {
	if len(l.command) == 0 {
		return nil, fmt.Errorf("no lint command configured")
	}

	args := append(append([]string{}, l.command[1:]...), patterns...)
	cmd := exec.CommandContext(ctx, l.command[0], args...)
	cmd.Stderr = os.Stderr

	out, runErr := cmd.Output()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || len(out) == 0 {
			return nil, fmt.Errorf("lint command: %w", runErr)
		}
		// Findings exit — fall through and parse the report.
	}

	var files []wireFile
	if err := json.Unmarshal(out, &files); err != nil {
		return nil, fmt.Errorf("parse lint report: %w", err)
	}

	return buildReport(files), nil
}

// buildReport converts the wire schema to the port's report, tallying
// severities as it goes.
func buildReport(files []wireFile) *ports.LintReport {
	report := &ports.LintReport{}
	for _, f := range files {
		fr := ports.LintFileResult{Path: f.FilePath}
		for _, m := range f.Messages {
			sev := ports.SeverityWarning
			if m.Severity >= 2 {
				sev = ports.SeverityError
				report.ErrorCount++
			} else {
				report.WarningCount++
			}
			fr.Messages = append(fr.Messages, ports.LintMessage{
				Line:     m.Line,
				Column:   m.Column,
				Severity: sev,
				RuleID:   m.RuleID,
				Message:  m.Message,
			})
		}
		report.Files = append(report.Files, fr)
	}
	return report
}

// LoadFormatter resolves a builtin report formatter by name.
func (l *Linter) LoadFormatter(name string) (ports.Formatter, error) {
	switch name {
	case "compact":
		return compactFormatter{}, nil
	case "json":
		return jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown lint formatter %q", name)
	}
}
