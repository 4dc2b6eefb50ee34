package lintproc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dana/stagehand/internal/ports"
)

// compactFormatter renders one line per finding plus a summary:
//
//	src/a.ts:3:7 error no-unused-vars 'x' is declared but never used
//	1 error, 0 warnings
type compactFormatter struct{}

func (compactFormatter) Format(report *ports.LintReport) (string, error) {
	var b strings.Builder
	for _, f := range report.Files {
		for _, m := range f.Messages {
			sev := "warning"
			if m.Severity == ports.SeverityError {
				sev = "error"
			}
			fmt.Fprintf(&b, "%s:%d:%d %s %s %s\n", f.Path, m.Line, m.Column, sev, m.RuleID, m.Message)
		}
	}
	if report.ErrorCount == 0 && report.WarningCount == 0 {
		return "lint clean", nil
	}
	fmt.Fprintf(&b, "%d errors, %d warnings", report.ErrorCount, report.WarningCount)
	return b.String(), nil
}

// jsonFormatter re-emits the report as indented JSON for tooling.
type jsonFormatter struct{}

func (jsonFormatter) Format(report *ports.LintReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal lint report: %w", err)
	}
	return string(data), nil
}
