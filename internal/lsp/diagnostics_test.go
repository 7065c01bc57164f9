package lsp

import (
	"testing"

	"github.com/flowdown/flowdown"
	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/require"
)

func TestDiagnoseValidDocumentIsClean(t *testing.T) {
	s := NewDiagnosticsService(flowdown.NewParser())

	diags := s.Diagnose("## Steps\n\n### go\n\nRun.\n", "test.flow.md")
	require.Empty(t, diags)
}

func TestDiagnoseReportsSingleError(t *testing.T) {
	s := NewDiagnosticsService(flowdown.NewParser())

	// duplicate identifier on line 7
	diags := s.Diagnose("## Steps\n\n### go\n\nRun.\n\n### go\n\nAgain.\n", "test.flow.md")
	require.Len(t, diags, 1)

	d := diags[0]
	require.Equal(t, lsp.Error, d.Severity)
	require.Equal(t, "flowdown", d.Source)
	require.Equal(t, 6, d.Range.Start.Line, "diagnostics are zero-indexed")
	require.Contains(t, d.Message, `"go"`)
}

func TestDiagnoseReportsWarnings(t *testing.T) {
	s := NewDiagnosticsService(flowdown.NewParser())

	diags := s.Diagnose("## Input\n\nDocs.\n\n## Steps\n\n### go\n\nRun.\n", "test.flow.md")
	require.Len(t, diags, 1)

	d := diags[0]
	require.Equal(t, lsp.DiagnosticSeverity(lsp.Warning), d.Severity)
	require.Equal(t, 0, d.Range.Start.Line)
	require.Contains(t, d.Message, "Inputs")
}
