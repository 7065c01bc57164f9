package lsp

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/flowdown/flowdown"
	"github.com/sourcegraph/go-lsp"
)

const diagnosticSource = "flowdown"

// DiagnosticsService turns parse results into LSP diagnostics. The parser
// aborts at the first fatal error, so a document publishes at most one
// error diagnostic, plus any accumulated warnings on success.
type DiagnosticsService struct {
	parser *flowdown.Parser
}

func NewDiagnosticsService(parser *flowdown.Parser) *DiagnosticsService {
	return &DiagnosticsService{parser: parser}
}

// Diagnose parses content and returns the diagnostics to publish for it.
// An empty slice clears previously published diagnostics.
func (s *DiagnosticsService) Diagnose(content, path string) []lsp.Diagnostic {
	doc, err := s.parser.ParseWorkflowDoc(strings.NewReader(content), flowdown.MetaData{
		Source:    path,
		AbsSource: path,
	})
	if err != nil {
		var perr *flowdown.ParseError
		if errors.As(err, &perr) {
			return []lsp.Diagnostic{diagnosticFor(perr.Line, perr.Error(), lsp.Error)}
		}
		slog.Error("unexpected parse failure", "path", path, "error", err)
		return []lsp.Diagnostic{diagnosticFor(1, err.Error(), lsp.Error)}
	}

	diagnostics := make([]lsp.Diagnostic, 0, len(doc.Warnings))
	for _, w := range doc.Warnings {
		diagnostics = append(diagnostics, diagnosticFor(w.Line, w.Message, lsp.Warning))
	}
	return diagnostics
}

func diagnosticFor(line int, message string, severity lsp.DiagnosticSeverity) lsp.Diagnostic {
	if line < 1 {
		line = 1
	}
	pos := lsp.Position{Line: line - 1, Character: 0}
	return lsp.Diagnostic{
		Range:    lsp.Range{Start: pos, End: pos},
		Severity: severity,
		Source:   diagnosticSource,
		Message:  message,
	}
}
