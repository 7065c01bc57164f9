package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"sync"

	iLsp "github.com/flowdown/flowdown/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// Server is the flowdown language server. It parses workflow documents on
// open/change/save and publishes the resulting diagnostics. Unlike editors'
// usual setup there is no downstream language server to proxy: this process
// is the authority for .flow.md files.
type Server struct {
	conn *jsonrpc2.Conn

	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	trackRequestCount sync.Map

	diagnostics *iLsp.DiagnosticsService
}

type Options struct {
	Diagnostics *iLsp.DiagnosticsService
}

func NewServer(options Options) (*Server, error) {
	return &Server{
		diagnostics: options.Diagnostics,
	}, nil
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Info("received request", "method", req.Method, "id", req.ID)
	reqCount, _ := s.trackRequestCount.LoadOrStore(req.Method, 1)
	if count, ok := reqCount.(int); ok {
		s.trackRequestCount.Store(req.Method, count+1)
	}

	if _, ok := s.cancelMap.Load(req.ID.String()); ok {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		var initParams lsp.InitializeParams
		if err := json.Unmarshal(*req.Params, &initParams); err != nil {
			return nil, err
		}

		kind := lsp.TDSKFull
		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Kind: &kind,
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		s.printDebugStats()
		return nil, nil

	case "exit":
		slog.Info("exiting")
		os.Exit(0)
		return nil, nil

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.publishFor(ctx, params.TextDocument.URI, params.TextDocument.Text)
		return nil, nil

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		// full sync, the last change carries the whole document
		if len(params.ContentChanges) > 0 {
			s.publishFor(ctx, params.TextDocument.URI, params.ContentChanges[len(params.ContentChanges)-1].Text)
		}
		return nil, nil

	case "textDocument/didSave":
		// full sync means didChange already re-published diagnostics
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		// clear diagnostics for closed documents
		s.sendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []lsp.Diagnostic{},
		})
		return nil, nil

	case "$/cancelRequest":
		var params struct {
			ID jsonrpc2.ID `json:"id"`
		}
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.cancelMap.Store(params.ID.String(), true)
		return nil, nil

	default:
		slog.Debug("ignoring unsupported method", "method", req.Method)
		return nil, nil
	}
}

func (s *Server) publishFor(ctx context.Context, uri lsp.DocumentURI, text string) {
	diagnostics := s.diagnostics.Diagnose(text, uriToPath(uri))
	s.sendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *Server) sendDiagnostics(ctx context.Context, params lsp.PublishDiagnosticsParams) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		slog.Error("failed to publish diagnostics", "uri", params.URI, "error", err)
	}
}

// uriToPath converts a file:// URI to a filesystem path, falling back to
// the raw URI when it does not parse
func uriToPath(uri lsp.DocumentURI) string {
	parsed, err := url.Parse(string(uri))
	if err != nil || parsed.Scheme != "file" {
		return string(uri)
	}
	return parsed.Path
}

func (s *Server) printDebugStats() {
	s.trackRequestCount.Range(func(key, value any) bool {
		slog.Debug("request count", "method", key, "count", value)
		return true
	})
}
