package server

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/flowdown/flowdown"
	iLsp "github.com/flowdown/flowdown/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Options{
		Diagnostics: iLsp.NewDiagnosticsService(flowdown.NewParser()),
	})
	require.NoError(t, err)
	return s
}

func request(t *testing.T, method string, params any) *jsonrpc2.Request {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	msg := json.RawMessage(raw)
	return &jsonrpc2.Request{Method: method, Params: &msg}
}

func TestInitializeAdvertisesFullSync(t *testing.T) {
	s := newTestServer(t)

	result, err := s.Handle(context.Background(), nil, request(t, "initialize", lsp.InitializeParams{}))
	require.NoError(t, err)

	initResult, ok := result.(lsp.InitializeResult)
	require.True(t, ok, "expected InitializeResult, got %T", result)
	require.NotNil(t, initResult.Capabilities.TextDocumentSync)
	require.Equal(t, lsp.TDSKFull, *initResult.Capabilities.TextDocumentSync.Kind)
}

func TestDidOpenWithoutConnDoesNotPanic(t *testing.T) {
	s := newTestServer(t)

	params := lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:  "file:///tmp/test.flow.md",
			Text: "## Steps\n\n### go\n\nRun.\n",
		},
	}

	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", params))
	require.NoError(t, err)
}

func TestCanceledRequestIsDropped(t *testing.T) {
	s := newTestServer(t)

	id := jsonrpc2.ID{Num: 7}
	_, err := s.Handle(context.Background(), nil, request(t, "$/cancelRequest", map[string]any{"id": 7}))
	require.NoError(t, err)

	req := request(t, "initialize", lsp.InitializeParams{})
	req.ID = id
	result, err := s.Handle(context.Background(), nil, req)
	require.NoError(t, err)
	require.Nil(t, result, "canceled request should produce no result")
}

func TestUnknownMethodIsIgnored(t *testing.T) {
	s := newTestServer(t)

	result, err := s.Handle(context.Background(), nil, request(t, "textDocument/hover", lsp.TextDocumentPositionParams{}))
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestStdRWCCloseLeavesStreamsOpen(t *testing.T) {
	var rwc io.ReadWriteCloser = NewStdRWC()
	require.NoError(t, rwc.Close())
	require.NoError(t, rwc.Close(), "close must stay safe to call twice")
}
