package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flowdown/flowdown"
	iLsp "github.com/flowdown/flowdown/internal/lsp"
	"github.com/flowdown/flowdown/internal/lsp/server"
	"github.com/sourcegraph/jsonrpc2"
)

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".flowdown")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "flowdown-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "flowdown-ls-*.log")
}

func main() {
	var debug bool
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("starting flowdown-ls", "logfile", logFile.Name())

	diagnostics := iLsp.NewDiagnosticsService(flowdown.NewParser())

	ctx := context.Background()

	s, err := server.NewServer(server.Options{Diagnostics: diagnostics})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	<-jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(server.NewStdRWC(), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()
}
