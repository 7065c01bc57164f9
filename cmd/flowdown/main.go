package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowdown/flowdown"
	"github.com/flowdown/flowdown/internal/cli"
	"github.com/flowdown/flowdown/internal/docgen"
	"github.com/flowdown/flowdown/internal/transformer"
)

func main() {
	var (
		inPath   string
		format   string
		docsPath string
		watch    bool
		noBackup bool
		debug    bool
	)
	flag.StringVar(&inPath, "in", "", "Input workflow document or directory")
	flag.StringVar(&format, "format", "yaml", "Output format: yaml or json")
	flag.StringVar(&docsPath, "docs", "", "Also render an HTML documentation page to this path (single file input only)")
	flag.BoolVar(&watch, "watch", false, "Watch the input directory and recompile on change")
	flag.BoolVar(&noBackup, "no-backup", false, "Do not back up existing compiled files before overwriting")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if inPath == "" {
		fmt.Println("Please provide an input file or directory with -in")
		os.Exit(1)
	}

	mode := flowdown.ModeYAML
	switch format {
	case "yaml":
	case "json":
		mode = flowdown.ModeJSON
	default:
		fmt.Printf("Unknown format %q, expected yaml or json\n", format)
		os.Exit(1)
	}

	opts := transformer.TransformOptions{
		WriterMode: mode,
		NoBackup:   noBackup,
	}
	processor := cli.NewProcessor(opts)

	results, err := processor.ProcessPath(inPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, r := range results {
		fmt.Printf("Compiled %s to %s\n", r.Path, r.OutPath)
	}

	if docsPath != "" {
		if err := renderDocs(inPath, docsPath); err != nil {
			fmt.Printf("Error rendering docs: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered docs to %s\n", docsPath)
	}

	if watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := processor.Watch(ctx, inPath); err != nil && ctx.Err() == nil {
			fmt.Printf("Watch error: %v\n", err)
			os.Exit(1)
		}
	}
}

func renderDocs(inPath, docsPath string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	parser := flowdown.NewParser()
	doc, err := parser.ParseWorkflowDoc(f, flowdown.MetaData{
		Source:    inPath,
		AbsSource: flowdown.MustAbs(inPath),
	})
	if err != nil {
		return err
	}

	out, err := os.Create(docsPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return docgen.NewRenderer().Render(doc, out)
}
