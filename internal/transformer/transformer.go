package transformer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flowdown/flowdown"
)

type TransformOptions struct {
	// The mode for the writer instance
	WriterMode flowdown.WriteMode
	// If true, no backup of an existing compiled file will be created
	NoBackup bool
	// If true, a frontmatter `output` key is required, otherwise the output
	// path is derived from the source path
	RequireFrontmatterOutput bool
}

func (t *TransformOptions) Pretty() string {
	return fmt.Sprintf("mode=%s backup=%s require_output=%s",
		writerModeToString(t.WriterMode),
		boolToText(!t.NoBackup),
		boolToText(t.RequireFrontmatterOutput))
}

func writerModeToString(mode flowdown.WriteMode) string {
	switch mode {
	case flowdown.ModeYAML:
		return "YAML"
	case flowdown.ModeJSON:
		return "JSON"
	default:
		return fmt.Sprintf("Mode(%d)", mode)
	}
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Transformer drives the parse -> backup -> write pipeline for a single
// workflow document
type Transformer struct {
	parser *flowdown.Parser
	writer *flowdown.Writer
	backup *flowdown.BackupManager

	opts TransformOptions
}

// NewTransformer creates a new Transformer instance with the specified
// options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	return &Transformer{
		parser: flowdown.NewParser(),
		writer: flowdown.NewWriter(opts.WriterMode),
		backup: flowdown.NewBackupManager(),
		opts:   opts,
	}
}

type DocumentSource struct {
	Content  io.Reader
	Metadata flowdown.MetaData
}

// Transform compiles a workflow document and writes the IR next to it,
// returning the absolute output path
func (t *Transformer) Transform(input DocumentSource) (string, error) {
	return t.transform(input, "")
}

// TransformToPath compiles a workflow document to a caller-chosen path,
// bypassing the usual source-derived output resolution
func (t *Transformer) TransformToPath(input DocumentSource, outputPath string) (string, error) {
	if outputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	return t.transform(input, outputPath)
}

func (t *Transformer) transform(input DocumentSource, forcedPath string) (string, error) {
	slog.Debug("transforming document", "path", input.Metadata.AbsSource)
	if input.Metadata.AbsSource == "" {
		return "", fmt.Errorf("abs source metadata is required for transformation")
	}

	doc, err := t.parser.ParseWorkflowDoc(input.Content, input.Metadata)
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	for _, w := range doc.Warnings {
		slog.Warn("parse warning", "path", input.Metadata.Source, "line", w.Line, "message", w.Message)
	}

	var absOutPath string
	if forcedPath != "" {
		absOutPath = forcedPath
	} else {
		if t.opts.RequireFrontmatterOutput {
			if _, ok := doc.Frontmatter["output"].(string); !ok {
				return "", fmt.Errorf("frontmatter key 'output' is required for transformation")
			}
		}
		absOutPath, err = flowdown.ResolveOutputPath(input.Metadata.AbsSource, doc.Frontmatter, t.opts.WriterMode)
		if err != nil {
			return "", fmt.Errorf("resolve output path error: %w", err)
		}
	}

	var bkPath string
	if !t.opts.NoBackup {
		bkPath, err = t.backup.CreateBackupOf(absOutPath)
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
	}

	if bkPath != "" {
		slog.Info("file already existed. Created backup", "backup", bkPath, "original", absOutPath)
	}

	if err := os.MkdirAll(filepath.Dir(absOutPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(absOutPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	metadata := flowdown.WriterMetadata{
		Version:   flowdown.VERSION,
		AbsSource: input.Metadata.AbsSource,
		Generated: time.Now().Format(time.RFC3339),
	}
	if err := t.writer.WriteHeader(out, metadata); err != nil {
		return "", fmt.Errorf("write header error: %w", err)
	}

	if err := t.writer.WriteContent(doc, out); err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}

	return absOutPath, nil
}
