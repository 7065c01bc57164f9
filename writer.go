package flowdown

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteMode selects the serialization format for compiled IR
type WriteMode int

const (
	// ModeYAML writes the IR as YAML with a generated-file header comment
	ModeYAML WriteMode = iota
	// ModeJSON writes the IR as indented JSON, no header
	ModeJSON
)

// WriterMetadata is the provenance stamped into the generated file header
type WriterMetadata struct {
	Version   string
	AbsSource string
	Generated string
}

// Writer serializes a parsed document's compiled IR for the downstream
// compiler. The document text itself is never regenerated; the IR is the
// only output.
type Writer struct {
	mode WriteMode
}

func NewWriter(mode WriteMode) *Writer {
	return &Writer{mode: mode}
}

// WriteHeader writes the provenance header. JSON has no comment syntax, so
// in ModeJSON this is a no-op.
func (w *Writer) WriteHeader(out io.Writer, md WriterMetadata) error {
	if w.mode != ModeYAML {
		return nil
	}
	_, err := fmt.Fprintf(out, "# Generated by flowdown %s\n# Source: %s\n# Generated: %s\n",
		md.Version, md.AbsSource, md.Generated)
	return err
}

// WriteContent serializes the compiled workflow IR
func (w *Writer) WriteContent(doc *Document, out io.Writer) error {
	switch w.mode {
	case ModeYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(irEnvelope(doc)); err != nil {
			return fmt.Errorf("encoding workflow: %w", err)
		}
		return enc.Close()
	case ModeJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(irEnvelope(doc)); err != nil {
			return fmt.Errorf("encoding workflow: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown write mode %d", w.mode)
	}
}

// compiledIR is the on-disk shape of a compiled document: title and
// description ride along so the downstream compiler never has to re-open
// the source document
type compiledIR struct {
	Title       string   `yaml:"title,omitempty" json:"title,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Workflow    Workflow `yaml:"workflow" json:"workflow"`
}

func irEnvelope(doc *Document) compiledIR {
	return compiledIR{
		Title:       doc.Title,
		Description: doc.Description,
		Workflow:    doc.Workflow,
	}
}
