package flowdown

// VERSION is the toolchain version embedded in generated file headers
const VERSION = "0.1.0"

// Document represents a fully parsed workflow document: the compiled IR
// plus everything the persistence layer needs to store alongside it
// (title, description, frontmatter metadata, verbatim source)
type Document struct {
	// Metadata about the source file
	Metadata MetaData
	// Frontmatter mapping, or nil when the document has no frontmatter block
	Frontmatter map[string]any
	// Workflow title from the leading # heading
	Title string
	// Paragraph-joined prose between the title and the first ## section
	Description string
	// The compiled IR consumed by the downstream compiler
	Workflow Workflow
	// Verbatim document text, as read
	Source string
	// Non-fatal diagnostics accumulated during scanning, in order
	Warnings []Warning
}

type MetaData struct {
	// The source file path
	Source string
	// The absolute source file path, where known (required by the transformer)
	AbsSource string
}

// Workflow is the intermediate mapping: declared inputs, ordered steps,
// declared outputs, and the linear execution chain derived from step order.
type Workflow struct {
	Inputs  []Input  `yaml:"inputs" json:"inputs"`
	Steps   []Step   `yaml:"steps" json:"steps"`
	Outputs []Output `yaml:"outputs" json:"outputs"`
	Edges   []Edge   `yaml:"edges" json:"edges"`
}

// Input is one declared workflow input. Input records are flat: the merged
// property mapping is the record, there is no parameter bag.
type Input struct {
	ID          string         `yaml:"id" json:"id"`
	Description string         `yaml:"description" json:"description"`
	Fields      map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Line of the ### heading that introduced this input
	Line int `yaml:"-" json:"-"`
}

// Step is one execution step. The type and batch properties are promoted out
// of the parameter bag onto dedicated fields; everything else the author
// declares (inline or via code block) lands in Params.
type Step struct {
	ID      string         `yaml:"id" json:"id"`
	Purpose string         `yaml:"purpose" json:"purpose"`
	Type    string         `yaml:"type,omitempty" json:"type,omitempty"`
	Batch   map[string]any `yaml:"batch,omitempty" json:"batch,omitempty"`
	Params  map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	Line int `yaml:"-" json:"-"`
}

// Output is one declared workflow output. The source property (template
// body) is promoted; the rest of the mapping lands in Params.
type Output struct {
	ID          string         `yaml:"id" json:"id"`
	Description string         `yaml:"description" json:"description"`
	Source      string         `yaml:"source,omitempty" json:"source,omitempty"`
	Params      map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	Line int `yaml:"-" json:"-"`
}

// Edge links two consecutive steps. Document order is the only source of
// sequencing information; the chain is always linear.
type Edge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Warning is a non-fatal diagnostic, reported alongside a successful parse
type Warning struct {
	Message string
	// 1-indexed source line
	Line int
}

// SectionKind identifies which of the reserved ## headings a section
// belongs to. Anything unrecognized is opaque documentation.
type SectionKind int

const (
	SectionNone SectionKind = iota
	SectionInputs
	SectionSteps
	SectionOutputs
	SectionOpaque
)

func (k SectionKind) String() string {
	switch k {
	case SectionInputs:
		return "Inputs"
	case SectionSteps:
		return "Steps"
	case SectionOutputs:
		return "Outputs"
	case SectionOpaque:
		return "opaque"
	default:
		return "none"
	}
}
