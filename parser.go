package flowdown

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var idRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// typeLineRegex spots an inline `- type:` property inside a collected
// fragment before the fragment batch is parsed, so bare-block hints can
// reference the declared step type
var typeLineRegex = regexp.MustCompile(`^-\s+type:\s*["']?([^"']+?)["']?\s*$`)

// Parser turns workflow document text into its compiled IR. It is stateless
// and safe for concurrent use; all per-parse state lives on the scanner.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseWorkflowDoc parses a workflow document into its constituent parts:
// frontmatter, title, description, and the compiled workflow IR.
//
// On failure the returned error is a *ParseError carrying the 1-indexed
// offending line and, where applicable, a remediation hint. No partial
// document is ever returned.
func (p *Parser) ParseWorkflowDoc(r io.Reader, md MetaData) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc, perr := p.parse(string(content))
	if perr != nil {
		return nil, perr
	}
	doc.Metadata = md
	return doc, nil
}

// scanState is the structural scanner's position in the document grammar
type scanState int

const (
	seekingTitle scanState = iota
	titleProse
	inSection
	inEntity
	inCodeBlock
)

// entityState accumulates everything belonging to one ### heading until the
// next heading of level <= 3 (or end of document) finalizes it
type entityState struct {
	id      string
	line    int
	section SectionKind

	prose    proseBuilder
	frags    []propertyFragment
	openFrag *propertyFragment
	blocks   []*fence
}

// typeHint returns the step type declared so far, if any. Fragments are not
// parsed until the entity closes, so this reads the raw `- type:` line.
func (e *entityState) typeHint() string {
	for _, f := range e.frags {
		if m := typeLineRegex.FindStringSubmatch(dedent(f.lines[0], f.indent)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if e.openFrag != nil {
		if m := typeLineRegex.FindStringSubmatch(dedent(e.openFrag.lines[0], e.openFrag.indent)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

type scanner struct {
	doc *Document

	state scanState
	// state to restore when the open fence closes
	prevState scanState

	fence *fence
	// fence content is discarded when the block opened outside an entity
	fenceDiscard bool

	section     SectionKind
	sectionSeen map[SectionKind]int
	stepsLine   int

	entity  *entityState
	seenIDs map[SectionKind]map[string]bool

	titleSeen bool
	descProse proseBuilder
}

func (p *Parser) parse(text string) (*Document, *ParseError) {
	doc := &Document{Source: text}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	meta, consumed, perr := extractFrontmatter(lines)
	if perr != nil {
		return nil, perr
	}
	doc.Frontmatter = meta

	s := &scanner{
		doc:         doc,
		state:       seekingTitle,
		sectionSeen: map[SectionKind]int{},
		seenIDs: map[SectionKind]map[string]bool{
			SectionInputs:  {},
			SectionSteps:   {},
			SectionOutputs: {},
		},
	}

	for i := consumed; i < len(lines); i++ {
		if perr := s.scanLine(lines[i], i+1); perr != nil {
			return nil, perr
		}
	}

	return s.finish()
}

func (s *scanner) scanLine(line string, n int) *ParseError {
	// inside a code block only a closing fence matters, everything else is
	// verbatim content
	if s.state == inCodeBlock {
		if s.fence.closes(line) {
			if !s.fenceDiscard {
				s.entity.blocks = append(s.entity.blocks, s.fence)
			}
			s.fence = nil
			s.state = s.prevState
			return nil
		}
		if !s.fenceDiscard {
			s.fence.content = append(s.fence.content, line)
		}
		return nil
	}

	// an open property fragment swallows anything indented deeper than its
	// dash, which is how nested mappings and block scalars stay intact
	if s.state == inEntity && s.entity.openFrag != nil {
		if s.entity.openFrag.continues(line) {
			s.entity.openFrag.append(line, n)
			return nil
		}
		s.entity.frags = append(s.entity.frags, *s.entity.openFrag)
		s.entity.openFrag = nil
	}

	f, perr := parseFence(line, n)
	if perr != nil {
		return perr
	}
	if f != nil {
		return s.openFence(f, n)
	}

	if level, text, ok := parseHeading(line); ok {
		return s.heading(level, text, n)
	}

	if isBlank(line) {
		s.blankLine()
		return nil
	}

	if s.state == inEntity && isPropertyLine(line) {
		frag := newPropertyFragment(line, n)
		s.entity.openFrag = &frag
		return nil
	}

	s.proseLine(line)
	return nil
}

func (s *scanner) openFence(f *fence, n int) *ParseError {
	switch s.state {
	case inEntity:
		if f.target == "" {
			return bareBlockError(n, s.entity.typeHint())
		}
		s.fenceDiscard = false
	case inSection:
		if s.section != SectionOpaque {
			return structuralErr(n, "code block outside of an entity").
				withHint("code blocks belong under a ### heading")
		}
		s.fenceDiscard = true
	default:
		// title/description region: the block is tracked for line accounting
		// but contributes nothing to the prose
		s.fenceDiscard = true
	}

	s.prevState = s.state
	s.fence = f
	s.state = inCodeBlock
	return nil
}

func (s *scanner) heading(level int, text string, n int) *ParseError {
	switch level {
	case 1:
		if s.titleSeen || s.state != seekingTitle && s.state != titleProse {
			return structuralErr(n, "a # title must be the first heading of the document")
		}
		s.doc.Title = text
		s.titleSeen = true
		s.state = titleProse
		return nil

	case 2:
		if perr := s.closeEntity(); perr != nil {
			return perr
		}
		return s.openSection(text, n)

	case 3:
		if perr := s.closeEntity(); perr != nil {
			return perr
		}
		switch {
		case s.section == SectionOpaque:
			// sub-headings inside documentation sections are scanned and
			// discarded along with the rest of the section
			return nil
		case s.section == SectionNone:
			return structuralErr(n, "entity %q declared outside a recognized section", text).
				withHint("entities live under ## Inputs, ## Steps or ## Outputs")
		}
		return s.openEntity(text, n)
	}

	// deeper headings never close an entity, they are documentation noise
	return nil
}

func (s *scanner) openSection(name string, n int) *ParseError {
	kind := SectionOpaque
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "inputs":
		kind = SectionInputs
	case "steps":
		kind = SectionSteps
	case "outputs":
		kind = SectionOutputs
	case "input":
		s.nearMissWarning(name, SectionInputs, n)
	case "step":
		s.nearMissWarning(name, SectionSteps, n)
	case "output":
		s.nearMissWarning(name, SectionOutputs, n)
	}

	if kind != SectionOpaque {
		if prev, dup := s.sectionSeen[kind]; dup {
			return structuralErr(n, "duplicate ## %s section (first declared on line %d)", kind, prev)
		}
		s.sectionSeen[kind] = n
		if kind == SectionSteps {
			s.stepsLine = n
		}
	}

	s.section = kind
	s.state = inSection
	return nil
}

// nearMissWarning flags a singular form of a reserved section name. The
// section is still treated as opaque documentation.
func (s *scanner) nearMissWarning(name string, want SectionKind, n int) {
	s.doc.Warnings = append(s.doc.Warnings, Warning{
		Message: fmt.Sprintf("unknown section %q, did you mean %q?", strings.TrimSpace(name), "## "+want.String()),
		Line:    n,
	})
}

func (s *scanner) openEntity(text string, n int) *ParseError {
	id := strings.TrimSpace(text)
	if !idRegex.MatchString(id) {
		return semanticErr(n, "invalid identifier %q", id).
			withHint("identifiers are lowercase letters, digits, '_' or '-', starting with a letter")
	}
	if s.seenIDs[s.section][id] {
		return structuralErr(n, "duplicate identifier %q in %s section", id, s.section)
	}
	s.seenIDs[s.section][id] = true

	slog.Debug("opening entity", "id", id, "section", s.section.String(), "line", n)

	s.entity = &entityState{id: id, line: n, section: s.section}
	s.state = inEntity
	return nil
}

func (s *scanner) blankLine() {
	switch s.state {
	case seekingTitle, titleProse:
		s.descProse.breakParagraph()
	case inEntity:
		s.entity.prose.breakParagraph()
	}
}

func (s *scanner) proseLine(line string) {
	switch s.state {
	case seekingTitle, titleProse:
		s.descProse.addLine(line)
	case inEntity:
		s.entity.prose.addLine(line)
	}
	// prose at section level, and everything in opaque sections, is scanned
	// for line accounting but kept out of the IR
}

func (s *scanner) finish() (*Document, *ParseError) {
	if s.fence != nil {
		return nil, syntaxErr(s.fence.line, "unclosed code block")
	}
	if perr := s.closeEntity(); perr != nil {
		return nil, perr
	}

	if s.stepsLine == 0 {
		return nil, structuralErr(1, "missing ## Steps section").
			withHint("every workflow needs a ## Steps section with at least one step")
	}
	if len(s.doc.Workflow.Steps) == 0 {
		return nil, structuralErr(s.stepsLine, "## Steps section has no steps")
	}

	s.doc.Description = s.descProse.join()
	s.doc.Workflow.Edges = chainEdges(s.doc.Workflow.Steps)

	return s.doc, nil
}

// chainEdges derives the linear execution chain from step order. A single
// step yields no edges.
func chainEdges(steps []Step) []Edge {
	var edges []Edge
	for i := 0; i+1 < len(steps); i++ {
		edges = append(edges, Edge{From: steps[i].ID, To: steps[i+1].ID})
	}
	return edges
}

// parseHeading classifies a heading line. Headings must start in column
// zero; the marker needs a following space unless the line is bare hashes.
func parseHeading(line string) (level int, text string, ok bool) {
	if len(line) == 0 || line[0] != '#' {
		return 0, "", false
	}
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	return level, strings.TrimSpace(rest), true
}

// proseBuilder joins prose lines into blank-line-separated paragraphs
type proseBuilder struct {
	paragraphs []string
	current    []string
}

func (p *proseBuilder) addLine(line string) {
	p.current = append(p.current, strings.TrimSpace(line))
}

func (p *proseBuilder) breakParagraph() {
	if len(p.current) > 0 {
		p.paragraphs = append(p.paragraphs, strings.Join(p.current, " "))
		p.current = nil
	}
}

func (p *proseBuilder) join() string {
	p.breakParagraph()
	return strings.Join(p.paragraphs, "\n\n")
}

// closeEntity finalizes the entity under construction, if any: parses its
// property fragments, routes its code blocks, applies field promotion and
// compiles the typed record into the workflow
func (s *scanner) closeEntity() *ParseError {
	e := s.entity
	if e == nil {
		return nil
	}
	s.entity = nil

	if e.openFrag != nil {
		e.frags = append(e.frags, *e.openFrag)
		e.openFrag = nil
	}

	props, perr := parseProperties(e.frags)
	if perr != nil {
		return perr
	}

	prose := e.prose.join()
	if prose == "" {
		noun := map[SectionKind]string{
			SectionInputs:  "input",
			SectionSteps:   "step",
			SectionOutputs: "output",
		}[e.section]
		return semanticErr(e.line, "%s %q has no description", noun, e.id)
	}

	// route code blocks, rejecting any target already defined inline or by
	// an earlier block
	for _, b := range e.blocks {
		if prev, dup := props[b.target]; dup {
			perr := semanticErr(b.line, "duplicate definition of %q on %q", b.target, e.id)
			if bv, ok := prev.(blockValue); ok {
				return perr.withHint("%q is already defined by the %s block on line %d", b.target, bv.fence.String(), bv.fence.line)
			}
			return perr.withHint("%q is defined both inline and by a %s block", b.target, b.String())
		}
		props[b.target] = blockValue{fence: b}
	}

	slog.Debug("compiled entity", "id", e.id, "section", e.section.String(), "properties", len(props))

	switch e.section {
	case SectionInputs:
		return s.compileInput(e, props, prose)
	case SectionSteps:
		return s.compileStep(e, props, prose)
	case SectionOutputs:
		return s.compileOutput(e, props, prose)
	}
	return nil
}

// blockValue wraps fenced content inside the merged property mapping so the
// compile passes can tell block-sourced values from inline YAML values
type blockValue struct {
	fence *fence
}

// resolveBag converts every remaining blockValue into its raw string
// content, returning nil for an empty bag
func resolveBag(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	for k, v := range props {
		if bv, ok := v.(blockValue); ok {
			props[k] = bv.fence.raw()
		}
	}
	return props
}

func (s *scanner) compileInput(e *entityState, props map[string]any, prose string) *ParseError {
	s.doc.Workflow.Inputs = append(s.doc.Workflow.Inputs, Input{
		ID:          e.id,
		Description: prose,
		Fields:      resolveBag(props),
		Line:        e.line,
	})
	return nil
}

func (s *scanner) compileStep(e *entityState, props map[string]any, prose string) *ParseError {
	step := Step{ID: e.id, Purpose: prose, Line: e.line}

	if v, ok := props[propType]; ok {
		typ, isStr := v.(string)
		if !isStr {
			return semanticErr(e.line, "step %q: type must be a string", e.id)
		}
		step.Type = typ
		delete(props, propType)
	}

	if v, ok := props[targetBatch]; ok {
		batch, perr := batchMapping(v, e)
		if perr != nil {
			return perr
		}
		step.Batch = batch
		delete(props, targetBatch)
	}

	step.Params = resolveBag(props)
	s.doc.Workflow.Steps = append(s.doc.Workflow.Steps, step)
	return nil
}

func (s *scanner) compileOutput(e *entityState, props map[string]any, prose string) *ParseError {
	out := Output{ID: e.id, Description: prose, Line: e.line}

	if v, ok := props[targetSource]; ok {
		switch src := v.(type) {
		case string:
			out.Source = src
		case blockValue:
			out.Source = src.fence.raw()
		default:
			return semanticErr(e.line, "output %q: source must be text", e.id)
		}
		delete(props, targetSource)
	}

	out.Params = resolveBag(props)
	s.doc.Workflow.Outputs = append(s.doc.Workflow.Outputs, out)
	return nil
}

// batchMapping normalizes a promoted batch value: inline values must already
// be mappings, block values are parsed as YAML mappings
func batchMapping(v any, e *entityState) (map[string]any, *ParseError) {
	switch batch := v.(type) {
	case map[string]any:
		return batch, nil
	case blockValue:
		m := map[string]any{}
		if err := yaml.Unmarshal([]byte(batch.fence.raw()), &m); err != nil {
			return nil, syntaxErr(batch.fence.line, "step %q: malformed batch block: %v", e.id, err)
		}
		return m, nil
	default:
		return nil, semanticErr(e.line, "step %q: batch must be a mapping", e.id)
	}
}
