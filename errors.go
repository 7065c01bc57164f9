package flowdown

import "fmt"

// ErrorKind classifies fatal parse failures
type ErrorKind int

const (
	// ErrStructural covers heading-level problems: a missing or empty Steps
	// section, an entity outside a recognized section, duplicate identifiers
	ErrStructural ErrorKind = iota
	// ErrSyntax covers malformed text: unclosed fences, bad YAML
	ErrSyntax
	// ErrSemantic covers rules checked while compiling entities: missing
	// descriptions, bare code blocks, duplicate definitions, bad identifiers
	ErrSemantic
)

func (k ErrorKind) String() string {
	switch k {
	case ErrStructural:
		return "structural"
	case ErrSyntax:
		return "syntax"
	case ErrSemantic:
		return "semantic"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError is the single fatal error a parse can produce. Line is
// 1-indexed and always points at the most specific offending line.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Line    int
	// Optional remediation suggestion, e.g. corrected example syntax
	Hint string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("line %d: %s (%s)", e.Line, e.Message, e.Hint)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func structuralErr(line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: ErrStructural, Line: line, Message: fmt.Sprintf(format, args...)}
}

func syntaxErr(line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: ErrSyntax, Line: line, Message: fmt.Sprintf(format, args...)}
}

func semanticErr(line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: ErrSemantic, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (e *ParseError) withHint(format string, args ...any) *ParseError {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}
