package flowdown

import (
	"fmt"
	"strings"
)

// Reserved code-block target names that bypass the parameter bag and are
// promoted onto a dedicated field of the compiled record. These mirror the
// promoted inline properties.
const (
	targetBatch  = "batch"
	targetSource = "source"
	propType     = "type"
)

// fence is an open fenced code region. The closing fence must repeat the
// same character at least length times, which is what lets authors nest
// shorter fences inside a block.
type fence struct {
	char   byte
	length int
	// cosmetic language hint, may equal target
	hint string
	// routing key; empty means a bare block
	target string
	// opening line, 1-indexed
	line    int
	content []string
}

// parseFence classifies line as an opening fence. Returns nil when the line
// is not a fence at all.
func parseFence(line string, lineNo int) (*fence, *ParseError) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 3 || (trimmed[0] != '`' && trimmed[0] != '~') {
		return nil, nil
	}
	char := trimmed[0]
	length := 0
	for length < len(trimmed) && trimmed[length] == char {
		length++
	}
	if length < 3 {
		return nil, nil
	}

	words := strings.Fields(trimmed[length:])
	if len(words) > 2 {
		return nil, syntaxErr(lineNo, "code fence info string has more than two words").
			withHint("use at most a language hint and a target name, e.g. ```bash command")
	}

	f := &fence{char: char, length: length, line: lineNo}
	switch len(words) {
	case 1:
		f.hint, f.target = words[0], words[0]
	case 2:
		f.hint, f.target = words[0], words[1]
	}
	return f, nil
}

// closes reports whether line terminates the open fence: a bare run of the
// same character, at least as long as the opener
func (f *fence) closes(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < f.length {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != f.char {
			return false
		}
	}
	return true
}

// raw returns the block content, fence lines excluded
func (f *fence) raw() string {
	if len(f.content) == 0 {
		return ""
	}
	return strings.Join(f.content, "\n") + "\n"
}

// bareBlockError builds the fatal error for a fence with no info string.
// When the entity's type property is already known the hint names the
// conventional target for that step type.
func bareBlockError(lineNo int, stepType string) *ParseError {
	err := semanticErr(lineNo, "code block has no target name")
	if stepType == "" {
		return err.withHint("tag the fence with a target, e.g. ```bash command")
	}
	return err.withHint("a %s step usually wants a ```%s block", stepType, suggestedTarget(stepType))
}

// suggestedTarget maps a declared step type to the target name its blocks
// conventionally use
func suggestedTarget(stepType string) string {
	switch stepType {
	case "shell", "bash", "sh":
		return "command"
	case "llm", "agent":
		return "prompt"
	case "http":
		return "stdin"
	default:
		return "code"
	}
}

// String renders the fence the way the author wrote it, for use in hints
func (f *fence) String() string {
	marker := strings.Repeat(string(f.char), f.length)
	if f.hint == f.target {
		return fmt.Sprintf("%s%s", marker, f.target)
	}
	return fmt.Sprintf("%s%s %s", marker, f.hint, f.target)
}
