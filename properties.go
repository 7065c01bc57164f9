package flowdown

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// propertyFragment is one `- key: value` line plus its indented continuation
// lines. Fragments are collected per entity and parsed together as a single
// YAML sequence, so nested mappings and block scalars under a property work
// without any special casing here.
type propertyFragment struct {
	// column of the dash
	indent int
	// raw lines, first one is the `- ` line
	lines []string
	// document line for each raw line, 1-indexed
	srcLines []int
}

func newPropertyFragment(line string, lineNo int) propertyFragment {
	return propertyFragment{
		indent:   indentWidth(line),
		lines:    []string{line},
		srcLines: []int{lineNo},
	}
}

// continues reports whether line belongs to the fragment: anything indented
// strictly deeper than the dash. Blank lines always close a fragment.
func (f *propertyFragment) continues(line string) bool {
	if isBlank(line) {
		return false
	}
	return indentWidth(line) > f.indent
}

func (f *propertyFragment) append(line string, lineNo int) {
	f.lines = append(f.lines, line)
	f.srcLines = append(f.srcLines, lineNo)
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// isPropertyLine reports whether line opens a new property fragment
func isPropertyLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || trimmed == "-"
}

// parseProperties concatenates the entity's fragments (dedented so every
// dash sits in column zero), parses them as one YAML sequence of single-key
// mappings, and merges them into one mapping
func parseProperties(frags []propertyFragment) (map[string]any, *ParseError) {
	if len(frags) == 0 {
		return map[string]any{}, nil
	}

	var b strings.Builder
	var srcMap []int
	for _, f := range frags {
		for i, raw := range f.lines {
			b.WriteString(dedent(raw, f.indent))
			b.WriteByte('\n')
			srcMap = append(srcMap, f.srcLines[i])
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(b.String()), &root); err != nil {
		return nil, syntaxErr(fragmentLine(srcMap, yamlErrorLine(err)), "malformed property: %v", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
		// every fragment starts with a dash, so anything else is yaml
		// we cannot treat as a property list
		return nil, syntaxErr(srcMap[0], "properties did not parse as a list")
	}

	merged := map[string]any{}
	for _, item := range root.Content[0].Content {
		docLine := fragmentLine(srcMap, item.Line)
		if item.Kind != yaml.MappingNode {
			return nil, syntaxErr(docLine, "property line is not a key: value pair").
				withHint("use '*' instead of '-' for plain documentation bullets")
		}
		if len(item.Content) != 2 {
			return nil, syntaxErr(docLine, "property line must define exactly one key")
		}
		keyNode, valNode := item.Content[0], item.Content[1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, syntaxErr(docLine, "property key must be a plain scalar")
		}
		key := keyNode.Value
		if _, dup := merged[key]; dup {
			return nil, semanticErr(docLine, "duplicate property %q", key)
		}

		var value any
		if err := valNode.Decode(&value); err != nil {
			return nil, syntaxErr(docLine, "malformed property %q: %v", key, err)
		}
		merged[key] = value
	}

	return merged, nil
}

// fragmentLine maps a line number inside the concatenated fragment text back
// to the document line it came from
func fragmentLine(srcMap []int, rel int) int {
	if rel >= 1 && rel <= len(srcMap) {
		return srcMap[rel-1]
	}
	if len(srcMap) > 0 {
		return srcMap[0]
	}
	return 1
}

func dedent(line string, width int) string {
	for i := 0; i < width && len(line) > 0; i++ {
		if line[0] != ' ' && line[0] != '\t' {
			break
		}
		line = line[1:]
	}
	return line
}
