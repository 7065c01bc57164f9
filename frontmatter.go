package flowdown

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

var yamlLineRegex = regexp.MustCompile(`line (\d+):`)

// yamlErrorLine pulls the 1-indexed line number out of a yaml.v3 error
// message. Returns 0 when the error carries no position.
func yamlErrorLine(err error) int {
	if err == nil {
		return 0
	}
	m := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}
	return n
}

// extractFrontmatter consumes an optional leading `---` block and parses it
// as a YAML mapping. Returns the mapping (nil when absent) and the number of
// lines consumed, so the scanner can keep document-relative line numbers.
//
// Error lines are relative to the whole document, not the block.
func extractFrontmatter(lines []string) (map[string]any, int, *ParseError) {
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != frontmatterDelim {
		return nil, 0, nil
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == frontmatterDelim {
			closing = i
			break
		}
	}
	if closing == -1 {
		return nil, 0, syntaxErr(1, "unclosed frontmatter block").
			withHint("close the block with a bare --- line")
	}

	block := strings.Join(lines[1:closing], "\n")

	meta := map[string]any{}
	if strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			line := 1
			if rel := yamlErrorLine(err); rel > 0 {
				// block starts on document line 2
				line = rel + 1
			}
			return nil, 0, syntaxErr(line, "malformed frontmatter: %v", err)
		}
	}

	return meta, closing + 1, nil
}
