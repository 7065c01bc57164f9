package flowdown

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanExtractFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected map[string]any
		consumed int
	}{
		{
			name:     "simple mapping",
			lines:    []string{"---", "owner: infra", "---", "# Title"},
			expected: map[string]any{"owner": "infra"},
			consumed: 3,
		},
		{
			name:     "empty block",
			lines:    []string{"---", "---", "body"},
			expected: map[string]any{},
			consumed: 2,
		},
		{
			name:     "no frontmatter",
			lines:    []string{"# Title", "body"},
			expected: nil,
			consumed: 0,
		},
		{
			name:     "delimiter later in document is not frontmatter",
			lines:    []string{"# Title", "---", "body"},
			expected: nil,
			consumed: 0,
		},
		{
			name:     "nested values",
			lines:    []string{"---", "tags:", "  - a", "  - b", "---"},
			expected: map[string]any{"tags": []any{"a", "b"}},
			consumed: 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta, consumed, perr := extractFrontmatter(tc.lines)
			require.Nil(t, perr)
			require.Equal(t, tc.expected, meta)
			require.Equal(t, tc.consumed, consumed)
		})
	}
}

func TestUnclosedFrontmatterFails(t *testing.T) {
	_, _, perr := extractFrontmatter([]string{"---", "owner: infra"})
	require.NotNil(t, perr)
	require.Equal(t, ErrSyntax, perr.Kind)
	require.Equal(t, 1, perr.Line)
}

func TestFrontmatterErrorLineIsDocumentRelative(t *testing.T) {
	// a sequence cannot unmarshal into a mapping; yaml reports the block
	// line, the extractor shifts it past the opening delimiter
	_, _, perr := extractFrontmatter([]string{"---", "- a", "- b", "---"})
	require.NotNil(t, perr)
	require.Equal(t, ErrSyntax, perr.Kind)
	require.Equal(t, 2, perr.Line)
}

func TestMalformedFrontmatterAbortsParse(t *testing.T) {
	text := "---\n- a\n---\n## Steps\n\n### go\n\nRun.\n"
	_, err := parseText(t, text)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), fmt.Sprintf("expected *ParseError, got %T", err))
	require.Equal(t, ErrSyntax, perr.Kind)
}
