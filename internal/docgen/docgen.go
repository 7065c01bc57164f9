package docgen

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/flowdown/flowdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns a parsed workflow document into a standalone HTML page.
// Workflow documents are deliberately valid markdown, so the body renders
// with an ordinary markdown renderer; the strict grammar only matters when
// compiling.
type Renderer struct {
	gm goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		gm: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Render writes the documentation page for doc
func (r *Renderer) Render(doc *flowdown.Document, out io.Writer) error {
	title := doc.Title
	if title == "" {
		title = doc.Metadata.Source
	}

	if _, err := fmt.Fprintf(out, pageHeader, html.EscapeString(title)); err != nil {
		return fmt.Errorf("writing page header: %w", err)
	}

	body := stripFrontmatter(doc.Source)
	if err := r.gm.Convert([]byte(body), out); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}

	if _, err := io.WriteString(out, pageFooter); err != nil {
		return fmt.Errorf("writing page footer: %w", err)
	}
	return nil
}

// stripFrontmatter drops the leading --- block; frontmatter is machine
// metadata, not documentation
func stripFrontmatter(source string) string {
	lines := strings.Split(source, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != "---" {
		return source
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == "---" {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return source
}

const pageHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
`

const pageFooter = `</body>
</html>
`
