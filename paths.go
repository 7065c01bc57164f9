package flowdown

import (
	"path/filepath"
	"strings"
)

// DocExtension is the extension workflow documents are expected to carry
const DocExtension = ".flow.md"

// ResolveOutputPath determines the compiled IR path from the source
// document path. A frontmatter `output` key overrides the default, resolved
// relative to the document's directory.
func ResolveOutputPath(docPath string, frontmatter map[string]any, mode WriteMode) (string, error) {
	if out, ok := frontmatter["output"].(string); ok && out != "" {
		return filepath.Join(filepath.Dir(docPath), out), nil
	}

	ext := ".flow.yaml"
	if mode == ModeJSON {
		ext = ".flow.json"
	}

	base := strings.TrimSuffix(docPath, DocExtension)
	if base == docPath {
		base = strings.TrimSuffix(docPath, filepath.Ext(docPath))
	}
	return base + ext, nil
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
