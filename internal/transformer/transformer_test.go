package transformer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowdown/flowdown"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const validDoc = `# Nightly Sync

Synchronizes the mirrors.

## Steps

### pull

Pull the latest changes.

- type: shell

### push

Push them to the mirror.

- type: shell
`

func sourceFor(path string) DocumentSource {
	return DocumentSource{
		Content: strings.NewReader(validDoc),
		Metadata: flowdown.MetaData{
			Source:    path,
			AbsSource: path,
		},
	}
}

func TestTransformWritesCompiledIR(t *testing.T) {
	td := newTestDir(t)
	docPath := filepath.Join(td.path, "sync.flow.md")

	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML, NoBackup: true})
	outPath, err := tr.Transform(sourceFor(docPath))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(td.path, "sync.flow.yaml"), outPath)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "# Generated by flowdown"))

	var decoded struct {
		Title    string            `yaml:"title"`
		Workflow flowdown.Workflow `yaml:"workflow"`
	}
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	require.Equal(t, "Nightly Sync", decoded.Title)
	require.Len(t, decoded.Workflow.Steps, 2)
	require.Equal(t, []flowdown.Edge{{From: "pull", To: "push"}}, decoded.Workflow.Edges)
}

func TestTransformBacksUpExistingOutput(t *testing.T) {
	td := newTestDir(t)
	docPath := filepath.Join(td.path, "sync.flow.md")
	td.createFile("sync.flow.yaml", "old content")

	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML})
	_, err := tr.Transform(sourceFor(docPath))
	require.NoError(t, err)

	entries, err := os.ReadDir(td.path)
	require.NoError(t, err)

	var backups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bak") {
			backups = append(backups, e.Name())
		}
	}
	require.Len(t, backups, 1)

	backup, err := os.ReadFile(filepath.Join(td.path, backups[0]))
	require.NoError(t, err)
	require.Equal(t, "old content", string(backup))
}

func TestTransformToPathForcesOutput(t *testing.T) {
	td := newTestDir(t)
	docPath := filepath.Join(td.path, "sync.flow.md")
	forced := filepath.Join(td.path, "scratch", "out.yaml")

	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML, NoBackup: true})
	outPath, err := tr.TransformToPath(sourceFor(docPath), forced)
	require.NoError(t, err)
	require.Equal(t, forced, outPath)

	_, err = os.Stat(forced)
	require.NoError(t, err)
}

func TestTransformRequiresAbsSource(t *testing.T) {
	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML, NoBackup: true})
	_, err := tr.Transform(DocumentSource{
		Content:  strings.NewReader(validDoc),
		Metadata: flowdown.MetaData{Source: "sync.flow.md"},
	})
	require.Error(t, err)
}

func TestTransformSurfacesParseErrors(t *testing.T) {
	td := newTestDir(t)
	docPath := filepath.Join(td.path, "broken.flow.md")

	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML, NoBackup: true})
	_, err := tr.Transform(DocumentSource{
		Content: strings.NewReader("# Broken\n\nNo steps here.\n"),
		Metadata: flowdown.MetaData{
			Source:    docPath,
			AbsSource: docPath,
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse error")
}

func TestTransformHonorsFrontmatterOutput(t *testing.T) {
	td := newTestDir(t)
	docPath := filepath.Join(td.path, "sync.flow.md")

	doc := "---\noutput: compiled/sync.yaml\n---\n" + validDoc

	tr := NewTransformer(TransformOptions{WriterMode: flowdown.ModeYAML, NoBackup: true})
	outPath, err := tr.Transform(DocumentSource{
		Content: strings.NewReader(doc),
		Metadata: flowdown.MetaData{
			Source:    docPath,
			AbsSource: docPath,
		},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(td.path, "compiled", "sync.yaml"), outPath)
}
