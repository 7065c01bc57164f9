package flowdown

import (
	"path/filepath"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		name        string
		docPath     string
		frontmatter map[string]any
		mode        WriteMode
		want        string
	}{
		{
			name:    "default_yaml",
			docPath: "release.flow.md",
			mode:    ModeYAML,
			want:    "release.flow.yaml",
		},
		{
			name:    "default_json",
			docPath: "release.flow.md",
			mode:    ModeJSON,
			want:    "release.flow.json",
		},
		{
			name:    "with_path",
			docPath: "/home/user/flows/release.flow.md",
			mode:    ModeYAML,
			want:    "/home/user/flows/release.flow.yaml",
		},
		{
			name:        "frontmatter_output_relative",
			docPath:     "release.flow.md",
			frontmatter: map[string]any{"output": "compiled.yaml"},
			mode:        ModeYAML,
			want:        "compiled.yaml",
		},
		{
			name:        "frontmatter_output_with_path",
			docPath:     "/home/user/flows/release.flow.md",
			frontmatter: map[string]any{"output": "out/release.yaml"},
			mode:        ModeYAML,
			want:        "/home/user/flows/out/release.yaml",
		},
		{
			name:    "plain_md_extension",
			docPath: "release.md",
			mode:    ModeYAML,
			want:    "release.flow.yaml",
		},
		{
			name:        "non_string_output_is_ignored",
			docPath:     "release.flow.md",
			frontmatter: map[string]any{"output": 42},
			mode:        ModeYAML,
			want:        "release.flow.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOutputPath(tt.docPath, tt.frontmatter, tt.mode)
			if err != nil {
				t.Fatalf("ResolveOutputPath() error = %v", err)
			}

			if filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("ResolveOutputPath() = %v, want %v", got, tt.want)
			}
		})
	}
}
