package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMeta_Defaults(t *testing.T) {
	m := FromMeta(domain.ServiceMeta{Folder: "echo"}, `internal\services\echo\service.go`)

	assert.Equal(t, "echo", m.Name)
	assert.Nil(t, m.Provider)
	assert.Equal(t, []string{"infer"}, m.Tasks)
	assert.Equal(t, []map[string]any{}, m.Models)
	assert.Equal(t, "{}", m.ExamplePayload)
	assert.Equal(t, domain.KindService, m.Kind)
}

func TestEncode_SortedKeys(t *testing.T) {
	m := FromMeta(domain.ServiceMeta{
		Name:           "pdf_reader",
		Folder:         "pdfreader",
		Tasks:          []string{"extract_text"},
		ExamplePayload: `{"rel_path": "pdf/<id>.pdf"}`,
	}, "internal/services/pdfreader/service.go")

	data, err := Encode(m)
	require.NoError(t, err)

	want := `{
  "code": "internal/services/pdfreader/service.go",
  "example_payload": "{\"rel_path\": \"pdf/<id>.pdf\"}",
  "folder": "pdfreader",
  "kind": "service",
  "models": [],
  "name": "pdf_reader",
  "provider": null,
  "tasks": [
    "extract_text"
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestValidate(t *testing.T) {
	base := func() *Manifest {
		return FromMeta(domain.ServiceMeta{Name: "text_tools", Tasks: []string{"arabic_normalize"}}, "x/plugin.go")
	}

	tests := []struct {
		name    string
		mutate  func(m *Manifest)
		wantErr string
	}{
		{"valid", func(m *Manifest) {}, ""},
		{"missing name", func(m *Manifest) { m.Name = " " }, "name is required"},
		{"no tasks", func(m *Manifest) { m.Tasks = nil }, "at least one task"},
		{"bad task", func(m *Manifest) { m.Tasks = []string{"Bad-Task"} }, `invalid task name "Bad-Task"`},
		{"bad kind", func(m *Manifest) { m.Kind = "widget" }, `invalid kind "widget"`},
		{"bad payload", func(m *Manifest) { m.ExamplePayload = "{nope" }, "example_payload is not valid JSON"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := base()
			tc.mutate(m)
			err := m.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestWriteIfChangedAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc", FileName)
	provider := "local"
	m := FromMeta(domain.ServiceMeta{Name: "svc", Folder: "svc", Provider: provider, Tasks: []string{"run"}}, "svc/service.go")

	wrote, err := WriteIfChanged(path, m)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = WriteIfChanged(path, m)
	require.NoError(t, err)
	assert.False(t, wrote, "identical content is not rewritten")

	// Trailing whitespace differences are ignored.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, '\n', '\n'), 0o644))
	wrote, err = WriteIfChanged(path, m)
	require.NoError(t, err)
	assert.False(t, wrote)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	meta := loaded.Meta()
	assert.Equal(t, "svc", meta.Name)
	assert.Equal(t, "local", meta.Provider)
	assert.Equal(t, []string{"run"}, meta.Tasks)

	m.Tasks = append(m.Tasks, "stop")
	wrote, err = WriteIfChanged(path, m)
	require.NoError(t, err)
	assert.True(t, wrote)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch := func(rel string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("package x\n"), 0o644))
	}
	touch("svc/zeta/plugin.go")
	touch("svc/alpha/service.go")
	touch("svc/alpha/plugin.go")
	touch("svc/empty/helpers.go")
	touch("svc/notadir.go")

	entries, err := Discover(root, "svc", domain.KindService)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "alpha", entries[0].Folder)
	assert.Equal(t, "svc/alpha/service.go", entries[0].CodeFile)
	assert.Equal(t, "svc/alpha/README.md", entries[0].ReadmeFile)
	assert.Equal(t, "svc/alpha/manifest.json", entries[0].ManifestFile)
	assert.Equal(t, "zeta", entries[1].Folder)
	assert.Equal(t, "svc/zeta/plugin.go", entries[1].CodeFile)

	plugins, err := Discover(root, "svc", domain.KindPlugin)
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "svc/alpha/plugin.go", plugins[0].CodeFile)

	none, err := Discover(root, "does/not/exist", domain.KindService)
	require.NoError(t, err)
	assert.Empty(t, none)
}
