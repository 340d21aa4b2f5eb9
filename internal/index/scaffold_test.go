package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffold(t *testing.T) {
	root := t.TempDir()
	opts := ScaffoldOptions{
		Root:        root,
		ServicesDir: "internal/services",
		Folder:      "translator",
		Meta:        domain.ServiceMeta{Name: "translator", Provider: "hf", Tasks: []string{"translate", "detect_language"}},
	}

	res, err := Scaffold(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"internal/services/translator/service.go",
		"internal/services/translator/README.md",
		"internal/services/translator/manifest.json",
	}, res.Files)

	code, err := os.ReadFile(filepath.Join(root, "internal/services/translator/service.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "package translator")
	assert.Contains(t, string(code), `s.Handle("detect_language", s.runDetectLanguage)`)
	assert.Contains(t, string(code), "Kind:     domain.KindService,")

	m, err := manifest.Load(filepath.Join(root, "internal/services/translator/manifest.json"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, "internal/services/translator/service.go", m.Code)
	require.NotNil(t, m.Provider)
	assert.Equal(t, "hf", *m.Provider)

	readme, err := os.ReadFile(filepath.Join(root, "internal/services/translator/README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# translator")

	_, err = Scaffold(opts)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConflict))

	opts.Force = true
	_, err = Scaffold(opts)
	assert.NoError(t, err)
}

func TestScaffold_PluginKindAndDefaults(t *testing.T) {
	root := t.TempDir()
	res, err := Scaffold(ScaffoldOptions{
		Root:        root,
		ServicesDir: "plugins",
		Folder:      "echo",
		Meta:        domain.ServiceMeta{Kind: domain.KindPlugin},
	})
	require.NoError(t, err)
	assert.Equal(t, "plugins/echo/plugin.go", res.Files[0])

	code, err := os.ReadFile(filepath.Join(root, "plugins/echo/plugin.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), `s.Handle("infer", s.runInfer)`)
	assert.Contains(t, string(code), "domain.KindPlugin")

	entries, err := manifest.Discover(root, "plugins", domain.KindPlugin)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "echo", entries[0].Folder)
}

func TestScaffold_DryRun(t *testing.T) {
	root := t.TempDir()
	res, err := Scaffold(ScaffoldOptions{Root: root, ServicesDir: "svc", Folder: "demo", DryRun: true})
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)
	assert.NoDirExists(t, filepath.Join(root, "svc"))
}

func TestScaffold_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts ScaffoldOptions
	}{
		{"bad folder", ScaffoldOptions{Folder: "My-Service"}},
		{"empty folder", ScaffoldOptions{}},
		{"bad task", ScaffoldOptions{Folder: "demo", Meta: domain.ServiceMeta{Tasks: []string{"Run-It"}}}},
		{"bad kind", ScaffoldOptions{Folder: "demo", Meta: domain.ServiceMeta{Kind: "widget"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Root = t.TempDir()
			_, err := Scaffold(tc.opts)
			assert.True(t, domain.IsType(err, domain.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestScaffold_ThenBuildAndLint(t *testing.T) {
	root := t.TempDir()
	_, err := Scaffold(ScaffoldOptions{
		Root:        root,
		ServicesDir: "internal/services",
		Folder:      "demo",
		Meta:        domain.ServiceMeta{Name: "demo_service", Tasks: []string{"run"}},
	})
	require.NoError(t, err)

	entries, err := manifest.Discover(root, "internal/services", domain.KindService)
	require.NoError(t, err)
	items := Collect(root, entries, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "demo_service", items[0].Meta.Name)

	_, err = Build(BuildOptions{Root: root, Items: items, OutputFile: "docs/services-overview.md"})
	require.NoError(t, err)

	issues, err := LintFile(context.Background(), filepath.Join(root, "docs/services-overview.md"), root)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
