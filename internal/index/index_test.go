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

func entry(folder, code string) manifest.Entry {
	base := "internal/services/" + folder + "/"
	return manifest.Entry{
		Folder:       folder,
		Kind:         domain.KindService,
		CodeFile:     base + code,
		ReadmeFile:   base + "README.md",
		ManifestFile: base + "manifest.json",
	}
}

func shippedItems() []Item {
	return []Item{
		{
			Meta:  domain.ServiceMeta{Name: "pdf_reader", Folder: "pdfreader", Tasks: []string{"extract_text"}, Kind: domain.KindService},
			Entry: entry("pdfreader", "service.go"),
		},
		{
			Meta:  domain.ServiceMeta{Name: "text_tools", Folder: "texttools", Tasks: []string{"arabic_normalize", "spellcheck_ar"}, Kind: domain.KindService},
			Entry: entry("texttools", "plugin.go"),
		},
	}
}

const shippedOverview = "# Services Overview\n\n" +
	"Total: **2**\n\n" +
	"| Name | Folder | Provider | Tasks | Files |\n" +
	"|------|--------|----------|-------|-------|\n" +
	"| pdf_reader | `pdfreader` | - | extract_text | [README](internal/services/pdfreader/README.md) · [code](internal/services/pdfreader/service.go) · [manifest](internal/services/pdfreader/manifest.json) |\n" +
	"| text_tools | `texttools` | - | arabic_normalize, spellcheck_ar | [README](internal/services/texttools/README.md) · [code](internal/services/texttools/plugin.go) · [manifest](internal/services/texttools/manifest.json) |\n"

func TestRenderOverview(t *testing.T) {
	out, err := RenderOverview(domain.KindService, shippedItems())
	require.NoError(t, err)
	assert.Equal(t, shippedOverview, out)
}

func TestRenderOverview_EmptyAndInfer(t *testing.T) {
	out, err := RenderOverview(domain.KindPlugin, nil)
	require.NoError(t, err)
	assert.Equal(t, "# Plugins Overview\n\nTotal: **0**\n\n| Name | Folder | Provider | Tasks | Files |\n|------|--------|----------|-------|-------|\n\n", out)

	items := []Item{{Meta: domain.ServiceMeta{Name: "m", Provider: "hf"}, Entry: entry("m", "plugin.go")}}
	out, err = RenderOverview(domain.KindPlugin, items)
	require.NoError(t, err)
	assert.Contains(t, out, "| m | `m` | hf | _infer_ |")
}

func TestRenderReadme(t *testing.T) {
	it := Item{
		Meta: domain.ServiceMeta{
			Name:           "text_tools",
			Folder:         "texttools",
			Tasks:          []string{"arabic_normalize", "spellcheck_ar"},
			Kind:           domain.KindService,
			Description:    "Arabic text utilities.",
			ExamplePayload: "{\n  \"text\": \"<b>\"\n}",
			Models: []map[string]any{
				{"repo": "org/model"},
				{"name": "local"},
			},
		},
		Entry: entry("texttools", "plugin.go"),
	}

	out, err := RenderReadme(it)
	require.NoError(t, err)

	assert.Contains(t, out, "# text_tools\n")
	assert.Contains(t, out, "**Type:** service\n")
	assert.Contains(t, out, "**Provider:** _unknown_\n")
	assert.Contains(t, out, "**Tasks:** arabic_normalize, spellcheck_ar\n")
	assert.Contains(t, out, "Arabic text utilities.")
	assert.Contains(t, out, "- [org/model](https://huggingface.co/org/model)")
	assert.Contains(t, out, `- {"name":"local"}`)
	assert.Contains(t, out, `curl -X POST "http://localhost:8000/services/text_tools/arabic_normalize"`)
	assert.Contains(t, out, `-d '{"text":"<b>"}'`)
	assert.Contains(t, out, "`GET /services`: list all available services.")
}

func TestRenderReadme_Defaults(t *testing.T) {
	out, err := RenderReadme(Item{Meta: domain.ServiceMeta{Name: "bare"}, Entry: entry("bare", "service.go")})
	require.NoError(t, err)
	assert.Contains(t, out, "**Tasks:** _infer_")
	assert.Contains(t, out, "- _None_")
	assert.Contains(t, out, "/services/bare/infer")
	assert.Contains(t, out, "-d '{}'")
}

func TestParse(t *testing.T) {
	doc := Parse([]byte(shippedOverview))

	assert.Equal(t, "Services Overview", doc.Title)
	assert.True(t, doc.HasTotal)
	assert.Equal(t, 2, doc.Total)
	assert.True(t, doc.HasTable)
	assert.Equal(t, Columns, doc.Columns)
	require.Len(t, doc.Rows, 2)

	row := doc.Rows[1]
	assert.Equal(t, "text_tools", row.Name)
	assert.Equal(t, "texttools", row.Folder)
	assert.Equal(t, "", row.Provider)
	assert.Equal(t, "arabic_normalize, spellcheck_ar", row.TasksRaw)
	assert.Equal(t, []string{"arabic_normalize", "spellcheck_ar"}, row.Tasks)

	code, ok := row.Link("code")
	require.True(t, ok)
	assert.Equal(t, "internal/services/texttools/plugin.go", code)
	assert.Len(t, row.Links, 3)
}

func TestSplitTasks(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitTasks(" a , b ,"))
	assert.Nil(t, SplitTasks("  "))
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func shippedTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root,
		"internal/services/pdfreader/README.md",
		"internal/services/pdfreader/service.go",
		"internal/services/pdfreader/manifest.json",
		"internal/services/texttools/README.md",
		"internal/services/texttools/plugin.go",
		"internal/services/texttools/manifest.json",
	)
	return root
}

func TestLint_Clean(t *testing.T) {
	issues, err := Lint(context.Background(), Parse([]byte(shippedOverview)), shippedTree(t))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_Problems(t *testing.T) {
	root := shippedTree(t)
	require.NoError(t, os.Remove(filepath.Join(root, "internal/services/texttools/manifest.json")))

	page := "# Services Overview\n\n" +
		"Total: **3**\n\n" +
		"| Name | Folder | Provider | Tasks | Files |\n" +
		"|------|--------|----------|-------|-------|\n" +
		"| pdf_reader | `pdfreader` | - | extract_text | [README](internal/services/pdfreader/README.md) · [code](internal/services/pdfreader/service.go) · [manifest](internal/services/pdfreader/manifest.json) |\n" +
		"| text_tools | `texttools` | - | arabic_normalize spellcheck_ar | [README](internal/services/texttools/README.md) · [code](internal/services/texttools/plugin.go) · [manifest](internal/services/texttools/manifest.json) |\n" +
		"| pdf_reader | `pdfreader` | - |  | [README](internal/services/pdfreader/README.md) |\n"

	issues, err := Lint(context.Background(), Parse([]byte(page)), root)
	require.NoError(t, err)

	var got []string
	for _, is := range issues {
		got = append(got, is.String())
	}
	assert.NotContains(t, got, "Total: Total is 3 but the table has 3 rows")
	assert.Contains(t, got, `row 2 Tasks: "arabic_normalize spellcheck_ar" is not a comma-separated task list`)
	assert.Contains(t, got, `row 2 Files: manifest link target "internal/services/texttools/manifest.json" does not exist`)
	assert.Contains(t, got, `row 3 Name: duplicate name "pdf_reader" (first in row 1)`)
	assert.Contains(t, got, "row 3 Tasks: tasks are empty")
	assert.Contains(t, got, "row 3 Files: missing code link")
	assert.Contains(t, got, "row 3 Files: missing manifest link")
}

func TestLint_Total(t *testing.T) {
	root := shippedTree(t)

	noTotal := Parse([]byte("# Services Overview\n\n| Name | Folder | Provider | Tasks | Files |\n|---|---|---|---|---|\n"))
	issues, err := Lint(context.Background(), noTotal, root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Total: missing Total line", issues[0].String())

	wrong := Parse([]byte("# Services Overview\n\nTotal: **5**\n\n| Name | Folder | Provider | Tasks | Files |\n|---|---|---|---|---|\n"))
	issues, err = Lint(context.Background(), wrong, root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Total: Total is 5 but the table has 0 rows", issues[0].String())

	noTable := Parse([]byte("# Services Overview\n\nTotal: **0**\n"))
	issues, err = Lint(context.Background(), noTable, root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Table", issues[0].Field)
}

func TestLint_RepositoryOverview(t *testing.T) {
	root := filepath.Join("..", "..")
	issues, err := LintFile(context.Background(), filepath.Join(root, "docs", "services-overview.md"), root)
	require.NoError(t, err)
	assert.Empty(t, issues)

	doc := Parse(mustRead(t, filepath.Join(root, "docs", "services-overview.md")))
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "pdf_reader", doc.Rows[0].Name)
	assert.Equal(t, []string{"extract_text"}, doc.Rows[0].Tasks)
	assert.Equal(t, "text_tools", doc.Rows[1].Name)
	assert.Equal(t, []string{"arabic_normalize", "spellcheck_ar"}, doc.Rows[1].Tasks)
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"internal/services/pdfreader/service.go",
		"internal/services/texttools/plugin.go",
	)

	opts := BuildOptions{
		Root:       root,
		Kind:       domain.KindService,
		Items:      shippedItems(),
		OutputFile: "docs/services-overview.md",
	}

	stats, err := Build(opts)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReadmesCreated)
	assert.Equal(t, 0, stats.ReadmesUpdated)
	assert.Equal(t, 2, stats.ManifestsChanged)
	assert.True(t, stats.OverviewChanged)

	assert.Equal(t, shippedOverview, string(mustRead(t, filepath.Join(root, "docs/services-overview.md"))))

	issues, err := LintFile(context.Background(), filepath.Join(root, "docs/services-overview.md"), root)
	require.NoError(t, err)
	assert.Empty(t, issues)

	stats, err = Build(opts)
	require.NoError(t, err)
	assert.Zero(t, stats.ReadmesCreated+stats.ReadmesUpdated+stats.ManifestsChanged)
	assert.False(t, stats.OverviewChanged)
	assert.Empty(t, stats.Actions)

	opts.ForceReadme = true
	stats, err = Build(opts)
	require.NoError(t, err)
	require.Len(t, stats.Actions, 2)
	assert.Equal(t, ActionReadmeUnchanged, stats.Actions[0].Kind)
}

func TestBuild_ManifestMerge(t *testing.T) {
	root := t.TempDir()
	items := shippedItems()[:1]
	path := filepath.Join(root, items[0].Entry.ManifestFile)

	provider := "acme"
	existing := manifest.FromMeta(items[0].Meta, items[0].Entry.CodeFile)
	existing.Provider = &provider
	existing.ExamplePayload = `{"rel_path":"pdf/x.pdf"}`
	_, err := manifest.WriteIfChanged(path, existing)
	require.NoError(t, err)

	_, err = Build(BuildOptions{Root: root, Items: items})
	require.NoError(t, err)
	m, err := manifest.Load(path)
	require.NoError(t, err)
	require.NotNil(t, m.Provider)
	assert.Equal(t, "acme", *m.Provider)
	assert.Equal(t, `{"rel_path":"pdf/x.pdf"}`, m.ExamplePayload)

	_, err = Build(BuildOptions{Root: root, Items: items, ForceManifest: true})
	require.NoError(t, err)
	m, err = manifest.Load(path)
	require.NoError(t, err)
	assert.Nil(t, m.Provider)
	assert.Equal(t, "{}", m.ExamplePayload)
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	entries := []manifest.Entry{entry("pdfreader", "service.go"), entry("fromfile", "service.go"), entry("bare", "plugin.go")}

	m := manifest.FromMeta(domain.ServiceMeta{Name: "from_file", Tasks: []string{"go"}}, "x")
	_, err := manifest.WriteIfChanged(filepath.Join(root, entries[1].ManifestFile), m)
	require.NoError(t, err)

	items := Collect(root, entries, []domain.ServiceMeta{{Name: "pdf_reader", Folder: "pdfreader", Tasks: []string{"extract_text"}}})
	require.Len(t, items, 3)

	assert.Equal(t, "pdf_reader", items[0].Meta.Name)
	assert.Equal(t, "from_file", items[1].Meta.Name)
	assert.Equal(t, []string{"go"}, items[1].Meta.Tasks)
	assert.Equal(t, "fromfile", items[1].Meta.Folder)
	assert.Equal(t, "bare", items[2].Meta.Name)
	assert.Empty(t, items[2].Meta.Tasks)
}
