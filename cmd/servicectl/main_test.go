package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("NEUROSERVE_URL", "")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "dev"}`, out)
}

func TestIndexLint_Repository(t *testing.T) {
	out, err := execute(t, "index", "lint", "--root", "../..")
	require.NoError(t, err)
	assert.Contains(t, out, "is consistent")
}

func TestIndexLint_Issues(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "overview.md")
	require.NoError(t, os.WriteFile(page, []byte("# Services Overview\n\nTotal: **3**\n\n"+
		"| Name | Folder | Provider | Tasks | Files |\n"+
		"|------|--------|----------|-------|-------|\n"+
		"| a | `a` | - | run | [README](a/README.md) · [code](a/service.go) · [manifest](a/manifest.json) |\n"), 0o644))

	out, err := execute(t, "index", "lint", "--root", dir, "--json", page)
	assert.ErrorIs(t, err, errSilent)

	var issues []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	assert.NotEmpty(t, issues)
}

func TestScaffoldAndBuild(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "scaffold", "demo", "--root", root, "--tasks", "greet, wave", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would create internal/services/demo/service.go")
	assert.NoDirExists(t, filepath.Join(root, "internal"))

	_, err = execute(t, "scaffold", "demo", "--root", root, "--tasks", "greet,wave", "--name", "demo_service")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "internal/services/demo/manifest.json"))

	out, err = execute(t, "index", "build", "--root", root, "--json")
	require.NoError(t, err)
	var stats struct {
		Items           int  `json:"items"`
		OverviewChanged bool `json:"overview_changed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Items)
	assert.True(t, stats.OverviewChanged)

	overview, err := os.ReadFile(filepath.Join(root, "docs/services-overview.md"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "| demo_service | `demo` | - | greet, wave |")

	_, err = execute(t, "index", "lint", "--root", root)
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	out, err := execute(t, "list", "--json")
	require.NoError(t, err)

	var rows []serviceRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "pdf_reader", rows[0].Name)
	assert.Equal(t, "text_tools", rows[1].Name)

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "arabic_normalize, spellcheck_ar")
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "text_tools", "arabic_normalize", "--json", "--payload", `{"text": "إلى"}`)
	require.NoError(t, err)

	var res struct {
		Plugin string         `json:"plugin"`
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "text_tools", res.Plugin)
	assert.Equal(t, "الي", res.Result["normalized"])

	_, err = execute(t, "run", "text_tools", "nope", "--json")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestParsePayload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"rel_path": "pdf/a.pdf"}`), 0o644))

	tests := []struct {
		name    string
		arg     string
		stdin   string
		want    domain.Payload
		wantErr bool
	}{
		{name: "inline", arg: `{"text": "x"}`, want: domain.Payload{"text": "x"}},
		{name: "empty", arg: "", want: domain.Payload{}},
		{name: "file", arg: "@" + file, want: domain.Payload{"rel_path": "pdf/a.pdf"}},
		{name: "stdin", arg: "-", stdin: `{"n": 1}`, want: domain.Payload{"n": float64(1)}},
		{name: "missing file", arg: "@" + file + ".missing", wantErr: true},
		{name: "array", arg: `[1, 2]`, wantErr: true},
		{name: "null", arg: `null`, wantErr: true},
		{name: "broken", arg: `{"text":`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePayload(tc.arg, strings.NewReader(tc.stdin))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
