package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/neuroserve/neuroserve/internal/domain"
)

const overviewTemplate = "# {{.Title}}\n\n" +
	"Total: **{{len .Rows}}**\n\n" +
	"| Name | Folder | Provider | Tasks | Files |\n" +
	"|------|--------|----------|-------|-------|\n" +
	"{{range .Rows}}| {{.Name}} | `{{.Folder}}` | {{.Provider}} | {{.Tasks}} | " +
	"[README]({{.Readme}}) · [code]({{.Code}}) · [manifest]({{.Manifest}}) |\n" +
	"{{else}}\n{{end}}"

const readmeTemplate = `# {{.Name}}

**Type:** {{.Kind}}
**Provider:** {{.Provider}}
**Tasks:** {{.Tasks}}

{{.Description}}

## Models
{{.Models}}

## Usage

### API Overview
- ` + "`GET /{{.Base}}`" + `: list all available {{.Base}}.
- ` + "`GET /{{.Base}}/{name}`" + `: get metadata for this {{.Kind}}.
- ` + "`POST /{{.Base}}/{name}/{task}`" + `: run a task of this {{.Kind}}.

> Replace ` + "`{name}`" + ` with this {{.Kind}}'s name and ` + "`{task}`" + ` with one of the tasks listed above.

### cURL Example
` + "```bash" + `
curl -X POST "http://localhost:8000/{{.Base}}/{{.Name}}/{{.ExampleTask}}" \
     -H "Content-Type: application/json" \
     -d '{{.ExamplePayload}}'
` + "```" + `

### Go Example
` + "```go" + `
var payload map[string]any
_ = json.Unmarshal([]byte(` + "`{{.ExamplePayload}}`" + `), &payload)

c := client.New("http://localhost:8000")
res, err := c.RunTask(context.Background(), "{{.Name}}", "{{.ExampleTask}}", payload)
` + "```" + `

## Notes
- Document any environment variables this {{.Kind}} reads here.
- Add relevant reference links (model cards, docs) if applicable.
`

var (
	overviewTmpl = template.Must(template.New("overview").Parse(overviewTemplate))
	readmeTmpl   = template.Must(template.New("readme").Parse(readmeTemplate))
)

type overviewRow struct {
	Name, Folder, Provider, Tasks string
	Readme, Code, Manifest        string
}

// RenderOverview renders the overview page for items of one kind.
func RenderOverview(kind domain.Kind, items []Item) (string, error) {
	data := struct {
		Title string
		Rows  []overviewRow
	}{Title: overviewTitle(kind)}

	for _, it := range items {
		provider := it.Meta.Provider
		if provider == "" {
			provider = "-"
		}
		data.Rows = append(data.Rows, overviewRow{
			Name:     it.Meta.Name,
			Folder:   it.Entry.Folder,
			Provider: provider,
			Tasks:    formatTasks(it.Meta.Tasks),
			Readme:   it.Entry.ReadmeFile,
			Code:     it.Entry.CodeFile,
			Manifest: it.Entry.ManifestFile,
		})
	}

	var buf bytes.Buffer
	if err := overviewTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render overview: %w", err)
	}
	return buf.String(), nil
}

// RenderReadme renders the README for a single item.
func RenderReadme(it Item) (string, error) {
	kind := it.Meta.Kind
	if kind == "" {
		kind = domain.KindService
	}
	provider := it.Meta.Provider
	if provider == "" {
		provider = "_unknown_"
	}
	exampleTask := domain.InferTask
	if len(it.Meta.Tasks) > 0 {
		exampleTask = it.Meta.Tasks[0]
	}

	data := map[string]string{
		"Name":           it.Meta.Name,
		"Kind":           string(kind),
		"Base":           kind.Plural(),
		"Provider":       provider,
		"Tasks":          formatTasks(it.Meta.Tasks),
		"Description":    strings.TrimSpace(it.Meta.Description),
		"Models":         formatModels(it.Meta.Models),
		"ExampleTask":    exampleTask,
		"ExamplePayload": formatPayload(it.Meta.ExamplePayload),
	}

	var buf bytes.Buffer
	if err := readmeTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render README for %s: %w", it.Meta.Name, err)
	}
	return buf.String(), nil
}

func overviewTitle(kind domain.Kind) string {
	if kind == domain.KindPlugin {
		return "Plugins Overview"
	}
	return "Services Overview"
}

func formatTasks(tasks []string) string {
	if len(tasks) == 0 {
		return "_" + domain.InferTask + "_"
	}
	return strings.Join(tasks, ", ")
}

func formatModels(models []map[string]any) string {
	if len(models) == 0 {
		return "- _None_"
	}
	lines := make([]string, 0, len(models))
	for _, m := range models {
		repo := ""
		for _, key := range []string{"repo", "repo_id", "model"} {
			if s, ok := m[key].(string); ok && s != "" {
				repo = s
				break
			}
		}
		if strings.Contains(repo, "/") {
			lines = append(lines, fmt.Sprintf("- [%s](https://huggingface.co/%s)", repo, repo))
			continue
		}
		lines = append(lines, "- "+compactJSON(m))
	}
	return strings.Join(lines, "\n")
}

// formatPayload normalizes a JSON example payload onto one line. Payloads
// that are not valid JSON are kept with newlines flattened.
func formatPayload(payload string) string {
	if strings.TrimSpace(payload) == "" {
		return "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return strings.ReplaceAll(payload, "\n", " ")
	}
	return compactJSON(v)
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
