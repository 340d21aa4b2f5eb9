package index

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/manifest"
)

// DefaultModulePath is the import path scaffolded code is generated against.
const DefaultModulePath = "github.com/neuroserve/neuroserve"

var folderPattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

const codeTemplate = `// Package {{.Folder}} implements the {{.Name}} {{.Kind}}.
package {{.Folder}}

import (
	"context"

	"{{.Module}}/internal/domain"
	"{{.Module}}/internal/registry"
)

const Name = "{{.Name}}"

// Service is the {{.Name}} {{.Kind}}.
type Service struct {
	*registry.Base
}

// New creates the {{.Name}} {{.Kind}}.
func New() *Service {
	s := &Service{
		Base: registry.NewBase(domain.ServiceMeta{
			Name:     Name,
			Folder:   "{{.Folder}}",
			Provider: "{{.Provider}}",
			Kind:     domain.{{.KindConst}},
		}),
	}
{{- range .Tasks}}
	s.Handle("{{.Task}}", s.{{.Method}})
{{- end}}
	return s
}
{{range .Tasks}}
func (s *Service) {{.Method}}(ctx context.Context, payload domain.Payload) (any, error) {
	return nil, domain.TaskError("{{.Task}} is not implemented", nil)
}
{{end}}`

var codeTmpl = template.Must(template.New("code").Parse(codeTemplate))

// ScaffoldOptions configures Scaffold.
type ScaffoldOptions struct {
	Root        string
	ServicesDir string
	Folder      string
	Meta        domain.ServiceMeta
	ModulePath  string
	Force       bool
	DryRun      bool
}

// ScaffoldResult lists the repo-relative files Scaffold wrote, or would
// write in a dry run.
type ScaffoldResult struct {
	Files []string
}

// Scaffold creates a new service folder with a code skeleton, README and
// manifest. Existing files are only overwritten with Force.
func Scaffold(opts ScaffoldOptions) (*ScaffoldResult, error) {
	if !folderPattern.MatchString(opts.Folder) {
		return nil, domain.ValidationError(fmt.Sprintf("invalid folder %q: use lowercase letters and digits", opts.Folder), nil)
	}
	if opts.ModulePath == "" {
		opts.ModulePath = DefaultModulePath
	}

	meta := opts.Meta
	meta.Folder = opts.Folder
	if meta.Name == "" {
		meta.Name = opts.Folder
	}
	if meta.Kind == "" {
		meta.Kind = domain.KindService
	}
	if len(meta.Tasks) == 0 {
		meta.Tasks = []string{domain.InferTask}
	}

	codeName := manifest.ServiceFile
	if meta.Kind == domain.KindPlugin {
		codeName = manifest.PluginFile
	}
	dir := path.Join(filepath.ToSlash(opts.ServicesDir), opts.Folder)
	entry := manifest.Entry{
		Folder:       opts.Folder,
		Kind:         meta.Kind,
		Dir:          dir,
		CodeFile:     path.Join(dir, codeName),
		ReadmeFile:   path.Join(dir, manifest.ReadmeFile),
		ManifestFile: path.Join(dir, manifest.FileName),
	}

	m := manifest.FromMeta(meta, entry.CodeFile)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	manifestData, err := manifest.Encode(m)
	if err != nil {
		return nil, err
	}
	code, err := renderCode(opts.ModulePath, meta)
	if err != nil {
		return nil, err
	}
	readme, err := RenderReadme(Item{Meta: meta, Entry: entry})
	if err != nil {
		return nil, err
	}

	files := []struct {
		rel     string
		content []byte
	}{
		{entry.CodeFile, code},
		{entry.ReadmeFile, []byte(readme)},
		{entry.ManifestFile, manifestData},
	}

	res := &ScaffoldResult{}
	if !opts.Force {
		for _, f := range files {
			if _, err := os.Stat(filepath.Join(opts.Root, filepath.FromSlash(f.rel))); err == nil {
				return nil, domain.ConflictError(fmt.Sprintf("%s already exists (use --force to overwrite)", f.rel), nil)
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, domain.IOError(fmt.Sprintf("failed to stat %s", f.rel), err)
			}
		}
	}

	for _, f := range files {
		res.Files = append(res.Files, f.rel)
		if opts.DryRun {
			continue
		}
		abs := filepath.Join(opts.Root, filepath.FromSlash(f.rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return res, domain.IOError(fmt.Sprintf("failed to create %s", filepath.Dir(abs)), err)
		}
		if err := os.WriteFile(abs, f.content, 0o644); err != nil {
			return res, domain.IOError(fmt.Sprintf("failed to write %s", f.rel), err)
		}
	}
	return res, nil
}

type scaffoldTask struct {
	Task   string
	Method string
}

func renderCode(module string, meta domain.ServiceMeta) ([]byte, error) {
	kindConst := "KindService"
	if meta.Kind == domain.KindPlugin {
		kindConst = "KindPlugin"
	}
	tasks := make([]scaffoldTask, 0, len(meta.Tasks))
	for _, t := range meta.Tasks {
		tasks = append(tasks, scaffoldTask{Task: t, Method: methodName(t)})
	}

	var buf bytes.Buffer
	err := codeTmpl.Execute(&buf, map[string]any{
		"Module":    module,
		"Folder":    meta.Folder,
		"Name":      meta.Name,
		"Kind":      string(meta.Kind),
		"KindConst": kindConst,
		"Provider":  meta.Provider,
		"Tasks":     tasks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render code for %s: %w", meta.Name, err)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format code for %s: %w", meta.Name, err)
	}
	return out, nil
}

// methodName turns a task name such as "extract_text" into "runExtractText".
func methodName(task string) string {
	var sb strings.Builder
	sb.WriteString("run")
	for _, p := range strings.Split(task, "_") {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return sb.String()
}
