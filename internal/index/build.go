package index

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/manifest"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Root       string
	Kind       domain.Kind
	Items      []Item
	OutputFile string

	// ForceReadme reports unchanged READMEs as well as written ones.
	ForceReadme bool
	// ForceManifest regenerates manifests purely from item metadata instead
	// of keeping provider, models and example payload from the existing file.
	ForceManifest bool
}

// Action records one file Build looked at.
type Action struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Action kinds.
const (
	ActionReadmeCreated   = "readme_created"
	ActionReadmeUpdated   = "readme_updated"
	ActionReadmeUnchanged = "readme_unchanged"
	ActionManifestWritten = "manifest_written"
	ActionOverviewWritten = "overview_written"
)

// BuildStats summarizes a Build run.
type BuildStats struct {
	Items            int      `json:"items"`
	ReadmesCreated   int      `json:"readmes_created"`
	ReadmesUpdated   int      `json:"readmes_updated"`
	ManifestsChanged int      `json:"manifests_changed"`
	OverviewChanged  bool     `json:"overview_changed"`
	Actions          []Action `json:"actions"`
}

// Build writes the README and manifest of every item and the overview page.
// Files are only rewritten when their content changes.
func Build(opts BuildOptions) (*BuildStats, error) {
	if opts.Kind == "" {
		opts.Kind = domain.KindService
	}
	stats := &BuildStats{Items: len(opts.Items)}

	for _, it := range opts.Items {
		if err := buildReadme(opts, it, stats); err != nil {
			return stats, err
		}
		if err := buildManifest(opts, it, stats); err != nil {
			return stats, err
		}
	}

	if opts.OutputFile != "" {
		content, err := RenderOverview(opts.Kind, opts.Items)
		if err != nil {
			return stats, err
		}
		changed, err := writeIfChanged(filepath.Join(opts.Root, filepath.FromSlash(opts.OutputFile)), []byte(content))
		if err != nil {
			return stats, err
		}
		if changed {
			stats.OverviewChanged = true
			stats.Actions = append(stats.Actions, Action{Kind: ActionOverviewWritten, Path: opts.OutputFile})
		}
	}

	return stats, nil
}

func buildReadme(opts BuildOptions, it Item, stats *BuildStats) error {
	content, err := RenderReadme(it)
	if err != nil {
		return err
	}
	path := filepath.Join(opts.Root, filepath.FromSlash(it.Entry.ReadmeFile))
	_, statErr := os.Stat(path)
	existed := statErr == nil

	changed, err := writeIfChanged(path, []byte(content))
	if err != nil {
		return err
	}

	switch {
	case changed && existed:
		stats.ReadmesUpdated++
		stats.Actions = append(stats.Actions, Action{Kind: ActionReadmeUpdated, Path: it.Entry.ReadmeFile})
	case changed:
		stats.ReadmesCreated++
		stats.Actions = append(stats.Actions, Action{Kind: ActionReadmeCreated, Path: it.Entry.ReadmeFile})
	case opts.ForceReadme:
		stats.Actions = append(stats.Actions, Action{Kind: ActionReadmeUnchanged, Path: it.Entry.ReadmeFile})
	}
	return nil
}

func buildManifest(opts BuildOptions, it Item, stats *BuildStats) error {
	path := filepath.Join(opts.Root, filepath.FromSlash(it.Entry.ManifestFile))
	m := manifest.FromMeta(it.Meta, it.Entry.CodeFile)

	if !opts.ForceManifest {
		if existing, err := manifest.Load(path); err == nil {
			mergeManifest(m, existing)
		}
	}

	changed, err := manifest.WriteIfChanged(path, m)
	if err != nil {
		return err
	}
	if changed {
		stats.ManifestsChanged++
		stats.Actions = append(stats.Actions, Action{Kind: ActionManifestWritten, Path: it.Entry.ManifestFile})
	}
	return nil
}

// mergeManifest keeps hand-edited fields of an existing manifest when the
// generated one has nothing better.
func mergeManifest(m, existing *manifest.Manifest) {
	if m.Provider == nil && existing.Provider != nil {
		m.Provider = existing.Provider
	}
	if len(m.Models) == 0 && len(existing.Models) > 0 {
		m.Models = existing.Models
	}
	if m.ExamplePayload == "{}" && existing.ExamplePayload != "" {
		m.ExamplePayload = existing.ExamplePayload
	}
}

func writeIfChanged(path string, content []byte) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, domain.IOError(fmt.Sprintf("failed to create %s", filepath.Dir(path)), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, domain.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return true, nil
}
