// Package manifest reads, validates and writes the manifest.json file that
// sits next to every service.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// FileName is the manifest file name inside a service folder.
const FileName = "manifest.json"

var taskNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Manifest is the on-disk description of a service.
type Manifest struct {
	Name           string           `json:"name"`
	Provider       *string          `json:"provider"`
	Tasks          []string         `json:"tasks"`
	Models         []map[string]any `json:"models"`
	ExamplePayload string           `json:"example_payload"`
	Kind           domain.Kind      `json:"kind"`
	Folder         string           `json:"folder"`
	Code           string           `json:"code"`
}

// FromMeta builds a manifest for meta. Missing tasks default to ["infer"],
// missing models to [] and a missing example payload to "{}".
func FromMeta(meta domain.ServiceMeta, codePath string) *Manifest {
	m := &Manifest{
		Name:           meta.Name,
		Tasks:          append([]string(nil), meta.Tasks...),
		Models:         meta.Models,
		ExamplePayload: meta.ExamplePayload,
		Kind:           meta.Kind,
		Folder:         meta.Folder,
		Code:           filepath.ToSlash(codePath),
	}
	if m.Name == "" {
		m.Name = m.Folder
	}
	if meta.Provider != "" {
		provider := meta.Provider
		m.Provider = &provider
	}
	if len(m.Tasks) == 0 {
		m.Tasks = []string{domain.InferTask}
	}
	if m.Models == nil {
		m.Models = []map[string]any{}
	}
	if m.ExamplePayload == "" {
		m.ExamplePayload = "{}"
	}
	if m.Kind == "" {
		m.Kind = domain.KindService
	}
	return m
}

// Meta converts the manifest back into service metadata.
func (m *Manifest) Meta() domain.ServiceMeta {
	meta := domain.ServiceMeta{
		Name:           m.Name,
		Folder:         m.Folder,
		Tasks:          append([]string(nil), m.Tasks...),
		Kind:           m.Kind,
		ExamplePayload: m.ExamplePayload,
		Models:         m.Models,
	}
	if m.Provider != nil {
		meta.Provider = *m.Provider
	}
	return meta
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	var problems []string

	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "name is required")
	}
	if len(m.Tasks) == 0 {
		problems = append(problems, "at least one task is required")
	}
	for _, task := range m.Tasks {
		if !taskNamePattern.MatchString(task) {
			problems = append(problems, fmt.Sprintf("invalid task name %q", task))
		}
	}
	if !m.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("invalid kind %q", m.Kind))
	}
	if m.ExamplePayload != "" && !json.Valid([]byte(m.ExamplePayload)) {
		problems = append(problems, "example_payload is not valid JSON")
	}

	if len(problems) > 0 {
		return domain.ValidationError(
			fmt.Sprintf("manifest %s: %s", m.Name, strings.Join(problems, "; ")),
			nil,
		)
	}
	return nil
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NotFoundError(fmt.Sprintf("manifest not found: %s", path), err)
		}
		return nil, domain.IOError(fmt.Sprintf("failed to read manifest %s", path), err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("failed to parse manifest %s", path), err)
	}
	return &m, nil
}

// Encode renders the manifest as JSON with two-space indentation, keys in
// sorted order and a trailing newline.
func Encode(m *Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	// Round-trip through a map so object keys come out sorted at every level.
	var generic map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to normalize manifest: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteIfChanged writes m to path unless the file already holds the same
// content, ignoring surrounding whitespace. It reports whether it wrote.
func WriteIfChanged(path string, m *Manifest) (bool, error) {
	data, err := Encode(m)
	if err != nil {
		return false, err
	}

	if old, err := os.ReadFile(path); err == nil {
		if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(data)) {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, domain.IOError(fmt.Sprintf("failed to create %s", filepath.Dir(path)), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, domain.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return true, nil
}
