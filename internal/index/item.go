// Package index renders, parses and lints the services overview page and the
// per-service README and manifest files it links to.
package index

import (
	"path/filepath"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/manifest"
)

// Item is one indexed service: its metadata and where its files live.
type Item struct {
	Meta  domain.ServiceMeta
	Entry manifest.Entry
}

// Collect pairs discovered folders with metadata. Metadata is taken from
// known (matched by folder, then by name), then from the folder's existing
// manifest, and finally defaults to the folder name with no tasks.
func Collect(root string, entries []manifest.Entry, known []domain.ServiceMeta) []Item {
	byFolder := make(map[string]domain.ServiceMeta, len(known))
	byName := make(map[string]domain.ServiceMeta, len(known))
	for _, m := range known {
		if m.Folder != "" {
			byFolder[m.Folder] = m
		}
		byName[m.Name] = m
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		meta, ok := byFolder[e.Folder]
		if !ok {
			meta, ok = byName[e.Folder]
		}
		if !ok {
			if m, err := manifest.Load(filepath.Join(root, filepath.FromSlash(e.ManifestFile))); err == nil {
				meta, ok = m.Meta(), true
			}
		}
		if !ok {
			meta = domain.ServiceMeta{Name: e.Folder}
		}

		if meta.Name == "" {
			meta.Name = e.Folder
		}
		meta.Folder = e.Folder
		meta.Kind = e.Kind
		meta.Tasks = append([]string(nil), meta.Tasks...)

		items = append(items, Item{Meta: meta, Entry: e})
	}
	return items
}
