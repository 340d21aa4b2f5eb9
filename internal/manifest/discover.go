package manifest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// Code file names, in order of preference.
const (
	ServiceFile = "service.go"
	PluginFile  = "plugin.go"
	ReadmeFile  = "README.md"
)

// Entry is a service folder found on disk. File paths are relative to the
// repository root and use forward slashes.
type Entry struct {
	Folder       string
	Kind         domain.Kind
	Dir          string
	CodeFile     string
	ReadmeFile   string
	ManifestFile string
}

// Discover lists the folders under root/servicesDir that hold a code file.
// Services accept service.go or, failing that, plugin.go; plugins require
// plugin.go. Folders are returned in name order.
func Discover(root, servicesDir string, kind domain.Kind) ([]Entry, error) {
	candidates := []string{ServiceFile, PluginFile}
	if kind == domain.KindPlugin {
		candidates = []string{PluginFile}
	}

	base := filepath.Join(root, servicesDir)
	dirents, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.IOError(fmt.Sprintf("failed to read %s", base), err)
	}

	relBase := filepath.ToSlash(filepath.Clean(servicesDir))
	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(base, d.Name())

		code := ""
		for _, name := range candidates {
			if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
				code = name
				break
			}
		}
		if code == "" {
			continue
		}

		entries = append(entries, Entry{
			Folder:       d.Name(),
			Kind:         kind,
			Dir:          dir,
			CodeFile:     path.Join(relBase, d.Name(), code),
			ReadmeFile:   path.Join(relBase, d.Name(), ReadmeFile),
			ManifestFile: path.Join(relBase, d.Name(), FileName),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Folder < entries[j].Folder })
	return entries, nil
}
