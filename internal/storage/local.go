package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
)

const (
	chunkSize   = 1024 * 1024
	pdfMagic    = "%PDF-"
	defaultName = "file.pdf"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SavedFile describes a file written by LocalStorage.
type SavedFile struct {
	Filename  string `json:"filename"`
	StoredAs  string `json:"stored_as"`
	Path      string `json:"path"`
	RelPath   string `json:"rel_path"`
	SizeBytes int64  `json:"size_bytes"`
}

// LocalStorage stores uploaded PDFs on the local disk under BaseDir/Subdir.
type LocalStorage struct {
	baseDir  string
	subdir   string
	maxBytes int64
	newID    func() string
}

// NewLocalStorage creates a LocalStorage from upload settings.
func NewLocalStorage(cfg config.UploadsConfig) *LocalStorage {
	subdir := cfg.Subdir
	if subdir == "" {
		subdir = "pdf"
	}
	maxMB := cfg.MaxMB
	if maxMB <= 0 {
		maxMB = 20
	}
	return &LocalStorage{
		baseDir:  cfg.Dir,
		subdir:   subdir,
		maxBytes: int64(maxMB) * 1024 * 1024,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// BaseDir returns the storage root.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// MaxBytes returns the upload size limit.
func (s *LocalStorage) MaxBytes() int64 {
	return s.maxBytes
}

// SanitizeFilename reduces name to its base name with every run of characters
// outside [A-Za-z0-9._-] replaced by an underscore.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	if safe == "" {
		return defaultName
	}
	return safe
}

// SavePDF streams r to disk. The content must start with the PDF magic
// bytes and must not exceed MaxBytes; on overflow the partial file is
// removed.
func (s *LocalStorage) SavePDF(ctx context.Context, filename string, r io.Reader) (*SavedFile, error) {
	if r == nil || strings.TrimSpace(filename) == "" {
		return nil, domain.ValidationError("No file uploaded", nil)
	}
	safe := SanitizeFilename(filename)

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, domain.IOError("failed to read upload", err)
	}
	if string(head[:n]) != pdfMagic {
		return nil, domain.ValidationError("Invalid PDF (missing %PDF- header).", nil)
	}

	dir := filepath.Join(s.baseDir, s.subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.StorageError(fmt.Sprintf("failed to create %s", dir), err)
	}

	storedAs := s.newID() + "_" + safe
	dest := filepath.Join(dir, storedAs)
	out, err := os.Create(dest)
	if err != nil {
		return nil, domain.StorageError("failed to create upload file", err)
	}

	total, err := s.copyLimited(ctx, out, io.MultiReader(bytes.NewReader(head[:n]), r))
	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = domain.StorageError("failed to close upload file", closeErr)
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, err
	}

	return &SavedFile{
		Filename:  safe,
		StoredAs:  storedAs,
		Path:      dest,
		RelPath:   filepath.ToSlash(filepath.Join(s.subdir, storedAs)),
		SizeBytes: total,
	}, nil
}

func (s *LocalStorage) copyLimited(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return total, domain.StorageError("failed to write upload", err)
			}
			total += int64(n)
			if total > s.maxBytes {
				return total, domain.TooLargeError(
					fmt.Sprintf("File too large (> %d MB).", s.maxBytes/(1024*1024)), nil)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return total, nil
		}
		if readErr != nil {
			return total, domain.IOError("failed to read upload", readErr)
		}
	}
}

// Resolve maps a storage-relative path such as "pdf/<id>_doc.pdf" to an
// absolute path inside the storage root.
func (s *LocalStorage) Resolve(relPath string) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", domain.ValidationError("rel_path is required", nil)
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || strings.HasPrefix(relPath, "/") {
		return "", domain.ValidationError(fmt.Sprintf("rel_path must be relative: %s", relPath), nil)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.ValidationError(fmt.Sprintf("rel_path escapes the upload directory: %s", relPath), nil)
	}

	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", domain.StorageError("failed to resolve upload directory", err)
	}
	full := filepath.Join(base, clean)

	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NotFoundError(fmt.Sprintf("File not found: %s", relPath), err)
		}
		return "", domain.StorageError(fmt.Sprintf("failed to stat %s", relPath), err)
	}
	if fi.IsDir() {
		return "", domain.ValidationError(fmt.Sprintf("rel_path is a directory: %s", relPath), nil)
	}
	return full, nil
}
