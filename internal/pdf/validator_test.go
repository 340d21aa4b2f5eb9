package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidatePDFPath(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	good := write("good.pdf", "%PDF-1.4\n")
	upper := write("UPPER.PDF", "%PDF-1.7")
	noHeader := write("fake.pdf", "hello world")
	short := write("short.pdf", "%P")
	txt := write("notes.txt", "%PDF-1.4")
	subdir := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid", good, false},
		{"uppercase extension", upper, false},
		{"empty path", "  ", true},
		{"missing", filepath.Join(dir, "missing.pdf"), true},
		{"directory", subdir, true},
		{"wrong extension", txt, true},
		{"missing header", noHeader, true},
		{"truncated header", short, true},
	}

	v := NewValidator(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidatePDFPath(tc.path)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
		})
	}
}
