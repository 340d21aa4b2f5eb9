package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
)

// multipart overhead allowed on top of the file size limit
const formOverheadBytes = 1 << 20

// UploadHandler serves PDF uploads.
type UploadHandler struct {
	logger  *observability.Logger
	files   PDFStore
	uploads UploadStore
}

// NewUploadHandler creates a new upload handler. uploads may be nil.
func NewUploadHandler(logger *observability.Logger, files PDFStore, uploads UploadStore) *UploadHandler {
	if logger == nil {
		logger = observability.Nop()
	}
	return &UploadHandler{logger: logger, files: files, uploads: uploads}
}

// UploadResponse is returned by POST /uploads/pdf.
type UploadResponse struct {
	OK        bool   `json:"ok"`
	Filename  string `json:"filename"`
	StoredAs  string `json:"stored_as"`
	Path      string `json:"path"`
	RelPath   string `json:"rel_path"`
	SizeBytes int64  `json:"size_bytes"`
}

// UploadPDF handles POST /uploads/pdf with a multipart "file" field.
func (h *UploadHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.files == nil {
		writeError(w, h.logger, domain.UnavailableError("upload storage is not configured", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxBytes()+formOverheadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			mb := h.files.MaxBytes() / (1024 * 1024)
			writeError(w, h.logger, domain.TooLargeError("File too large (> "+strconv.FormatInt(mb, 10)+" MB).", err))
			return
		}
		writeError(w, h.logger, domain.ValidationError("No file uploaded", err))
		return
	}
	defer file.Close()

	saved, err := h.files.SavePDF(ctx, header.Filename, file)
	if err != nil {
		writeError(w, h.logger.WithContext(ctx), err)
		return
	}

	if h.uploads != nil {
		rec := &domain.Upload{
			Filename:  saved.Filename,
			StoredAs:  saved.StoredAs,
			RelPath:   saved.RelPath,
			SizeBytes: saved.SizeBytes,
		}
		if err := h.uploads.Create(ctx, rec); err != nil {
			h.logger.WithContext(ctx).Warn().Err(err).Str("stored_as", saved.StoredAs).Msg("Failed to record upload")
		}
	}

	h.logger.WithContext(ctx).Info().
		Str("filename", saved.Filename).
		Str("rel_path", saved.RelPath).
		Int64("size_bytes", saved.SizeBytes).
		Msg("PDF uploaded")

	writeJSON(w, http.StatusOK, UploadResponse{
		OK:        true,
		Filename:  saved.Filename,
		StoredAs:  saved.StoredAs,
		Path:      saved.Path,
		RelPath:   saved.RelPath,
		SizeBytes: saved.SizeBytes,
	})
}

// List handles GET /uploads?limit=N.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		writeError(w, h.logger, domain.UnavailableError("upload records are not configured", nil))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, h.logger, domain.ValidationError("limit must be a positive integer", err))
			return
		}
		limit = n
	}

	uploads, err := h.uploads.List(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}
