package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// HTTPHandler exposes the upload service over HTTP. The wizard front end
// posts photos and slips here and references them by id afterwards.
type HTTPHandler struct {
	Service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Upload handles "POST /api/uploads". The multipart form carries the file
// under "file" and its purpose under "kind".
func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, `{"error": "failed to parse form"}`, http.StatusBadRequest)
		return
	}

	kind := Kind(r.FormValue("kind"))
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error": "file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	metadata, err := h.Service.Upload(r.Context(), kind, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, errUnknownKind):
		http.Error(w, `{"error": "unsupported file type"}`, http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, ErrFileTooLarge):
		http.Error(w, `{"error": "file too large"}`, http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "upload failed", "error", err)
		http.Error(w, `{"error": "upload failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metadata)
}

// Download handles "GET /api/uploads/{key...}" and streams the file back.
func (h *HTTPHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/uploads/")
	if key == "" {
		http.Error(w, `{"error": "key is required"}`, http.StatusBadRequest)
		return
	}

	reader, contentType, err := h.Service.Download(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error": "file not found"}`, http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	io.Copy(w, reader)
}
