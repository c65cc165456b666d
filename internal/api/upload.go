package api

import (
	"log/slog"
	"net/http"

	"github.com/borgframework/borg/internal/extract"
	"github.com/borgframework/borg/internal/storage"
)

const maxUploadSize = 32 << 20 // 32 MB

const previewLimit = 500

// uploadFile stores an uploaded file and extracts its text content so
// workflows can use it as trigger payloads or data sources.
// POST /api/upload (multipart form, field "file")
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "file storage not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	info, err := s.storage.Save(r.Context(), header.Filename, contentType, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Extraction failure doesn't fail the upload; the raw file is kept.
	if _, reader, err := s.storage.Get(r.Context(), info.ID); err == nil {
		text, exErr := extract.Extract(contentType, reader)
		reader.Close()
		if exErr != nil {
			slog.Warn("text extraction failed", "file", info.ID, "err", exErr)
		} else if text != "" {
			info.ExtractedText = text
			info.PreviewText = preview(text)
			if err := s.storage.UpdateInfo(r.Context(), info); err != nil {
				slog.Warn("failed to store extracted text", "file", info.ID, "err", err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, info)
}

// listFiles returns metadata for all uploaded files.
// GET /api/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	files, err := s.storage.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	// Full extracted text can be large; the list only carries previews.
	for i := range files {
		files[i].ExtractedText = ""
	}
	writeJSON(w, http.StatusOK, files)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}
