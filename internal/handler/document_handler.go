package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/apierror"
)

type DocumentHandler struct {
	service       *service.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(service *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{service: service, maxUploadSize: maxUploadSize}
}

// Upload accepts one or more "files" parts attached to a task.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	taskID := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.BadRequest("invalid multipart body", ""))
		return
	}

	uploaded := []model.Document{}
	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
				return
			}
			writeError(w, apierror.BadRequest("invalid multipart stream", nextErr.Error()))
			return
		}

		if part.FormName() != "files" || strings.TrimSpace(part.FileName()) == "" {
			_ = part.Close()
			continue
		}

		doc, uploadErr := h.service.Upload(r.Context(), taskID, part.FileName(), part, claims)
		_ = part.Close()
		if uploadErr != nil {
			if isPayloadTooLarge(uploadErr) {
				writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
				return
			}
			writeError(w, uploadErr)
			return
		}

		uploaded = append(uploaded, doc)
	}

	if len(uploaded) == 0 {
		writeError(w, apierror.BadRequest("no files in request", "files"))
		return
	}

	writeSuccess(w, http.StatusCreated, uploaded, nil)
}

func (h *DocumentHandler) ListForTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	documents, err := h.service.ListForTask(r.Context(), chi.URLParam(r, "id"), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, documents, nil)
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	doc, file, info, err := h.service.Download(r.Context(), chi.URLParam(r, "document_id"), claims)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	http.ServeContent(w, r, doc.Name, info.ModTime(), file)
}

func (h *DocumentHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	size := parseIntOrDefault(r.URL.Query().Get("size"), 256)
	if size < 32 {
		size = 32
	}
	if size > 2048 {
		size = 2048
	}

	file, info, err := h.service.Thumbnail(r.Context(), chi.URLParam(r, "document_id"), size, claims)
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "UNSUPPORTED_TYPE" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": info.Name()}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "document_id"), claims); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	var apiErr *apierror.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusRequestEntityTooLarge
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
