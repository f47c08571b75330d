package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crypto-vantro/apiserver/internal/storage"
)

const (
	maxImageMemory = 16 << 20
	maxImageBytes  = 10 << 20
	formFieldImage = "image"
)

// ImageHandler stores and serves product images through object storage.
type ImageHandler struct {
	storage *storage.Storage
}

// NewImageHandler constructs a handler with the provided storage. storage
// may be nil, in which case every route answers 503.
func NewImageHandler(store *storage.Storage) *ImageHandler {
	return &ImageHandler{storage: store}
}

// ImageRouter registers image routes on the given router. Uploading and
// deleting require authentication; downloading does not.
func ImageRouter(r chi.Router, store *storage.Storage, authMiddleware func(http.Handler) http.Handler) {
	handler := NewImageHandler(store)

	r.With(authMiddleware).Post("/uploadimage", handler.UploadImage)
	r.With(authMiddleware).Delete("/image/*", handler.DeleteImage)
	r.Get("/image/*", handler.GetImage)
}

// UploadImage stores a multipart image and returns the object key to place
// in a product's image field.
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}

	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := imageFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%s/%s%s", subjectID, uuid.NewString(), path.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusCreated, ImageResponse{Image: key})
}

// GetImage streams a stored image back to the client.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}

	key := chi.URLParam(r, "*")
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "image key is required")
		return
	}

	object, contentType, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer object.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, object); err != nil {
		// Headers already sent; nothing left to report to the client.
		return
	}
}

// DeleteImage removes an image the authenticated subject uploaded. Keys are
// prefixed with the uploader's id, so ownership is a prefix check.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}

	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	key := chi.URLParam(r, "*")
	if !strings.HasPrefix(key, subjectID+"/") {
		writeError(w, http.StatusForbidden, "You do not have permission to access this image.")
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImageResponse returns the storage key of an uploaded image.
type ImageResponse struct {
	Image string `json:"image"`
}

func imageFile(form *multipart.Form) (multipart.File, *multipart.FileHeader, error) {
	if form == nil {
		return nil, nil, errors.New("missing form data")
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return nil, nil, errors.New("image file is required")
	}
	if len(files) > 1 {
		return nil, nil, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return file, fileHeader, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
