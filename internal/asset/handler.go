package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	_ "image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
	_ "golang.org/x/image/webp"

	"github.com/pixora/pixora/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

const immutableCache = "public, max-age=31536000, immutable"

// URLPrefix is the path assets are served under and the prefix of every
// asset reference stored in projects.
const URLPrefix = "/assets/"

var acceptedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Every upload is normalised to PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	if !accepted(header.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PNG, JPEG and WebP images are supported"})
		return
	}

	// Phone photos carry their rotation in EXIF.
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image: " + err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		slog.Error("encode png", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode image"})
		return
	}

	assetID := typeid.NewAssetID()
	key := assetID + ".png"
	if err := h.store.Put(r.Context(), key, "image/png", &buf); err != nil {
		slog.Error("store asset", "error", err, "key", key)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	bounds := img.Bounds()
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:     assetID,
		URL:    URLPrefix + key,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
		Name:   header.Filename,
	})
}

// Serve handles GET /assets/{key}. Asset keys are unique, so responses are
// cached as immutable.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rc, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) {
			http.NotFound(w, r)
			return
		}
		slog.Error("open asset", "error", err, "key", key)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentTypeFor(key))
	w.Header().Set("Cache-Control", immutableCache)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("serve asset", "error", err, "key", key)
	}
}

// KeyFromRef extracts the store key from an asset reference such as
// "/assets/asset_x.png" or "https://cdn.example/assets/asset_x.png".
func KeyFromRef(ref string) (string, error) {
	i := strings.LastIndex(ref, URLPrefix)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, ref)
	}
	key := ref[i+len(URLPrefix):]
	if err := validKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func accepted(contentType string) bool {
	for _, t := range acceptedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
