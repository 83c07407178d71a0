package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="photo.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestHandler(t *testing.T) (*Handler, *LocalStore, http.Handler) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	h := NewHandler(store)
	r := mux.NewRouter()
	r.HandleFunc("/assets/upload", h.Upload).Methods("POST")
	r.HandleFunc("/assets/{key}", h.Serve).Methods("GET")
	return h, store, r
}

func TestUploadServeAndLoad(t *testing.T) {
	_, store, router := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "image/png", pngBytes(t, 40, 30)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Width != 40 || resp.Height != 30 || resp.Type != "png" {
		t.Errorf("upload response = %+v", resp)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("serve status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}

	loader := NewLoader(store)
	w, h, err := loader.ImageSize(context.Background(), "https://cdn.example.com"+resp.URL)
	if err != nil || w != 40 || h != 30 {
		t.Errorf("ImageSize = %dx%d, %v", w, h, err)
	}
	img, err := loader.Image(context.Background(), resp.URL)
	if err != nil || img.Bounds().Dx() != 40 {
		t.Errorf("Image = %v, %v", img, err)
	}
}

func TestUploadRejects(t *testing.T) {
	_, _, router := newTestHandler(t)

	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"wrong type", "image/gif", []byte("GIF89a")},
		{"corrupt png", "image/png", []byte("not a png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, tt.contentType, tt.data))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestServeMissing(t *testing.T) {
	_, _, router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/asset_nope.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestKeyFromRef(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"/assets/asset_1.png", "asset_1.png", false},
		{"https://cdn.example.com/assets/asset_2.png", "asset_2.png", false},
		{"/assets/../etc/passwd", "", true},
		{"/uploads/asset_3.png", "", true},
		{"/assets/", "", true},
	}
	for _, tt := range tests {
		got, err := KeyFromRef(tt.ref)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("KeyFromRef(%q) = %q, %v", tt.ref, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("KeyFromRef(%q) err = %v, want ErrInvalidKey", tt.ref, err)
		}
	}
}
