package project

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("project not found")
	ErrUnauthorized   = errors.New("not the project owner")
	ErrQuotaExceeded  = errors.New("project quota exceeded")
	ErrInvalidRequest = errors.New("invalid project request")
)

// Project is the persisted descriptor of one editable document.
type Project struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Title            string          `json:"title"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	OriginalImageURL string          `json:"originalImageUrl,omitempty"`
	CurrentImageURL  string          `json:"currentImageUrl,omitempty"`
	ThumbnailURL     string          `json:"thumbnailUrl,omitempty"`
	CanvasState      json.RawMessage `json:"canvasState,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ImageRef is the image a fresh canvas is seeded from. An edited image
// supersedes the original upload.
func (p Project) ImageRef() string {
	if p.CurrentImageURL != "" {
		return p.CurrentImageURL
	}
	return p.OriginalImageURL
}

type CreateParams struct {
	Title            string `json:"title"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	OriginalImageURL string `json:"originalImageUrl,omitempty"`
	CurrentImageURL  string `json:"currentImageUrl,omitempty"`
	ThumbnailURL     string `json:"thumbnailUrl,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title           *string         `json:"title,omitempty"`
	Width           *int            `json:"width,omitempty"`
	Height          *int            `json:"height,omitempty"`
	CanvasState     json.RawMessage `json:"canvasState,omitempty"`
	CurrentImageURL *string         `json:"currentImageUrl,omitempty"`
	ThumbnailURL    *string         `json:"thumbnailUrl,omitempty"`
}

// Usage is a user's counters as reported by /api/me.
type Usage struct {
	ProjectsUsed     int `json:"projectsUsed"`
	ExportsThisMonth int `json:"exportsThisMonth"`
}
