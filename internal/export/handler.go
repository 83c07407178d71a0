package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/pixora/pixora/backend-go/internal/auth"
	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/project"
)

// ErrBackgroundUnavailable is returned when a project with no saved canvas
// cannot load its background image.
var ErrBackgroundUnavailable = errors.New("background image unavailable")

// Projects is the slice of the project service exports need.
type Projects interface {
	Get(ctx context.Context, projectID, userID string) (*project.Project, error)
	ReserveExport(ctx context.Context, projectID, userID, format string, width, height int) (string, error)
	ReleaseExport(ctx context.Context, exportID string) error
}

// Images resolves background sizes for hydration and pixels for drawing.
type Images interface {
	document.ImageLoader
	ImageSource
}

const releaseTimeout = 5 * time.Second

type Handler struct {
	projects Projects
	images   Images
	renderer *Renderer
	metrics  *Metrics
}

func NewHandler(projects Projects, images Images, metrics *Metrics) *Handler {
	return &Handler{
		projects: projects,
		images:   images,
		renderer: NewRenderer(images),
		metrics:  metrics,
	}
}

type exportRequest struct {
	Format  string  `json:"format"`
	Scale   float64 `json:"scale"`
	Quality int     `json:"quality"`
}

// Export handles POST /api/projects/{projectId}/export and streams the
// rendered image back as an attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	projectID := mux.Vars(r)["projectId"]

	var req exportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	opts := Options{Format: format, Scale: req.Scale, Quality: req.Quality}

	proj, err := h.projects.Get(ctx, projectID, userID)
	if err != nil {
		h.fail(w, format, err)
		return
	}

	doc, err := document.Hydrate(ctx, document.HydrateInput{
		Snapshot:      proj.CanvasState,
		BackgroundRef: proj.ImageRef(),
		Width:         proj.Width,
		Height:        proj.Height,
	}, h.images)
	if err != nil {
		var herr *document.HydrationError
		switch {
		case !errors.As(err, &herr):
			h.fail(w, format, err)
			return
		case herr.Source == "background":
			h.fail(w, format, fmt.Errorf("%w: %v", ErrBackgroundUnavailable, err))
			return
		}
		slog.Warn("export of partially loaded project", "project", projectID, "error", err)
	}

	width, height, err := OutputSize(doc, opts)
	if err != nil {
		h.fail(w, format, err)
		return
	}
	exportID, err := h.projects.ReserveExport(ctx, projectID, userID, string(format), width, height)
	if err != nil {
		h.fail(w, format, err)
		return
	}

	start := time.Now()
	img, err := h.renderer.Render(ctx, doc, opts)
	h.metrics.observeRender(time.Since(start).Seconds())
	var buf bytes.Buffer
	if err == nil {
		err = Encode(&buf, img, opts)
	}
	if err != nil {
		h.release(exportID, projectID)
		h.fail(w, format, err)
		return
	}
	h.metrics.record(format, "ok")

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, fileName(proj.Title), format.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("write export", "project", projectID, "error", err)
	}
}

// release refunds a reservation. The request context may already be done.
func (h *Handler) release(exportID, projectID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := h.projects.ReleaseExport(ctx, exportID); err != nil {
		slog.Error("release export", "error", err, "project", projectID, "export", exportID)
	}
}

func (h *Handler) fail(w http.ResponseWriter, format Format, err error) {
	var quota *project.QuotaError
	switch {
	case errors.As(err, &quota):
		h.metrics.record(format, "quota")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": quota.Reason, "code": "quota_exceeded"})
	case errors.Is(err, project.ErrNotFound):
		h.metrics.record(format, "error")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, project.ErrUnauthorized):
		h.metrics.record(format, "error")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrInvalidScale):
		h.metrics.record(format, "error")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrBackgroundUnavailable):
		h.metrics.record(format, "error")
		slog.Error("export failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "background image unavailable"})
	default:
		h.metrics.record(format, "error")
		slog.Error("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// fileName keeps a download name to letters, digits, dashes and underscores.
func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.TrimSpace(title))
	if strings.Trim(name, "-") == "" {
		return "pixora-export"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
