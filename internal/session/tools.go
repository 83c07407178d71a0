package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/engine"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/project"
	"github.com/pixora/pixora/backend-go/internal/resize"
)

const resizingMessage = "Resizing..."

// ApplyResize changes the document size, leaving every object where it is,
// and persists the size with a fresh snapshot in one update. Applying the
// current size is a no-op. If the update fails the new size stays on screen
// and a *ResizeError is returned.
func (s *Session) ApplyResize(ctx context.Context, width, height int) error {
	if err := resize.Validate(width, height); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if w, h := s.doc.Size(); w == width && h == height {
		s.mu.Unlock()
		return nil
	}
	if err := s.surface.SetDimensions(width, height); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.processing = resizingMessage
	s.mu.Unlock()

	start := time.Now()
	err := s.persist(ctx, "resize", func() (project.Patch, error) {
		snap, err := s.doc.Serialize()
		return project.Patch{Width: &width, Height: &height, CanvasState: snap}, err
	})

	s.mu.Lock()
	s.busy = false
	s.processing = ""
	s.mu.Unlock()

	s.metrics.recordResize(err)
	if err != nil {
		if errors.Is(err, ErrDisposed) {
			return err
		}
		return &ResizeError{Width: width, Height: height, Err: err}
	}
	s.logger.Info("canvas resized", "project", s.projectIDSafe(), "width", width, "height", height, "took", time.Since(start))
	return nil
}

// activeImageLocked is the selected object when it is an image, otherwise
// the first image in paint order.
func (s *Session) activeImageLocked() string {
	if s.doc == nil {
		return ""
	}
	if s.activeObject != "" {
		if o, ok := s.doc.Object(s.activeObject); ok && o.Kind == document.KindImage {
			return o.ID
		}
	}
	for _, o := range s.doc.Objects() {
		if o.Kind == document.KindImage {
			return o.ID
		}
	}
	return ""
}

// FilterValues returns the adjust tool's current slider values.
func (s *Session) FilterValues() filter.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterValues.Clone()
}

// SetFilterValue moves one slider and applies the full value set.
func (s *Session) SetFilterValue(kind filter.Kind, ui float64) error {
	if !kind.Valid() {
		return fmt.Errorf("set filter: unknown kind %d", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	s.filterValues = s.filterValues.With(kind, ui)
	return s.requestApplyLocked()
}

// ApplyFilters replaces every slider value and applies them.
func (s *Session) ApplyFilters(values filter.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	next := filter.Defaults()
	for k, v := range values {
		if k.Valid() {
			next = next.With(k, v)
		}
	}
	s.filterValues = next
	return s.requestApplyLocked()
}

// requestApplyLocked applies immediately, or marks the values dirty when an
// apply is still settling so that the settle re-applies the latest set.
func (s *Session) requestApplyLocked() error {
	if s.filterApplying {
		s.filterDirty = true
		return nil
	}
	return s.applyFiltersLocked(s.activeImageLocked())
}

// applyFiltersLocked writes the slider values to img and opens a settle
// window bound to it.
func (s *Session) applyFiltersLocked(img string) error {
	if img == "" {
		return ErrNoActiveImage
	}
	_, err := filter.Apply(s.surface, img, s.filterValues)
	s.metrics.recordFilterApply(err)
	if err != nil {
		s.logger.Warn("apply filters failed", "project", s.projectID, "object", img, "error", err)
		return err
	}

	s.filterApplying = true
	s.filterTarget = img
	s.filterGen++
	gen := s.filterGen
	s.filterTimer = time.AfterFunc(s.cfg.FilterSettleDelay, func() { s.filterSettled(gen) })
	return nil
}

func (s *Session) filterSettled(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.filterGen || s.state != StateReady {
		return
	}
	s.filterApplying = false
	s.filterTimer = nil
	if s.filterDirty {
		s.filterDirty = false
		if _, ok := s.doc.Object(s.filterTarget); ok {
			_ = s.applyFiltersLocked(s.filterTarget)
		}
	}
}

// flushFiltersLocked writes values still waiting on a settle to the image
// they were set for, then closes the settle window.
func (s *Session) flushFiltersLocked() {
	if s.filterDirty && s.filterTarget != "" {
		if _, ok := s.doc.Object(s.filterTarget); ok {
			_, err := filter.Apply(s.surface, s.filterTarget, s.filterValues)
			s.metrics.recordFilterApply(err)
			if err != nil {
				s.logger.Warn("flush filters failed", "project", s.projectID, "object", s.filterTarget, "error", err)
			}
		}
	}
	if s.filterTimer != nil {
		s.filterTimer.Stop()
		s.filterTimer = nil
	}
	s.filterGen++
	s.filterApplying = false
	s.filterDirty = false
	s.filterTarget = ""
}

// ResetFilters clears the active image's stack and returns the defaults.
func (s *Session) ResetFilters() (filter.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	img := s.activeImageLocked()
	if img == "" {
		return nil, ErrNoActiveImage
	}
	values, err := filter.Reset(s.surface, img)
	if err != nil {
		s.logger.Warn("reset filters failed", "project", s.projectID, "object", img, "error", err)
		return nil, err
	}
	s.filterDirty = false
	s.filterValues = values
	return values.Clone(), nil
}

// TextSpec describes text added by the text tool.
type TextSpec = document.TextData

// AddText places a text object at the document centre and selects it.
func (s *Session) AddText(spec TextSpec) (document.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return document.Object{}, err
	}
	if spec.Text == "" {
		spec.Text = "Edit me"
	}
	w, h := s.doc.Size()
	obj, err := s.doc.Add(document.NewText(spec, document.IdentityAt(float64(w)/2, float64(h)/2)))
	if err != nil {
		return document.Object{}, err
	}
	s.activeObject = obj.ID
	return obj, nil
}

// ApplyCrop crops the active image to the largest centred rectangle of the
// preset's ratio. Freeform clears the crop.
func (s *Session) ApplyCrop(presetLabel string) (document.Object, error) {
	preset, ok := resize.CropPresetByLabel(presetLabel)
	if !ok {
		return document.Object{}, fmt.Errorf("%w: %q", ErrUnknownPreset, presetLabel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return document.Object{}, err
	}
	img := s.activeImageLocked()
	if img == "" {
		return document.Object{}, ErrNoActiveImage
	}
	err := s.doc.Modify(img, func(o *document.Object) {
		if preset.Ratio == 0 {
			o.Image.Crop = nil
			return
		}
		r := resize.CropRect(int(o.Width), int(o.Height), preset.Ratio)
		o.Image.Crop = &document.Crop{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	})
	if err != nil {
		return document.Object{}, err
	}
	obj, _ := s.doc.Object(img)
	return obj, nil
}

// Select makes id the active object. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	if id == "" {
		s.activeObject = ""
		if s.filterTarget != "" && s.activeImageLocked() != s.filterTarget {
			s.flushFiltersLocked()
		}
		return nil
	}
	o, ok := s.doc.Object(id)
	if !ok {
		return fmt.Errorf("select %s: %w", id, document.ErrObjectNotFound)
	}
	s.activeObject = id
	if s.filterTarget != "" && s.activeImageLocked() != s.filterTarget {
		s.flushFiltersLocked()
	}
	if o.Kind == document.KindImage && !s.filterDirty {
		s.filterValues = filter.Extract(o.Filters)
	}
	return nil
}

func (s *Session) ActiveObject() (document.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.activeObject == "" {
		return document.Object{}, false
	}
	return s.doc.Object(s.activeObject)
}

// Object returns a copy of one object.
func (s *Session) Object(id string) (document.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return document.Object{}, false
	}
	return s.doc.Object(id)
}

func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	return s.doc.Remove(id)
}

// Transform replaces an object's transform.
func (s *Session) Transform(id string, t document.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	return s.doc.Modify(id, func(o *document.Object) { o.Transform = t })
}

// Snapshot is the display copy of the document.
func (s *Session) Snapshot() (document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return document.Snapshot{}, ErrNotReady
	}
	return s.doc.View(), nil
}

func (s *Session) Render() []engine.DrawCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil
	}
	return s.surface.Render()
}

// HitTest returns the topmost object at document point (x, y).
func (s *Session) HitTest(x, y float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return ""
	}
	return s.surface.HitTest(x, y)
}

// HitTestDisplay is HitTest for a point in display pixels of the viewport.
func (s *Session) HitTestDisplay(x, y float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return ""
	}
	return s.surface.HitTestDisplay(x, y)
}
