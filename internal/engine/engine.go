// Package engine is the rendering surface: it binds a document to a viewport,
// turns it into Canvas2D draw commands and answers hit tests.
package engine

import (
	"errors"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/viewport"
)

var ErrReleased = errors.New("surface released")

// Surface is not safe for concurrent use; the owning session serialises calls.
type Surface struct {
	doc        *document.Document
	container  viewport.Size
	margin     float64
	pixelRatio float64
	layout     viewport.Layout

	graph    *SceneGraph
	sub      *document.Subscription
	released bool
}

func NewSurface(margin float64) *Surface {
	if margin < 0 {
		margin = viewport.DefaultMargin
	}
	return &Surface{margin: margin, pixelRatio: 1, layout: viewport.Layout{Scale: 1, PixelRatio: 1}}
}

// Bind attaches doc to the surface, replacing any previous document.
func (s *Surface) Bind(doc *document.Document) error {
	if s.released {
		return ErrReleased
	}
	s.sub.Unsubscribe()
	s.doc = doc
	s.graph = nil
	s.sub = doc.Subscribe(func(document.Event) { s.graph = nil })
	s.relayout()
	return nil
}

func (s *Surface) Document() *document.Document { return s.doc }

// SetContainer records the on-screen container size and recomputes the
// display layout. Logical document coordinates are unaffected.
func (s *Surface) SetContainer(container viewport.Size, pixelRatio float64) viewport.Layout {
	s.container = container
	s.pixelRatio = pixelRatio
	s.relayout()
	return s.layout
}

// SetDimensions resizes the logical document and refreshes the layout.
func (s *Surface) SetDimensions(width, height int) error {
	if s.released {
		return ErrReleased
	}
	if s.doc == nil {
		return document.ErrInvalidSize
	}
	if err := s.doc.SetSize(width, height); err != nil {
		return err
	}
	s.graph = nil
	s.relayout()
	return nil
}

func (s *Surface) Layout() viewport.Layout { return s.layout }

func (s *Surface) relayout() {
	var docSize viewport.Size
	if s.doc != nil {
		w, h := s.doc.Size()
		docSize = viewport.Size{Width: float64(w), Height: float64(h)}
	}
	s.layout = viewport.Compute(s.container, docSize, s.margin, s.pixelRatio)
}

// SetFilters implements filter.Target.
func (s *Surface) SetFilters(objectID string, stack []filter.Applied) error {
	if s.released {
		return ErrReleased
	}
	if s.doc == nil {
		return document.ErrObjectNotFound
	}
	if err := s.doc.SetFilters(objectID, stack); err != nil {
		return err
	}
	s.graph = nil
	return nil
}

func (s *Surface) sceneGraph() *SceneGraph {
	if s.doc == nil || s.released {
		return nil
	}
	if s.graph == nil {
		s.graph = BuildSceneGraph(s.doc)
	}
	return s.graph
}

// ViewMatrix maps logical document coordinates to backing-store pixels.
func (s *Surface) ViewMatrix() Matrix2D {
	k := s.layout.Scale * s.layout.PixelRatio
	return Scale(k, k)
}

// Render returns the draw commands for the current document and layout.
func (s *Surface) Render() []DrawCommand {
	return CompileDrawCommands(s.sceneGraph(), s.ViewMatrix(), s.layout.BufferWidth, s.layout.BufferHeight)
}

// HitTest returns the topmost object at logical point (x, y).
func (s *Surface) HitTest(x, y float64) string {
	return s.sceneGraph().HitTest(x, y)
}

// HitTestDisplay is HitTest for a point in on-screen display coordinates.
func (s *Surface) HitTestDisplay(x, y float64) string {
	if s.layout.Scale <= 0 {
		return ""
	}
	return s.HitTest(x/s.layout.Scale, y/s.layout.Scale)
}

// Bounds returns an object's axis-aligned bounds in document space.
func (s *Surface) Bounds(objectID string) (Rect, bool) {
	sg := s.sceneGraph()
	if sg == nil {
		return Rect{}, false
	}
	n, ok := sg.NodesByID[objectID]
	if !ok {
		return Rect{}, false
	}
	return n.Bounds, true
}

// Dispose releases the surface. Later calls are no-ops or return ErrReleased.
func (s *Surface) Dispose() {
	s.released = true
	s.sub.Unsubscribe()
	s.sub = nil
	s.doc = nil
	s.graph = nil
}

func (s *Surface) Released() bool { return s.released }
