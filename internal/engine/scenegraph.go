package engine

import (
	"math"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/filter"
)

// SceneGraph is the render-ready state of a document: one node per object in
// paint order, plus the document bounds every node is clipped to.
type SceneGraph struct {
	Width     float64
	Height    float64
	Nodes     []*SceneNode
	NodesByID map[string]*SceneNode
}

// SceneNode is a resolved object. Local space is the object's box from (0,0)
// to (Width,Height).
type SceneNode struct {
	ID      string
	Kind    document.ObjectKind
	Matrix  Matrix2D
	Width   float64
	Height  float64
	Opacity float64
	Bounds  Rect

	Shape       document.ShapeType
	Path        []PathCommand
	Fill        string
	Stroke      string
	StrokeWidth float64

	ImageSrc string
	Crop     *document.Crop
	Filters  []filter.Applied

	Text *document.TextData
}

// PathCommand is one Canvas2D path segment: ["M", x, y], ["L", x, y],
// ["C", x1, y1, x2, y2, x, y] or ["Z"].
type PathCommand []interface{}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the overlap of r and other, empty if they are disjoint.
func (r Rect) Intersect(other Rect) Rect {
	x0, y0 := max(r.X, other.X), max(r.Y, other.Y)
	x1, y1 := min(r.X+r.Width, other.X+other.Width), min(r.Y+r.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// BuildSceneGraph resolves every object of doc.
func BuildSceneGraph(doc *document.Document) *SceneGraph {
	w, h := doc.Size()
	sg := &SceneGraph{
		Width:     float64(w),
		Height:    float64(h),
		NodesByID: make(map[string]*SceneNode),
	}
	for _, obj := range doc.Objects() {
		node := buildNode(obj)
		sg.Nodes = append(sg.Nodes, node)
		sg.NodesByID[node.ID] = node
	}
	return sg
}

func buildNode(obj document.Object) *SceneNode {
	w, h := obj.SourceSize()
	node := &SceneNode{
		ID:      obj.ID,
		Kind:    obj.Kind,
		Matrix:  ObjectMatrix(obj.Transform, w, h),
		Width:   w,
		Height:  h,
		Opacity: obj.Opacity,
	}
	node.Bounds = node.Matrix.TransformRect(Rect{Width: w, Height: h})

	switch obj.Kind {
	case document.KindImage:
		node.ImageSrc = obj.Image.Src
		node.Crop = obj.Image.Crop
		node.Filters = obj.Filters
	case document.KindText:
		node.Text = obj.Text
		node.Fill = obj.Text.Fill
	case document.KindShape:
		node.Fill = obj.Shape.Fill
		node.Stroke = obj.Shape.Stroke
		node.StrokeWidth = obj.Shape.StrokeWidth
		node.Shape = obj.Shape.Shape
		if obj.Shape.Shape == document.ShapeEllipse {
			node.Path = ellipsePath(w, h)
		} else {
			node.Path = rectPath(0, 0, w, h)
		}
	}
	return node
}

func rectPath(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// kappa places cubic control points so four curves approximate a quarter
// ellipse each.
var kappa = 4 * (math.Sqrt2 - 1) / 3

func ellipsePath(w, h float64) []PathCommand {
	rx, ry := w/2, h/2
	ox, oy := rx*kappa, ry*kappa
	cx, cy := rx, ry
	return []PathCommand{
		{"M", cx - rx, cy},
		{"C", cx - rx, cy - oy, cx - ox, cy - ry, cx, cy - ry},
		{"C", cx + ox, cy - ry, cx + rx, cy - oy, cx + rx, cy},
		{"C", cx + rx, cy + oy, cx + ox, cy + ry, cx, cy + ry},
		{"C", cx - ox, cy + ry, cx - rx, cy + oy, cx - rx, cy},
		{"Z"},
	}
}

// Contains reports whether document point (x, y) lies inside the node's
// transformed box.
func (n *SceneNode) Contains(x, y float64) bool {
	if !n.Bounds.Contains(x, y) {
		return false
	}
	inv, ok := n.Matrix.Invert()
	if !ok {
		return false
	}
	lx, ly := inv.TransformPoint(x, y)
	if lx < 0 || ly < 0 || lx > n.Width || ly > n.Height {
		return false
	}
	if n.Shape == document.ShapeEllipse {
		dx := (lx - n.Width/2) / (n.Width / 2)
		dy := (ly - n.Height/2) / (n.Height / 2)
		return dx*dx+dy*dy <= 1
	}
	return true
}

// HitTest returns the topmost object under document point (x, y). Points
// outside the document bounds never hit.
func (sg *SceneGraph) HitTest(x, y float64) string {
	if sg == nil || !(Rect{Width: sg.Width, Height: sg.Height}).Contains(x, y) {
		return ""
	}
	for i := len(sg.Nodes) - 1; i >= 0; i-- {
		if sg.Nodes[i].Contains(x, y) {
			return sg.Nodes[i].ID
		}
	}
	return ""
}
