package engine

import (
	"math"

	"github.com/pixora/pixora/backend-go/internal/document"
)

// Matrix2D is an affine transform laid out as Canvas2D's setTransform
// arguments [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

func RotateDegrees(degrees float64) Matrix2D {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m * other, i.e. other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect returns the axis-aligned bounds of r after transformation.
func (m Matrix2D) TransformRect(r Rect) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.TransformPoint(r.X, r.Y)
	xs[1], ys[1] = m.TransformPoint(r.X+r.Width, r.Y)
	xs[2], ys[2] = m.TransformPoint(r.X+r.Width, r.Y+r.Height)
	xs[3], ys[3] = m.TransformPoint(r.X, r.Y+r.Height)

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < 4; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of m. ok is false for singular matrices, e.g. an
// object scaled to zero.
func (m Matrix2D) Invert() (inv Matrix2D, ok bool) {
	det := m.Determinant()
	if det == 0 || math.IsNaN(det) {
		return Identity(), false
	}
	d := 1 / det
	return Matrix2D{
		m[3] * d,
		-m[1] * d,
		-m[2] * d,
		m[0] * d,
		(m[2]*m[5] - m[3]*m[4]) * d,
		(m[1]*m[4] - m[0]*m[5]) * d,
	}, true
}

// ObjectMatrix maps an object's local box, with (0,0) at its top-left corner
// and (w,h) at the bottom-right, into document space. The transform's
// Left/Top is the box centre, which is also the rotation and scale origin.
func ObjectMatrix(t document.Transform, w, h float64) Matrix2D {
	return Translate(t.Left, t.Top).
		Multiply(RotateDegrees(t.Angle)).
		Multiply(Scale(t.ScaleX, t.ScaleY)).
		Multiply(Translate(-w/2, -h/2))
}

func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}
