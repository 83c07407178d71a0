// Package viewport maps a document's logical size onto a bounded container.
package viewport

import "math"

// DefaultMargin is the total padding subtracted from each container dimension.
const DefaultMargin = 40.0

// Size is a width/height pair in container or document units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the presentational mapping of a document into a container.
// The logical coordinate space used for object placement is never changed by it.
type Layout struct {
	Scale         float64 `json:"scale"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	BufferWidth   int     `json:"bufferWidth"`
	BufferHeight  int     `json:"bufferHeight"`
	PixelRatio    float64 `json:"pixelRatio"`
}

// Scale returns the uniform factor that fits doc inside container minus margin.
// It never exceeds 1: documents are downscaled to fit but never upscaled.
// Degenerate inputs yield 1.
func Scale(container, doc Size, margin float64) float64 {
	cw := container.Width - margin
	ch := container.Height - margin
	if cw <= 0 || ch <= 0 || doc.Width <= 0 || doc.Height <= 0 {
		return 1
	}
	if isBad(cw) || isBad(ch) || isBad(doc.Width) || isBad(doc.Height) {
		return 1
	}
	return min(cw/doc.Width, ch/doc.Height, 1)
}

// Compute builds the full layout for doc rendered in container on a display with
// the given pixel density. The backing buffer is the display size multiplied by
// the density so that high-DPI screens are not blurred.
func Compute(container, doc Size, margin, pixelRatio float64) Layout {
	if pixelRatio < 1 || isBad(pixelRatio) {
		pixelRatio = 1
	}
	s := Scale(container, doc, margin)
	dw := doc.Width * s
	dh := doc.Height * s
	return Layout{
		Scale:         s,
		DisplayWidth:  dw,
		DisplayHeight: dh,
		BufferWidth:   int(math.Round(dw * pixelRatio)),
		BufferHeight:  int(math.Round(dh * pixelRatio)),
		PixelRatio:    pixelRatio,
	}
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
