// Package export rasterises a document to PNG or JPEG on the server, the
// same way the editor paints it: objects in paint order, clipped to the
// document bounds.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/engine"
	"github.com/pixora/pixora/backend-go/internal/filter"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrInvalidScale  = errors.New("invalid export scale")
)

const (
	maxScale       = 4
	maxOutputPixel = 64 << 20
	loadParallel   = 4
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// ImageSource decodes an image by its asset reference.
type ImageSource interface {
	Image(ctx context.Context, ref string) (image.Image, error)
}

type Options struct {
	Format  Format
	Scale   float64
	Quality int
}

// Renderer draws documents into rasters.
type Renderer struct {
	images ImageSource
}

func NewRenderer(images ImageSource) *Renderer {
	return &Renderer{images: images}
}

// OutputSize is the pixel size Render produces for doc.
func OutputSize(doc *document.Document, opts Options) (width, height int, err error) {
	_, w, h, err := outputSize(doc, opts)
	return w, h, err
}

func outputSize(doc *document.Document, opts Options) (float64, int, int, error) {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 || scale > maxScale || math.IsNaN(scale) {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidScale, opts.Scale)
	}
	dw, dh := doc.Size()
	w := int(math.Round(float64(dw) * scale))
	h := int(math.Round(float64(dh) * scale))
	if w < 1 || h < 1 || w*h > maxOutputPixel {
		return 0, 0, 0, fmt.Errorf("%w: output %dx%d", ErrInvalidScale, w, h)
	}
	return scale, w, h, nil
}

// Render paints doc at the given scale. The output is exactly the document
// rectangle; anything outside it is clipped. PNG output keeps transparency,
// JPEG output is flattened onto white.
func (r *Renderer) Render(ctx context.Context, doc *document.Document, opts Options) (*image.RGBA, error) {
	scale, w, h, err := outputSize(doc, opts)
	if err != nil {
		return nil, err
	}
	sg := engine.BuildSceneGraph(doc)

	sources, err := r.loadImages(ctx, sg)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if opts.Format == FormatJPEG {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	}
	view := engine.Scale(scale, scale)
	for _, node := range sg.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := view.Multiply(node.Matrix)
		switch node.Kind {
		case document.KindImage:
			drawImage(dst, m, node, sources[node.ImageSrc])
		case document.KindShape:
			drawShape(dst, m, node)
		case document.KindText:
			drawText(dst, m, node)
		}
	}
	return dst, nil
}

// loadImages decodes every distinct image the scene references.
func (r *Renderer) loadImages(ctx context.Context, sg *engine.SceneGraph) (map[string]image.Image, error) {
	var refs []string
	seen := make(map[string]bool)
	for _, n := range sg.Nodes {
		if n.Kind == document.KindImage && !seen[n.ImageSrc] {
			seen[n.ImageSrc] = true
			refs = append(refs, n.ImageSrc)
		}
	}

	loaded := make([]image.Image, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadParallel)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := r.images.Image(gctx, ref)
			if err != nil {
				return fmt.Errorf("load %s: %w", ref, err)
			}
			loaded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]image.Image, len(refs))
	for i, ref := range refs {
		out[ref] = loaded[i]
	}
	return out, nil
}

func toAff3(m engine.Matrix2D) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}

func drawImage(dst *image.RGBA, m engine.Matrix2D, node *engine.SceneNode, src image.Image) {
	if src == nil || node.Opacity <= 0 {
		return
	}
	img := imaging.Clone(src)
	if c := node.Crop; c != nil {
		img = imaging.Crop(img, image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height))
	}
	img = filter.Raster(img, node.Filters)
	img = withOpacity(img, node.Opacity)

	// The node's local box matches the cropped source size, so source pixels
	// map one to one onto local units.
	sx := node.Width / float64(max(img.Bounds().Dx(), 1))
	sy := node.Height / float64(max(img.Bounds().Dy(), 1))
	draw.BiLinear.Transform(dst, toAff3(m.Multiply(engine.Scale(sx, sy))), img, img.Bounds(), draw.Over, nil)
}

func withOpacity(img *image.NRGBA, opacity float64) *image.NRGBA {
	if opacity >= 1 {
		return img
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = uint8(float64(c.A)*opacity + 0.5)
		return c
	})
}

// drawShape fills and strokes a rect or ellipse by sampling each output pixel
// centre in the node's local space.
func drawShape(dst *image.RGBA, m engine.Matrix2D, node *engine.SceneNode) {
	inv, ok := m.Invert()
	if !ok || node.Opacity <= 0 {
		return
	}
	bounds := rectToPixels(m.TransformRect(engine.Rect{Width: node.Width, Height: node.Height})).Intersect(dst.Bounds())
	if bounds.Empty() {
		return
	}

	fill, hasFill := ParseColor(node.Fill)
	stroke, hasStroke := ParseColor(node.Stroke)
	hasStroke = hasStroke && node.StrokeWidth > 0
	if !hasFill && !hasStroke {
		return
	}

	fillMask := image.NewAlpha(bounds)
	strokeMask := image.NewAlpha(bounds)
	half := node.StrokeWidth / 2
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			lx, ly := inv.TransformPoint(float64(x)+0.5, float64(y)+0.5)
			inside, edge := shapeDistance(node, lx, ly)
			if hasFill && inside {
				fillMask.SetAlpha(x, y, color.Alpha{A: 255})
			}
			if hasStroke && math.Abs(edge) <= half {
				strokeMask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	if hasFill {
		draw.DrawMask(dst, bounds, image.NewUniform(fade(fill, node.Opacity)), image.Point{}, fillMask, bounds.Min, draw.Over)
	}
	if hasStroke {
		draw.DrawMask(dst, bounds, image.NewUniform(fade(stroke, node.Opacity)), image.Point{}, strokeMask, bounds.Min, draw.Over)
	}
}

// shapeDistance reports whether a local point is inside the shape and its
// approximate signed distance to the outline in local units.
func shapeDistance(node *engine.SceneNode, lx, ly float64) (bool, float64) {
	w, h := node.Width, node.Height
	if node.Shape == document.ShapeEllipse {
		rx, ry := w/2, h/2
		if rx <= 0 || ry <= 0 {
			return false, math.Inf(1)
		}
		dx, dy := (lx-rx)/rx, (ly-ry)/ry
		r := math.Sqrt(dx*dx + dy*dy)
		return r <= 1, (r - 1) * min(rx, ry)
	}
	inside := lx >= 0 && ly >= 0 && lx <= w && ly <= h
	if inside {
		return true, -min(lx, ly, w-lx, h-ly)
	}
	dx := max(-lx, 0, lx-w)
	dy := max(-ly, 0, ly-h)
	return false, math.Hypot(dx, dy)
}

// drawText renders with the built-in bitmap face and stretches the result
// onto the text box.
func drawText(dst *image.RGBA, m engine.Matrix2D, node *engine.SceneNode) {
	if node.Text == nil || node.Text.Text == "" || node.Opacity <= 0 {
		return
	}
	fill, ok := ParseColor(node.Text.Fill)
	if !ok {
		fill = color.RGBA{A: 255}
	}
	face := basicfont.Face7x13
	tw := font.MeasureString(face, node.Text.Text).Ceil()
	th := face.Metrics().Height.Ceil()
	if tw <= 0 || th <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, tw, th))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(fade(fill, node.Opacity)),
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(node.Text.Text)

	sx := node.Width / float64(tw)
	sy := node.Height / float64(th)
	draw.BiLinear.Transform(dst, toAff3(m.Multiply(engine.Scale(sx, sy))), glyphs, glyphs.Bounds(), draw.Over, nil)
}

func rectToPixels(r engine.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

func fade(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	k := math.Max(opacity, 0)
	return color.RGBA{
		R: uint8(float64(c.R)*k + 0.5),
		G: uint8(float64(c.G)*k + 0.5),
		B: uint8(float64(c.B)*k + 0.5),
		A: uint8(float64(c.A)*k + 0.5),
	}
}

// ParseColor reads "#rgb" and "#rrggbb". Empty and "transparent" report
// false.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

// Encode writes img in the requested format.
func Encode(w io.Writer, img image.Image, opts Options) error {
	switch opts.Format {
	case FormatJPEG:
		q := opts.Quality
		if q <= 0 || q > 100 {
			q = 92
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	case FormatPNG, "":
		return imaging.Encode(w, img, imaging.PNG)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
}
