package document

import (
	"github.com/pixora/pixora/backend-go/internal/filter"
)

type ObjectKind string

const (
	KindImage ObjectKind = "image"
	KindText  ObjectKind = "text"
	KindShape ObjectKind = "shape"
)

func (k ObjectKind) Valid() bool {
	switch k {
	case KindImage, KindText, KindShape:
		return true
	}
	return false
}

// Transform places an object in document space. Left/Top locate the object's
// centre; Angle is in degrees.
type Transform struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	Angle  float64 `json:"angle"`
}

// IdentityAt returns an unscaled, unrotated transform centred on (x, y).
func IdentityAt(x, y float64) Transform {
	return Transform{Left: x, Top: y, ScaleX: 1, ScaleY: 1}
}

// Crop selects a source rectangle of an image in image pixels.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ImageData struct {
	Src  string `json:"src"`
	Crop *Crop  `json:"crop,omitempty"`
}

type TextData struct {
	Text       string  `json:"text"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	Fill       string  `json:"fill"`
	Align      string  `json:"align,omitempty"`
}

type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeEllipse ShapeType = "ellipse"
)

type ShapeData struct {
	Shape       ShapeType `json:"shape"`
	Fill        string    `json:"fill"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
}

// Object is one drawable element. Width/Height are intrinsic (unscaled) sizes.
type Object struct {
	ID        string           `json:"id"`
	Kind      ObjectKind       `json:"kind"`
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Transform Transform        `json:"transform"`
	Opacity   float64          `json:"opacity"`
	Filters   []filter.Applied `json:"filters,omitempty"`

	Image *ImageData `json:"image,omitempty"`
	Text  *TextData  `json:"text,omitempty"`
	Shape *ShapeData `json:"shape,omitempty"`
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	c := o
	if o.Filters != nil {
		c.Filters = append([]filter.Applied(nil), o.Filters...)
	}
	if o.Image != nil {
		img := *o.Image
		if o.Image.Crop != nil {
			crop := *o.Image.Crop
			img.Crop = &crop
		}
		c.Image = &img
	}
	if o.Text != nil {
		txt := *o.Text
		c.Text = &txt
	}
	if o.Shape != nil {
		shp := *o.Shape
		c.Shape = &shp
	}
	return c
}

// SourceSize is the size of the object's drawn content before scaling; for a
// cropped image this is the crop rectangle.
func (o Object) SourceSize() (float64, float64) {
	if o.Kind == KindImage && o.Image != nil && o.Image.Crop != nil {
		return float64(o.Image.Crop.Width), float64(o.Image.Crop.Height)
	}
	return o.Width, o.Height
}

// NewImage builds an image object of intrinsic size w x h.
func NewImage(src string, w, h int, t Transform) Object {
	return Object{
		Kind:      KindImage,
		Width:     float64(w),
		Height:    float64(h),
		Transform: t,
		Opacity:   1,
		Image:     &ImageData{Src: src},
	}
}

// NewText builds a text object. The box size is an estimate derived from the
// font size; clients re-measure on render.
func NewText(data TextData, t Transform) Object {
	if data.FontSize <= 0 {
		data.FontSize = 48
	}
	if data.FontFamily == "" {
		data.FontFamily = "Arial"
	}
	if data.Fill == "" {
		data.Fill = "#000000"
	}
	return Object{
		Kind:      KindText,
		Width:     float64(len([]rune(data.Text))) * data.FontSize * 0.6,
		Height:    data.FontSize * 1.2,
		Transform: t,
		Opacity:   1,
		Text:      &data,
	}
}

// NewShape builds a shape object of size w x h.
func NewShape(data ShapeData, w, h float64, t Transform) Object {
	if data.Shape == "" {
		data.Shape = ShapeRect
	}
	return Object{
		Kind:      KindShape,
		Width:     w,
		Height:    h,
		Transform: t,
		Opacity:   1,
		Shape:     &data,
	}
}
