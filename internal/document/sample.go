package document

// NewSampleDocument returns a small document with one object of each kind. The
// image refers to src, which may be empty for a text-and-shape only sample.
func NewSampleDocument(width, height int, src string, srcW, srcH int) (*Document, error) {
	doc, err := New(width, height)
	if err != nil {
		return nil, err
	}

	if src != "" && srcW > 0 && srcH > 0 {
		if _, err := doc.Add(FitBackground(src, srcW, srcH, width, height)); err != nil {
			return nil, err
		}
		doc.background = src
	}

	cx, cy := float64(width)/2, float64(height)/2
	banner := NewShape(ShapeData{
		Shape:       ShapeRect,
		Fill:        "#4a90d9",
		Stroke:      "#2c5f8a",
		StrokeWidth: 2,
	}, float64(width)*0.6, float64(height)*0.15, IdentityAt(cx, float64(height)*0.8))
	if _, err := doc.Add(banner); err != nil {
		return nil, err
	}

	badge := NewShape(ShapeData{Shape: ShapeEllipse, Fill: "#e74c3c"}, 80, 80, IdentityAt(float64(width)*0.85, float64(height)*0.15))
	if _, err := doc.Add(badge); err != nil {
		return nil, err
	}

	title := NewText(TextData{Text: "Your text here", Fill: "#ffffff", Align: "center"}, IdentityAt(cx, cy))
	if _, err := doc.Add(title); err != nil {
		return nil, err
	}
	return doc, nil
}
