package resize

import "math"

// CropPreset is an aspect ratio offered by the crop tool. A zero Ratio means
// freeform.
type CropPreset struct {
	Label string  `json:"label"`
	Ratio float64 `json:"ratio"`
	Text  string  `json:"text,omitempty"`
}

var cropPresets = []CropPreset{
	{Label: "Freeform"},
	{Label: "Square", Ratio: 1, Text: "1:1"},
	{Label: "Widescreen", Ratio: 16.0 / 9.0, Text: "16:9"},
	{Label: "Portrait", Ratio: 4.0 / 5.0, Text: "4:5"},
	{Label: "Story", Ratio: 9.0 / 16.0, Text: "9:16"},
}

func CropPresets() []CropPreset {
	out := make([]CropPreset, len(cropPresets))
	copy(out, cropPresets)
	return out
}

func CropPresetByLabel(label string) (CropPreset, bool) {
	for _, p := range cropPresets {
		if p.Label == label {
			return p, true
		}
	}
	return CropPreset{}, false
}

// Rect is an integer pixel rectangle in image space.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropRect returns the largest rectangle of the given ratio centred inside an
// imgW x imgH image. Freeform (ratio <= 0) returns the whole image.
func CropRect(imgW, imgH int, ratio float64) Rect {
	if imgW <= 0 || imgH <= 0 {
		return Rect{}
	}
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Rect{Width: imgW, Height: imgH}
	}
	w, h := imgW, imgH
	if float64(imgW)/float64(imgH) > ratio {
		w = max(1, int(math.Round(float64(imgH)*ratio)))
	} else {
		h = max(1, int(math.Round(float64(imgW)/ratio)))
	}
	return Rect{X: (imgW - w) / 2, Y: (imgH - h) / 2, Width: w, Height: h}
}
