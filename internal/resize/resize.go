// Package resize computes target document dimensions for the resize and crop
// tools. Nothing here touches a document; applying a size is the session's job.
package resize

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinDimension = 1
	MaxDimension = 16384
)

var ErrInvalidDimensions = errors.New("invalid dimensions")

// Validate checks that both dimensions are within the supported range.
func Validate(width, height int) error {
	if width < MinDimension || height < MinDimension || width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d (allowed %d..%d)", ErrInvalidDimensions, width, height, MinDimension, MaxDimension)
	}
	return nil
}

// Preset is a named aspect ratio.
type Preset struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	RatioW int    `json:"ratioW"`
	RatioH int    `json:"ratioH"`
}

var presets = []Preset{
	{Name: "Instagram Story", Label: "9:16", RatioW: 9, RatioH: 16},
	{Name: "Instagram Post", Label: "1:1", RatioW: 1, RatioH: 1},
	{Name: "Youtube Thumbnail", Label: "16:9", RatioW: 16, RatioH: 9},
	{Name: "Portrait", Label: "2:3", RatioW: 2, RatioH: 3},
	{Name: "Facebook Cover", Label: "2.7:1", RatioW: 851, RatioH: 315},
	{Name: "Twitter Header", Label: "3:1", RatioW: 3, RatioH: 1},
}

// Presets returns the built-in aspect ratio presets.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByName looks up a built-in preset.
func PresetByName(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// LockedHeight returns the height matching width at the current document ratio.
func LockedHeight(width, curW, curH int) int {
	if curW <= 0 {
		return curH
	}
	return int(math.Round(float64(width) * float64(curH) / float64(curW)))
}

// LockedWidth returns the width matching height at the current document ratio.
func LockedWidth(height, curW, curH int) int {
	if curH <= 0 {
		return curW
	}
	return int(math.Round(float64(height) * float64(curW) / float64(curH)))
}

// PresetDimensions conforms the current document to ratioW:ratioH while keeping
// its pixel area, so cycling presets never shrinks the canvas.
func PresetDimensions(curW, curH, ratioW, ratioH int) (int, int) {
	if curW <= 0 || curH <= 0 || ratioW <= 0 || ratioH <= 0 {
		return curW, curH
	}
	area := float64(curW) * float64(curH)
	aspect := float64(ratioW) / float64(ratioH)
	h := math.Sqrt(area / aspect)
	w := h * aspect
	return int(math.Round(w)), int(math.Round(h))
}

// Direction describes the visual effect of going from the current size to the
// target size.
type Direction string

const (
	DirectionNone   Direction = "none"
	DirectionExpand Direction = "expand"
	DirectionCrop   Direction = "crop"
)

// DirectionOf reports "expand" when either dimension grows, otherwise "crop".
func DirectionOf(curW, curH, newW, newH int) Direction {
	switch {
	case curW == newW && curH == newH:
		return DirectionNone
	case newW > curW || newH > curH:
		return DirectionExpand
	default:
		return DirectionCrop
	}
}
