// Package filter holds the fixed registry of image adjustments and the
// pipeline that turns slider values into an ordered filter stack and back.
package filter

import (
	"fmt"
	"math"
)

// Kind identifies one adjustment in the registry.
type Kind int

const (
	Brightness Kind = iota
	Contrast
	Saturation
	Vibrance
	Blur
	Hue
)

// Spec describes a registry entry: its UI range and the mapping between the
// UI value and the internal parameter stored on the object.
type Spec struct {
	Kind    Kind
	Name    string
	Label   string
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Suffix  string

	forward func(ui float64) float64
	inverse func(param float64) float64
}

func percent(ui float64) float64    { return ui / 100 }
func fromPercent(p float64) float64 { return p * 100 }
func degToRad(ui float64) float64   { return ui * math.Pi / 180 }
func radToDeg(p float64) float64    { return p * 180 / math.Pi }

// registry is in application order. Filters compose non-commutatively, so a
// stack is always built in this order regardless of which slider moved last.
var registry = [...]Spec{
	{Kind: Brightness, Name: "brightness", Label: "Brightness", Min: -100, Max: 100, Step: 1, forward: percent, inverse: fromPercent},
	{Kind: Contrast, Name: "contrast", Label: "Contrast", Min: -100, Max: 100, Step: 1, forward: percent, inverse: fromPercent},
	{Kind: Saturation, Name: "saturation", Label: "Saturation", Min: -100, Max: 100, Step: 1, forward: percent, inverse: fromPercent},
	{Kind: Vibrance, Name: "vibrance", Label: "Vibrance", Min: -100, Max: 100, Step: 1, forward: percent, inverse: fromPercent},
	{Kind: Blur, Name: "blur", Label: "Blur", Min: 0, Max: 100, Step: 1, forward: percent, inverse: fromPercent},
	{Kind: Hue, Name: "hue", Label: "Hue", Min: -180, Max: 180, Step: 1, Suffix: "°", forward: degToRad, inverse: radToDeg},
}

// Registry returns every spec in application order.
func Registry() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry[:])
	return out
}

// Kinds returns every kind in application order.
func Kinds() []Kind {
	out := make([]Kind, len(registry))
	for i, s := range registry {
		out[i] = s.Kind
	}
	return out
}

func (k Kind) Valid() bool {
	return k >= Brightness && int(k) < len(registry)
}

// Spec returns the registry entry for k. It panics for an invalid kind.
func (k Kind) Spec() Spec {
	if !k.Valid() {
		panic(fmt.Sprintf("filter: invalid kind %d", int(k)))
	}
	return registry[k]
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return registry[k].Name
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("filter: invalid kind %d", int(k))
	}
	return []byte(registry[k].Name), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("filter: unknown kind %q", string(b))
	}
	*k = parsed
	return nil
}

// ParseKind resolves a registry name.
func ParseKind(name string) (Kind, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s.Kind, true
		}
	}
	return 0, false
}

// Forward maps a UI value to the internal parameter.
func (s Spec) Forward(ui float64) float64 {
	return s.forward(ui)
}

// Inverse maps an internal parameter back to the nearest UI step.
func (s Spec) Inverse(param float64) float64 {
	return s.Clamp(s.inverse(param))
}

// Clamp limits ui to the spec range and snaps it to the step grid.
func (s Spec) Clamp(ui float64) float64 {
	if math.IsNaN(ui) {
		return s.Default
	}
	ui = min(max(ui, s.Min), s.Max)
	if s.Step > 0 {
		ui = s.Min + math.Round((ui-s.Min)/s.Step)*s.Step
	}
	// Avoid -0 in JSON and comparisons.
	if ui == 0 {
		ui = 0
	}
	return ui
}
