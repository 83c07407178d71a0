package resize

// Form is the editable state of the resize tool. It starts at the document's
// size with the aspect ratio locked.
type Form struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Locked bool   `json:"locked"`
	Preset string `json:"preset,omitempty"`
}

// NewForm seeds the form from the current document size.
func NewForm(curW, curH int) Form {
	return Form{Width: curW, Height: curH, Locked: true}
}

// SetWidth edits the width. When locked, the height follows the document's
// ratio as it is at the moment of the edit.
func (f *Form) SetWidth(width, curW, curH int) {
	f.Width = max(width, 0)
	if f.Locked {
		f.Height = LockedHeight(f.Width, curW, curH)
	}
	f.Preset = ""
}

// SetHeight is the symmetric counterpart of SetWidth.
func (f *Form) SetHeight(height, curW, curH int) {
	f.Height = max(height, 0)
	if f.Locked {
		f.Width = LockedWidth(f.Height, curW, curH)
	}
	f.Preset = ""
}

func (f *Form) ToggleLock() {
	f.Locked = !f.Locked
}

// ApplyPreset fills the form with the area-preserving dimensions for p.
func (f *Form) ApplyPreset(p Preset, curW, curH int) {
	f.Width, f.Height = PresetDimensions(curW, curH, p.RatioW, p.RatioH)
	f.Preset = p.Name
}

// HasChanges reports whether the form differs from the current size.
func (f Form) HasChanges(curW, curH int) bool {
	return f.Width != curW || f.Height != curH
}

// Direction describes what applying the form would do.
func (f Form) Direction(curW, curH int) Direction {
	return DirectionOf(curW, curH, f.Width, f.Height)
}
