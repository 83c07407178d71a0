package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const SnapshotVersion = 1

var ErrSnapshotLoad = errors.New("snapshot load failed")

// Snapshot is the persisted form of a document's object graph.
type Snapshot struct {
	Version    int      `json:"version"`
	Background string   `json:"background,omitempty"`
	Objects    []Object `json:"objects"`
}

// HydrationError reports why a document came up empty.
type HydrationError struct {
	Source string // "snapshot" or "background"
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate from %s: %v", e.Source, e.Err)
}

// Unwrap matches ErrSnapshotLoad only for a stored snapshot that failed to
// load.
func (e *HydrationError) Unwrap() []error {
	if e.Source == "snapshot" {
		return []error{ErrSnapshotLoad, e.Err}
	}
	return []error{e.Err}
}

// ImageLoader resolves an image reference to its intrinsic pixel size.
type ImageLoader interface {
	ImageSize(ctx context.Context, ref string) (width, height int, err error)
}

type HydrateInput struct {
	Snapshot      json.RawMessage
	BackgroundRef string
	Width         int
	Height        int
}

// Hydrate builds a document from a stored snapshot or, when none exists, from
// the background image fitted inside the canvas. On failure it returns an
// empty document alongside a *HydrationError.
func Hydrate(ctx context.Context, in HydrateInput, loader ImageLoader) (*Document, error) {
	doc, err := New(in.Width, in.Height)
	if err != nil {
		return nil, err
	}

	if hasSnapshot(in.Snapshot) {
		snap, err := DecodeSnapshot(in.Snapshot)
		if err != nil {
			return doc, &HydrationError{Source: "snapshot", Err: err}
		}
		doc.background = snap.Background
		for i := range snap.Objects {
			o := snap.Objects[i]
			doc.objects = append(doc.objects, &o)
		}
		return doc, nil
	}

	if in.BackgroundRef == "" {
		return doc, nil
	}
	if loader == nil {
		return doc, &HydrationError{Source: "background", Err: errors.New("no image loader")}
	}
	iw, ih, err := loader.ImageSize(ctx, in.BackgroundRef)
	if err != nil {
		return doc, &HydrationError{Source: "background", Err: err}
	}
	if iw <= 0 || ih <= 0 {
		return doc, &HydrationError{Source: "background", Err: fmt.Errorf("image has size %dx%d", iw, ih)}
	}

	obj := FitBackground(in.BackgroundRef, iw, ih, in.Width, in.Height)
	if _, err := doc.Add(obj); err != nil {
		return doc, &HydrationError{Source: "background", Err: err}
	}
	doc.background = in.BackgroundRef
	return doc, nil
}

// FitBackground places an iw x ih image centred on a w x h canvas, uniformly
// scaled to fit inside it.
func FitBackground(src string, iw, ih, w, h int) Object {
	scale := math.Min(float64(w)/float64(iw), float64(h)/float64(ih))
	t := Transform{
		Left:   float64(w) / 2,
		Top:    float64(h) / 2,
		ScaleX: scale,
		ScaleY: scale,
	}
	return NewImage(src, iw, ih, t)
}

func hasSnapshot(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeSnapshot parses and validates a stored snapshot.
func DecodeSnapshot(raw json.RawMessage) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	seen := make(map[string]bool, len(snap.Objects))
	for i, o := range snap.Objects {
		if o.ID == "" {
			return Snapshot{}, fmt.Errorf("object %d: missing id", i)
		}
		if seen[o.ID] {
			return Snapshot{}, fmt.Errorf("object %s: %w", o.ID, ErrDuplicateID)
		}
		seen[o.ID] = true
		if err := validateObject(o); err != nil {
			return Snapshot{}, fmt.Errorf("object %s: %w", o.ID, err)
		}
	}
	if snap.Objects == nil {
		snap.Objects = []Object{}
	}
	return snap, nil
}

func validateObject(o Object) error {
	switch o.Kind {
	case KindImage:
		if o.Image == nil || o.Image.Src == "" {
			return errors.New("image without src")
		}
	case KindText:
		if o.Text == nil {
			return errors.New("text without data")
		}
	case KindShape:
		if o.Shape == nil {
			return errors.New("shape without data")
		}
	default:
		return fmt.Errorf("unknown kind %q", o.Kind)
	}
	return nil
}

// View returns the display copy of the document.
func (d *Document) View() Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		Background: d.background,
		Objects:    d.Objects(),
	}
}

// Serialize encodes the document's object graph as a versioned snapshot.
func (d *Document) Serialize() (json.RawMessage, error) {
	data, err := json.Marshal(d.View())
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return data, nil
}
