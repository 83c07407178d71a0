package asset

import (
	"context"
	"fmt"
	"image"
)

// Loader reads stored images by reference. It resolves background sizes
// while a canvas hydrates and decodes pixels for export.
type Loader struct {
	store Store
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

func (l *Loader) ImageSize(ctx context.Context, ref string) (int, int, error) {
	key, err := KeyFromRef(ref)
	if err != nil {
		return 0, 0, err
	}
	rc, err := l.store.Open(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (l *Loader) Image(ctx context.Context, ref string) (image.Image, error) {
	key, err := KeyFromRef(ref)
	if err != nil {
		return nil, err
	}
	rc, err := l.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return img, nil
}
