package filter

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// blurSigmaScale converts a blur parameter of 1 into a Gaussian sigma equal to
// 5% of the image's longer side.
const blurSigmaScale = 0.05

// Raster applies a filter stack to img in stack order and returns the result.
// Unknown entries are skipped. The input is never modified.
func Raster(img image.Image, stack []Applied) *image.NRGBA {
	out := imaging.Clone(img)
	for _, a := range stack {
		k, ok := a.Kind()
		if !ok || a.Value == 0 {
			continue
		}
		switch k {
		case Brightness:
			out = imaging.AdjustBrightness(out, a.Value*100)
		case Contrast:
			out = imaging.AdjustContrast(out, a.Value*100)
		case Saturation:
			out = imaging.AdjustSaturation(out, a.Value*100)
		case Vibrance:
			out = imaging.AdjustFunc(out, vibrance(a.Value))
		case Blur:
			b := out.Bounds()
			sigma := a.Value * blurSigmaScale * float64(max(b.Dx(), b.Dy()))
			if sigma > 0 {
				out = imaging.Blur(out, sigma)
			}
		case Hue:
			out = imaging.AdjustFunc(out, hueRotate(a.Value))
		}
	}
	return out
}

// vibrance boosts (or mutes) the less saturated channels of each pixel
// proportionally to how far they sit from the pixel's strongest channel.
func vibrance(amount float64) func(color.NRGBA) color.NRGBA {
	adjust := -amount
	return func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R), float64(c.G), float64(c.B)
		mx := max(r, g, b)
		avg := (r + g + b) / 3
		amt := math.Abs(mx-avg) * 2 / 255 * adjust
		if r != mx {
			r += (mx - r) * amt
		}
		if g != mx {
			g += (mx - g) * amt
		}
		if b != mx {
			b += (mx - b) * amt
		}
		return color.NRGBA{R: clamp8(r), G: clamp8(g), B: clamp8(b), A: c.A}
	}
}

// hueRotate rotates colours around the luminance axis by radians.
func hueRotate(radians float64) func(color.NRGBA) color.NRGBA {
	cos, sin := math.Cos(radians), math.Sin(radians)
	m := [9]float64{
		0.213 + cos*0.787 - sin*0.213, 0.715 - cos*0.715 - sin*0.715, 0.072 - cos*0.072 + sin*0.928,
		0.213 - cos*0.213 + sin*0.143, 0.715 + cos*0.285 + sin*0.140, 0.072 - cos*0.072 - sin*0.283,
		0.213 - cos*0.213 - sin*0.787, 0.715 - cos*0.715 + sin*0.715, 0.072 + cos*0.928 + sin*0.072,
	}
	return func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R), float64(c.G), float64(c.B)
		return color.NRGBA{
			R: clamp8(m[0]*r + m[1]*g + m[2]*b),
			G: clamp8(m[3]*r + m[4]*g + m[5]*b),
			B: clamp8(m[6]*r + m[7]*g + m[8]*b),
			A: c.A,
		}
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
