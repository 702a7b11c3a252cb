package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// Compositor merges a transparent overlay graphic onto a base image.
//
// Compositing is pure CPU work on the inputs; a single Compositor is
// safe to share across any number of goroutines.
//
// Example usage:
//
//	comp := overlay.NewCompositor(95)
//	jpegBytes, err := comp.Compose(baseBytes, overlayPNG)
type Compositor struct {
	quality int
}

// NewCompositor creates a Compositor encoding JPEG output at the given
// quality (1-100). Out-of-range values fall back to 95.
func NewCompositor(quality int) *Compositor {
	if quality < 1 || quality > 100 {
		quality = 95
	}
	return &Compositor{quality: quality}
}

// Compose alpha-composites overlayPNG over base and returns the
// flattened result as JPEG bytes.
//
// Both inputs are normalised to RGBA first. When the overlay dimensions
// differ from the base - the export sometimes mismatches them by a
// pixel - the overlay is resampled to match with Catmull-Rom; the base
// is never resized.
func (c *Compositor) Compose(base, overlayPNG []byte) ([]byte, error) {
	baseImg, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}
	overlayImg, _, err := image.Decode(bytes.NewReader(overlayPNG))
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}

	bounds := baseImg.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), baseImg, bounds.Min, draw.Src)

	overlayRGBA := resizeToMatch(overlayImg, dst.Bounds())
	draw.Draw(dst, dst.Bounds(), overlayRGBA, overlayRGBA.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToMatch scales img to target when the dimensions differ,
// using Catmull-Rom for high-quality resampling.
func resizeToMatch(img image.Image, target image.Rectangle) image.Image {
	if img.Bounds().Dx() == target.Dx() && img.Bounds().Dy() == target.Dy() {
		return img
	}
	scaled := image.NewRGBA(image.Rect(0, 0, target.Dx(), target.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	return scaled
}
