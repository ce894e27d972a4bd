// Package heightmap renders elevation grids as 8-bit grayscale
// images. Valid samples are scaled linearly onto 0-255 between the
// grid's own minimum and maximum; data voids render black.
package heightmap

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/kiesman99/relief/pkg/raster"
)

// ErrNoValidSamples reports a grid in which every sample equals the
// nodata value, leaving no range to normalize.
var ErrNoValidSamples = errors.New("no valid samples in grid")

// Heightmap is an 8-bit grayscale raster in the same row order as the
// grid it was rendered from.
type Heightmap struct {
	Rows int
	Cols int
	Pix  []uint8

	// Elevation range of the source, for diagnostics.
	MinElev int16
	MaxElev int16
}

// Render normalizes g into a heightmap. Nodata samples always map to
// 0. When all valid samples share one value there is no range to
// spread, so they map to 0 as well.
func Render(g *raster.Grid) (*Heightmap, error) {
	minElev, maxElev := int16(0), int16(0)
	found := false
	for _, s := range g.Samples {
		if s == g.Nodata {
			continue
		}
		if !found || s < minElev {
			minElev = s
		}
		if !found || s > maxElev {
			maxElev = s
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w (nodata %d)", ErrNoValidSamples, g.Nodata)
	}

	h := &Heightmap{
		Rows:    g.Rows,
		Cols:    g.Cols,
		Pix:     make([]uint8, g.Rows*g.Cols),
		MinElev: minElev,
		MaxElev: maxElev,
	}

	span := int32(maxElev) - int32(minElev)
	if span == 0 {
		return h, nil
	}
	for i, s := range g.Samples {
		if s == g.Nodata {
			continue
		}
		// Integer division truncates, matching a truncating cast of
		// (s-min)/(max-min)*255. Samples stay within [min,max], so
		// the result is already in [0,255].
		h.Pix[i] = uint8((int32(s) - int32(minElev)) * 255 / span)
	}
	return h, nil
}

// EncodePNG writes h as an 8-bit single-channel grayscale PNG.
func EncodePNG(w io.Writer, h *Heightmap) error {
	img := image.NewGray(image.Rect(0, 0, h.Cols, h.Rows))
	copy(img.Pix, h.Pix)
	return png.Encode(w, img)
}

// WriteFile encodes h to a PNG file at path.
func WriteFile(path string, h *Heightmap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, h); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
