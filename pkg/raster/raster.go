// Package raster holds the georeferenced grid types shared by the
// conversion pipeline: the elevation grid, its affine pixel-to-world
// transform, and the world-file rendition of that transform.
package raster

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kiesman99/relief/pkg/srtm"
)

// ErrInvalidDimensions reports a grid with a non-positive row or
// column count.
var ErrInvalidDimensions = errors.New("invalid grid dimensions")

// Transform maps pixel (col,row) indices to geographic coordinates.
// The origin is the outer corner of the top-left pixel; PixelHeight is
// stored as a positive magnitude, rows increase southwards.
type Transform struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// NewTransform derives the north-up transform covering bounds with the
// given grid dimensions.
func NewTransform(b srtm.Bounds, rows, cols int) (Transform, error) {
	if rows <= 0 || cols <= 0 {
		return Transform{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
	}
	return Transform{
		OriginX:     b.West,
		OriginY:     b.North,
		PixelWidth:  (b.East - b.West) / float64(cols),
		PixelHeight: (b.North - b.South) / float64(rows),
	}, nil
}

// PixelToGeo returns the geographic coordinate of a pixel corner.
// Whole pixel indices land on corners, so (0,0) maps to the north-west
// corner and (cols,rows) to the south-east corner.
func (t Transform) PixelToGeo(col, row float64) (x, y float64) {
	x = t.OriginX + col*t.PixelWidth
	y = t.OriginY - row*t.PixelHeight
	return x, y
}

// GeoTransform returns the GDAL-style six-element geotransform
// [originX, pixelWidth, 0, originY, 0, -pixelHeight].
func (t Transform) GeoTransform() [6]float64 {
	return [6]float64{t.OriginX, t.PixelWidth, 0, t.OriginY, 0, -t.PixelHeight}
}

// WorldFile renders the transform in ESRI world-file format: pixel
// size, two rotation terms, negated y pixel size, then the center of
// the top-left pixel.
func (t Transform) WorldFile() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%24.10f\n", t.PixelWidth)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", -t.PixelHeight)
	fmt.Fprintf(&buf, "%24.10f\n", t.OriginX+t.PixelWidth/2)
	fmt.Fprintf(&buf, "%24.10f\n", t.OriginY-t.PixelHeight/2)
	return buf.Bytes()
}

// Grid is a single-band signed 16-bit elevation raster. Samples are
// row-major with row 0 the northernmost row, aligned with Transform.
// Samples equal to Nodata are data voids and excluded from statistics
// and rendering.
type Grid struct {
	Rows      int
	Cols      int
	Samples   []int16
	Nodata    int16
	Transform Transform
	CRS       string
}

// NewGrid wraps samples in a Grid after checking the dimensions
// against the sample count.
func NewGrid(rows, cols int, samples []int16, nodata int16, tr Transform, crs string) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
	}
	if len(samples) != rows*cols {
		return nil, fmt.Errorf("%w: %d samples for %dx%d grid", ErrInvalidDimensions, len(samples), cols, rows)
	}
	return &Grid{
		Rows:      rows,
		Cols:      cols,
		Samples:   samples,
		Nodata:    nodata,
		Transform: tr,
		CRS:       crs,
	}, nil
}

// At returns the sample at (row, col). No bounds checking beyond the
// slice's own.
func (g *Grid) At(row, col int) int16 {
	return g.Samples[row*g.Cols+col]
}
