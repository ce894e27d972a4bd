// Package convert is the conversion pipeline shared by the CLI and
// the HTTP server: HGT tiles to GeoTIFF rasters, GeoTIFF rasters to
// grayscale heightmap PNGs.
package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kiesman99/relief/internal/geotiff"
	"github.com/kiesman99/relief/internal/heightmap"
	"github.com/kiesman99/relief/internal/hgt"
	"github.com/kiesman99/relief/pkg/raster"
	"github.com/kiesman99/relief/pkg/srtm"
)

// Options contains conversion parameters. The zero values of TileSize
// and Nodata select the SRTM defaults.
type Options struct {
	// TileSize overrides the edge length of the decoded sample grid.
	TileSize int

	// Nodata overrides the data-void sentinel attached to decoded
	// grids.
	Nodata int16

	// WriteWorldFile requests world-file bytes alongside GeoTIFF
	// output.
	WriteWorldFile bool
}

// GeoTIFFResult contains the encoded raster and the diagnostics a
// caller may want to report.
type GeoTIFFResult struct {
	TIFFData      []byte
	WorldFileData []byte

	Bounds     srtm.Bounds
	Rows, Cols int
	PixelSize  float64
	MinElev    int16
	MaxElev    int16
	HasRange   bool // false when every sample is nodata
}

// HeightmapResult contains the encoded PNG and the elevation range it
// was normalized over.
type HeightmapResult struct {
	PNGData []byte

	Rows, Cols int
	MinElev    int16
	MaxElev    int16
}

// Converter runs one-shot conversions. Each call owns its grids
// exclusively; a zero-value Converter with default options is valid.
type Converter struct {
	opts Options
}

// New creates a converter, filling unset options with the SRTM
// defaults.
func New(opts Options) *Converter {
	if opts.TileSize <= 0 {
		opts.TileSize = srtm.TileSize
	}
	if opts.Nodata == 0 {
		opts.Nodata = srtm.Nodata
	}
	return &Converter{opts: opts}
}

// HGTToGeoTIFF decodes the raw HGT tile named by name and encodes it
// as a georeferenced GeoTIFF.
func (c *Converter) HGTToGeoTIFF(ctx context.Context, name string, data []byte) (*GeoTIFFResult, error) {
	id, err := srtm.ParseTileID(name)
	if err != nil {
		return nil, err
	}

	grid, err := hgt.Decode(data, id, c.opts.TileSize, c.opts.TileSize)
	if err != nil {
		return nil, err
	}
	grid.Nodata = c.opts.Nodata

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := geotiff.Encode(&buf, grid); err != nil {
		return nil, fmt.Errorf("encoding GeoTIFF: %v", err)
	}

	res := &GeoTIFFResult{
		TIFFData:  buf.Bytes(),
		Bounds:    id.Bounds(),
		Rows:      grid.Rows,
		Cols:      grid.Cols,
		PixelSize: grid.Transform.PixelWidth,
	}
	res.MinElev, res.MaxElev, res.HasRange = sampleRange(grid)

	if c.opts.WriteWorldFile {
		res.WorldFileData = grid.Transform.WorldFile()
	}
	return res, nil
}

// GeoTIFFToHeightmap decodes a GeoTIFF raster and renders it as an
// 8-bit grayscale PNG. The raster's own nodata marker is honored.
func (c *Converter) GeoTIFFToHeightmap(ctx context.Context, data []byte) (*HeightmapResult, error) {
	grid, err := geotiff.Decode(data)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	h, err := heightmap.Render(grid)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := heightmap.EncodePNG(&buf, h); err != nil {
		return nil, fmt.Errorf("encoding PNG: %v", err)
	}

	return &HeightmapResult{
		PNGData: buf.Bytes(),
		Rows:    h.Rows,
		Cols:    h.Cols,
		MinElev: h.MinElev,
		MaxElev: h.MaxElev,
	}, nil
}

// sampleRange scans the valid samples of g. ok is false when the grid
// is all nodata.
func sampleRange(g *raster.Grid) (minElev, maxElev int16, ok bool) {
	for _, s := range g.Samples {
		if s == g.Nodata {
			continue
		}
		if !ok || s < minElev {
			minElev = s
		}
		if !ok || s > maxElev {
			maxElev = s
		}
		ok = true
	}
	return minElev, maxElev, ok
}
