// Package hgt decodes raw SRTM HGT tiles into georeferenced grids.
//
// An HGT file is a headerless run of big-endian signed 16-bit samples;
// dimensions and geographic placement are carried entirely by the
// filename. Rows in the file run south to north, the grids produced
// here are north-up to match the affine transform.
package hgt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/kiesman99/relief/pkg/raster"
	"github.com/kiesman99/relief/pkg/srtm"
)

// ErrTruncated reports an input buffer whose size does not match the
// expected rows*cols*2 bytes.
var ErrTruncated = errors.New("truncated HGT data")

// Decode converts an HGT byte buffer into a north-up elevation grid
// for the cell named by id. The buffer must hold exactly rows*cols
// big-endian int16 samples with row 0 the southernmost row.
func Decode(buf []byte, id srtm.TileID, rows, cols int) (*raster.Grid, error) {
	tr, err := raster.NewTransform(id.Bounds(), rows, cols)
	if err != nil {
		return nil, err
	}

	want := rows * cols * 2
	if len(buf) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d (%dx%d samples)",
			ErrTruncated, len(buf), want, cols, rows)
	}

	// Decode big-endian explicitly; the host byte order must never
	// leak into the grid. Rows are written flipped so that row 0 of
	// the output is the northernmost row.
	samples := make([]int16, rows*cols)
	for r := 0; r < rows; r++ {
		src := buf[r*cols*2:]
		dst := samples[(rows-1-r)*cols:]
		for c := 0; c < cols; c++ {
			dst[c] = int16(binary.BigEndian.Uint16(src[c*2:]))
		}
	}

	return raster.NewGrid(rows, cols, samples, srtm.Nodata, tr, srtm.CRS)
}

// DecodeTile decodes a full-size 3601x3601 SRTM1 tile.
func DecodeTile(buf []byte, id srtm.TileID) (*raster.Grid, error) {
	return Decode(buf, id, srtm.TileSize, srtm.TileSize)
}

// ReadFile reads an HGT file, deriving the tile identifier from the
// filename stem (e.g. "S27E152.hgt").
func ReadFile(path string) (*raster.Grid, error) {
	id, err := srtm.ParseFilename(path)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeTile(buf, id)
}
