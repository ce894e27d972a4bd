// Package srtm contains the primitives of the SRTM 1-arcsecond tile
// format: tile identifiers, the geographic cell they name, and the
// fixed constants of the distribution.
package srtm

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Fixed parameters of SRTM1 tiles.
const (
	// TileSize is the edge length of an SRTM1 tile in samples. Rows
	// overlap neighbouring tiles by one sample, hence 3601 rather
	// than 3600 per degree.
	TileSize = 3601

	// CRS identifies the geographic reference system of all SRTM
	// tiles (WGS84).
	CRS = "EPSG:4326"
)

// Nodata is the SRTM data-void sentinel.
const Nodata int16 = -32768

// ErrMalformedName reports a tile identifier that does not match the
// [N|S]DD[E|W]DDD pattern.
var ErrMalformedName = errors.New("malformed tile name")

// Bounds is the geographic bounding box of a tile, in degrees.
type Bounds struct {
	West, South, East, North float64
}

// TileID is a parsed and validated tile identifier such as "S27E152".
// Tiles are named by their corner: latitude and longitude magnitudes
// are whole degrees, the hemisphere letters carry the sign.
type TileID struct {
	LatDeg int // latitude magnitude, 0-99
	LonDeg int // longitude magnitude, 0-999
	NS     byte
	EW     byte
}

// ParseTileID parses a 7-character tile identifier. Only the exact
// upper-case pattern is accepted; SRTM distribution files are named
// that way and anything else is a caller bug.
func ParseTileID(name string) (TileID, error) {
	if len(name) != 7 {
		return TileID{}, fmt.Errorf("%w: %q", ErrMalformedName, name)
	}

	ns := name[0]
	if ns != 'N' && ns != 'S' {
		return TileID{}, fmt.Errorf("%w: bad hemisphere %q in %q", ErrMalformedName, ns, name)
	}
	ew := name[3]
	if ew != 'E' && ew != 'W' {
		return TileID{}, fmt.Errorf("%w: bad hemisphere %q in %q", ErrMalformedName, ew, name)
	}

	lat, ok := atoi(name[1:3])
	if !ok {
		return TileID{}, fmt.Errorf("%w: bad latitude in %q", ErrMalformedName, name)
	}
	lon, ok := atoi(name[4:7])
	if !ok {
		return TileID{}, fmt.Errorf("%w: bad longitude in %q", ErrMalformedName, name)
	}

	return TileID{LatDeg: lat, LonDeg: lon, NS: ns, EW: ew}, nil
}

// ParseFilename parses a tile identifier from a path such as
// "data/S27E152.hgt", ignoring directories and the extension.
func ParseFilename(path string) (TileID, error) {
	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return ParseTileID(stem)
}

// atoi parses a short run of ASCII digits. strconv.Atoi would accept
// signs and leading spaces the tile pattern forbids.
func atoi(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// Bounds returns the 1-degree geographic cell named by the tile.
func (t TileID) Bounds() Bounds {
	south := float64(t.LatDeg)
	if t.NS == 'S' {
		south = -south
	}
	west := float64(t.LonDeg)
	if t.EW == 'W' {
		west = -west
	}
	return Bounds{
		West:  west,
		South: south,
		East:  west + 1,
		North: south + 1,
	}
}

// String returns the canonical file stem, e.g. "S27E152".
func (t TileID) String() string {
	return fmt.Sprintf("%c%02d%c%03d", t.NS, t.LatDeg, t.EW, t.LonDeg)
}
