package convert

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/relief/internal/heightmap"
	"github.com/kiesman99/relief/internal/hgt"
	"github.com/kiesman99/relief/pkg/srtm"
)

// hgtBuffer builds a south-up big-endian HGT buffer with every sample
// set to fill.
func hgtBuffer(size int, fill int16) []byte {
	buf := make([]byte, size*size*2)
	for i := 0; i < size*size; i++ {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(fill))
	}
	return buf
}

func TestHGTToGeoTIFF(t *testing.T) {
	c := New(Options{TileSize: 32, WriteWorldFile: true})

	buf := hgtBuffer(32, 500)
	res, err := c.HGTToGeoTIFF(context.Background(), "S27E152", buf)
	require.NoError(t, err)

	assert.Equal(t, srtm.Bounds{West: 152, South: -27, East: 153, North: -26}, res.Bounds)
	assert.Equal(t, 32, res.Rows)
	assert.InDelta(t, 1.0/32, res.PixelSize, 1e-15)
	assert.True(t, res.HasRange)
	assert.Equal(t, int16(500), res.MinElev)
	assert.Equal(t, int16(500), res.MaxElev)
	assert.NotEmpty(t, res.TIFFData)
	assert.NotEmpty(t, res.WorldFileData)
}

func TestHGTToGeoTIFFErrors(t *testing.T) {
	c := New(Options{TileSize: 32})

	_, err := c.HGTToGeoTIFF(context.Background(), "bogus", hgtBuffer(32, 0))
	assert.ErrorIs(t, err, srtm.ErrMalformedName)

	_, err = c.HGTToGeoTIFF(context.Background(), "N00E000", make([]byte, 11))
	assert.ErrorIs(t, err, hgt.ErrTruncated)
}

func TestGeoTIFFToHeightmapAllNodata(t *testing.T) {
	c := New(Options{TileSize: 16})

	res, err := c.HGTToGeoTIFF(context.Background(), "N00E000", hgtBuffer(16, srtm.Nodata))
	require.NoError(t, err)
	assert.False(t, res.HasRange)

	_, err = c.GeoTIFFToHeightmap(context.Background(), res.TIFFData)
	assert.ErrorIs(t, err, heightmap.ErrNoValidSamples)
}

func TestCanceledContext(t *testing.T) {
	c := New(Options{TileSize: 16})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.HGTToGeoTIFF(ctx, "N00E000", hgtBuffer(16, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

// End to end: a tile of constant 500 with a single void decodes,
// encodes, and normalizes into a heightmap where the void is 0 and,
// because min==max, every other pixel is 0 as well.
func TestEndToEndDegenerateRange(t *testing.T) {
	const size = 16
	c := New(Options{TileSize: size})

	buf := hgtBuffer(size, 500)
	// One void, somewhere mid-grid. File rows are south-up; after the
	// north-up flip this lands at row size-1-3.
	nodata := srtm.Nodata
	binary.BigEndian.PutUint16(buf[(3*size+5)*2:], uint16(nodata))

	tiffRes, err := c.HGTToGeoTIFF(context.Background(), "N00E000", buf)
	require.NoError(t, err)
	assert.Equal(t, int16(500), tiffRes.MinElev)
	assert.Equal(t, int16(500), tiffRes.MaxElev)

	pngRes, err := c.GeoTIFFToHeightmap(context.Background(), tiffRes.TIFFData)
	require.NoError(t, err)
	assert.Equal(t, size, pngRes.Rows)
	assert.Equal(t, size, pngRes.Cols)
	assert.Equal(t, int16(500), pngRes.MinElev)
	assert.Equal(t, int16(500), pngRes.MaxElev)

	// Decode the PNG and check every pixel is 0: the void maps to 0
	// and the degenerate range rule sends all valid pixels to 0 too.
	img := decodeGray(t, pngRes.PNGData)
	for i, p := range img {
		assert.Zerof(t, p, "pixel %d", i)
	}
}
