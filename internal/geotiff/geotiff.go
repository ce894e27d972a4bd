// Package geotiff reads and writes single-band signed 16-bit GeoTIFF
// rasters: elevation samples plus affine georeferencing, a CRS
// identifier and a nodata marker.
//
// The encoder produces tiled, Deflate-compressed little-endian files.
// The decoder handles that profile plus the common variations a DEM
// pipeline meets in the wild: big-endian files, strip layout and
// uncompressed data.
package geotiff

import "errors"

// TIFF tags used by this package.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNodata      = 42113
)

// Compression schemes.
const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionOldDeflate = 32946
)

// GeoKey IDs and values (GeoTIFF 1.1).
const (
	geoKeyModelType      = 1024
	geoKeyRasterType     = 1025
	geoKeyGeographicType = 2048

	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
)

// Internal tile size of encoded files.
const blockSize = 256

// ErrUnsupported reports a TIFF the decoder cannot interpret as a
// single-band int16 raster.
var ErrUnsupported = errors.New("unsupported GeoTIFF layout")
