package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	tiff "github.com/garyhouston/tiff66"
	"github.com/klauspost/compress/zlib"

	"github.com/kiesman99/relief/pkg/raster"
	"github.com/kiesman99/relief/pkg/srtm"
)

// Decode parses a single-band signed 16-bit GeoTIFF into a Grid. The
// nodata value comes from the file's GDAL_NODATA tag; files without
// one get the SRTM default of -32768.
func Decode(buf []byte) (*raster.Grid, error) {
	valid, order, ifdPos := tiff.GetHeader(buf)
	if !valid {
		return nil, fmt.Errorf("%w: not a TIFF file", ErrUnsupported)
	}
	root, err := tiff.GetIFDTree(buf, order, ifdPos, tiff.TIFFSpace)
	if err != nil {
		return nil, fmt.Errorf("reading TIFF directory: %v", err)
	}

	d := &decoder{buf: buf, order: order, fields: make(map[uint16]*tiff.Field)}
	for i := range root.Fields {
		d.fields[uint16(root.Fields[i].Tag)] = &root.Fields[i]
	}
	return d.grid()
}

// ReadFile decodes the GeoTIFF at path.
func ReadFile(path string) (*raster.Grid, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}

type decoder struct {
	buf    []byte
	order  binary.ByteOrder
	fields map[uint16]*tiff.Field
}

func (d *decoder) grid() (*raster.Grid, error) {
	cols := int(d.uintValue(tagImageWidth, 0, 0))
	rows := int(d.uintValue(tagImageLength, 0, 0))
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: missing image dimensions", ErrUnsupported)
	}

	if bits := d.uintValue(tagBitsPerSample, 0, 1); bits != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, bits)
	}
	if spp := d.uintValue(tagSamplesPerPixel, 0, 1); spp != 1 {
		return nil, fmt.Errorf("%w: %d samples per pixel", ErrUnsupported, spp)
	}
	if sf := d.uintValue(tagSampleFormat, 0, 2); sf != 1 && sf != 2 {
		return nil, fmt.Errorf("%w: sample format %d", ErrUnsupported, sf)
	}

	compression := d.uintValue(tagCompression, 0, compressionNone)
	switch compression {
	case compressionNone, compressionDeflate, compressionOldDeflate:
	default:
		return nil, fmt.Errorf("%w: compression scheme %d", ErrUnsupported, compression)
	}

	samples := make([]int16, rows*cols)
	if _, tiled := d.fields[tagTileOffsets]; tiled {
		if err := d.readTiles(samples, rows, cols, compression); err != nil {
			return nil, err
		}
	} else if err := d.readStrips(samples, rows, cols, compression); err != nil {
		return nil, err
	}

	return raster.NewGrid(rows, cols, samples, d.nodata(), d.transform(), d.crs())
}

// readTiles fills samples from a tiled layout, clipping padded edge
// tiles to the grid.
func (d *decoder) readTiles(samples []int16, rows, cols int, compression uint64) error {
	tw := int(d.uintValue(tagTileWidth, 0, 0))
	th := int(d.uintValue(tagTileLength, 0, 0))
	if tw <= 0 || th <= 0 {
		return fmt.Errorf("%w: missing tile dimensions", ErrUnsupported)
	}

	across := (cols + tw - 1) / tw
	down := (rows + th - 1) / th
	offsets := d.fields[tagTileOffsets]
	counts := d.fields[tagTileByteCounts]
	if offsets == nil || counts == nil || int(offsets.Count) != across*down {
		return fmt.Errorf("%w: tile index does not cover the image", ErrUnsupported)
	}

	for ty := 0; ty < down; ty++ {
		for tx := 0; tx < across; tx++ {
			i := ty*across + tx
			data, err := d.block(d.fieldUint(offsets, i), d.fieldUint(counts, i), compression, tw*th*2)
			if err != nil {
				return err
			}
			for y := 0; y < th; y++ {
				row := ty*th + y
				if row >= rows {
					break
				}
				for x := 0; x < tw; x++ {
					col := tx*tw + x
					if col >= cols {
						break
					}
					samples[row*cols+col] = int16(d.order.Uint16(data[(y*tw+x)*2:]))
				}
			}
		}
	}
	return nil
}

// readStrips fills samples from a strip layout.
func (d *decoder) readStrips(samples []int16, rows, cols int, compression uint64) error {
	offsets := d.fields[tagStripOffsets]
	counts := d.fields[tagStripByteCounts]
	if offsets == nil || counts == nil {
		return fmt.Errorf("%w: no tile or strip index", ErrUnsupported)
	}
	rowsPerStrip := int(d.uintValue(tagRowsPerStrip, 0, uint64(rows)))
	if rowsPerStrip <= 0 {
		return fmt.Errorf("%w: bad rows per strip", ErrUnsupported)
	}

	for s := 0; s < int(offsets.Count); s++ {
		row0 := s * rowsPerStrip
		if row0 >= rows {
			break
		}
		n := rowsPerStrip
		if row0+n > rows {
			n = rows - row0
		}
		data, err := d.block(d.fieldUint(offsets, s), d.fieldUint(counts, s), compression, n*cols*2)
		if err != nil {
			return err
		}
		for i := 0; i < n*cols; i++ {
			samples[row0*cols+i] = int16(d.order.Uint16(data[i*2:]))
		}
	}
	return nil
}

// block returns the decompressed payload of one tile or strip.
func (d *decoder) block(offset, count uint64, compression uint64, want int) ([]byte, error) {
	if offset+count > uint64(len(d.buf)) {
		return nil, fmt.Errorf("%w: block beyond end of file", ErrUnsupported)
	}
	raw := d.buf[offset : offset+count]

	if compression != compressionNone {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("inflating block: %v", err)
		}
		defer zr.Close()
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("inflating block: %v", err)
		}
	}

	if len(raw) < want {
		return nil, fmt.Errorf("%w: short block (%d of %d bytes)", ErrUnsupported, len(raw), want)
	}
	return raw, nil
}

// transform rebuilds the affine transform from ModelPixelScale and
// ModelTiepoint; files without georeferencing fall back to a unit
// transform at the origin.
func (d *decoder) transform() raster.Transform {
	tr := raster.Transform{PixelWidth: 1, PixelHeight: 1}
	if scale := d.fields[tagModelPixelScale]; scale != nil && scale.Count >= 2 {
		tr.PixelWidth = d.fieldDouble(scale, 0)
		tr.PixelHeight = d.fieldDouble(scale, 1)
	}
	if tp := d.fields[tagModelTiepoint]; tp != nil && tp.Count >= 6 {
		// Tiepoint maps raster (i,j) to model (x,y); shift back to
		// the top-left corner.
		i, j := d.fieldDouble(tp, 0), d.fieldDouble(tp, 1)
		x, y := d.fieldDouble(tp, 3), d.fieldDouble(tp, 4)
		tr.OriginX = x - i*tr.PixelWidth
		tr.OriginY = y + j*tr.PixelHeight
	}
	return tr
}

// nodata returns the container's nodata marker, defaulting to the
// SRTM void value when the tag is absent.
func (d *decoder) nodata() int16 {
	f := d.fields[tagGDALNodata]
	if f == nil {
		return srtm.Nodata
	}
	s := strings.TrimRight(string(f.Data), "\x00 ")
	if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16); err == nil {
		return int16(v)
	}
	return srtm.Nodata
}

// crs extracts the geographic EPSG code from the GeoKeyDirectory.
func (d *decoder) crs() string {
	f := d.fields[tagGeoKeyDirectory]
	if f == nil {
		return srtm.CRS
	}
	// Keys start after the four-short version header; each entry is
	// {keyID, location, count, value}.
	for i := 4; i+3 < int(f.Count); i += 4 {
		if d.fieldUint(f, i) == geoKeyGeographicType && d.fieldUint(f, i+1) == 0 {
			return fmt.Sprintf("EPSG:%d", d.fieldUint(f, i+3))
		}
	}
	return srtm.CRS
}

// uintValue reads an unsigned integer field value, returning def when
// the tag is absent.
func (d *decoder) uintValue(tag uint16, i int, def uint64) uint64 {
	f := d.fields[tag]
	if f == nil || i >= int(f.Count) {
		return def
	}
	return d.fieldUint(f, i)
}

func (d *decoder) fieldUint(f *tiff.Field, i int) uint64 {
	switch f.Type {
	case tiff.BYTE:
		return uint64(f.Data[i])
	case tiff.SHORT:
		return uint64(d.order.Uint16(f.Data[2*i:]))
	case tiff.LONG:
		return uint64(d.order.Uint32(f.Data[4*i:]))
	default:
		return 0
	}
}

func (d *decoder) fieldDouble(f *tiff.Field, i int) float64 {
	if f.Type != tiff.DOUBLE {
		return 0
	}
	return math.Float64frombits(d.order.Uint64(f.Data[8*i:]))
}
