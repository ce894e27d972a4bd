package geotiff

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/kiesman99/relief/pkg/raster"
)

// TIFF field types used by the encoder.
const (
	typeShort  = 3
	typeLong   = 4
	typeASCII  = 2
	typeDouble = 12
)

// ifdEntry is one directory entry plus its raw value bytes. Values
// wider than four bytes are relocated behind the directory when the
// IFD is laid out.
type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	value     []byte
}

// Encode writes g as a tiled, Deflate-compressed GeoTIFF. Write
// errors from w propagate unmodified.
func Encode(w io.Writer, g *raster.Grid) error {
	le := binary.LittleEndian

	across := (g.Cols + blockSize - 1) / blockSize
	down := (g.Rows + blockSize - 1) / blockSize

	// Compress the tiles first; the directory needs their offsets and
	// sizes. Tile data starts right after the 8-byte header. Edge
	// tiles are padded to the full block with the nodata value.
	var data bytes.Buffer
	offsets := make([]uint32, 0, across*down)
	counts := make([]uint32, 0, across*down)

	block := make([]byte, blockSize*blockSize*2)
	for ty := 0; ty < down; ty++ {
		for tx := 0; tx < across; tx++ {
			fillBlock(block, g, tx*blockSize, ty*blockSize, le)

			offsets = append(offsets, uint32(8+data.Len()))
			before := data.Len()
			zw := zlib.NewWriter(&data)
			if _, err := zw.Write(block); err != nil {
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}
			counts = append(counts, uint32(data.Len()-before))
		}
	}

	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(g.Cols), le),
		longEntry(tagImageLength, uint32(g.Rows), le),
		shortEntry(tagBitsPerSample, 16, le),
		shortEntry(tagCompression, compressionDeflate, le),
		shortEntry(tagPhotometric, 1, le), // BlackIsZero
		shortEntry(tagSamplesPerPixel, 1, le),
		shortEntry(tagTileWidth, blockSize, le),
		shortEntry(tagTileLength, blockSize, le),
		longsEntry(tagTileOffsets, offsets, le),
		longsEntry(tagTileByteCounts, counts, le),
		shortEntry(tagSampleFormat, 2, le), // two's complement signed
		doublesEntry(tagModelPixelScale, []float64{
			g.Transform.PixelWidth, g.Transform.PixelHeight, 0,
		}, le),
		doublesEntry(tagModelTiepoint, []float64{
			0, 0, 0, g.Transform.OriginX, g.Transform.OriginY, 0,
		}, le),
		shortsEntry(tagGeoKeyDirectory, geoKeys(g.CRS), le),
		asciiEntry(tagGDALNodata, strconv.Itoa(int(g.Nodata))),
	}

	ifdOffset := 8 + data.Len()
	if ifdOffset%2 != 0 {
		data.WriteByte(0)
		ifdOffset++
	}

	var out bytes.Buffer
	out.Grow(8 + data.Len() + 6 + 12*len(entries) + 256)
	out.WriteString("II")
	binary.Write(&out, le, uint16(42))
	binary.Write(&out, le, uint32(ifdOffset))
	out.Write(data.Bytes())

	writeIFD(&out, entries, uint32(ifdOffset), le)

	if _, err := w.Write(out.Bytes()); err != nil {
		return err
	}
	return nil
}

// WriteFile encodes g to path. A file left behind by a failed write is
// not a valid result; the error is returned as-is.
func WriteFile(path string, g *raster.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fillBlock copies the blockSize x blockSize region of g starting at
// (col0, row0) into dst, padding outside the grid with nodata.
func fillBlock(dst []byte, g *raster.Grid, col0, row0 int, order binary.ByteOrder) {
	nodata := uint16(g.Nodata)
	for y := 0; y < blockSize; y++ {
		row := row0 + y
		for x := 0; x < blockSize; x++ {
			col := col0 + x
			v := nodata
			if row < g.Rows && col < g.Cols {
				v = uint16(g.At(row, col))
			}
			order.PutUint16(dst[(y*blockSize+x)*2:], v)
		}
	}
}

// geoKeys builds the GeoKeyDirectory for a geographic CRS: version
// header, then model type, raster type (PixelIsArea) and the EPSG
// geographic code.
func geoKeys(crs string) []uint16 {
	epsg := uint16(4326)
	if code, ok := strings.CutPrefix(crs, "EPSG:"); ok {
		if n, err := strconv.Atoi(code); err == nil && n > 0 && n < 65535 {
			epsg = uint16(n)
		}
	}
	return []uint16{
		1, 1, 0, 3,
		geoKeyModelType, 0, 1, modelTypeGeographic,
		geoKeyRasterType, 0, 1, rasterPixelIsArea,
		geoKeyGeographicType, 0, 1, epsg,
	}
}

// writeIFD appends the entry table and the out-of-line values behind
// it. Entries are already in ascending tag order.
func writeIFD(out *bytes.Buffer, entries []ifdEntry, ifdOffset uint32, order binary.ByteOrder) {
	valueOffset := ifdOffset + 2 + 12*uint32(len(entries)) + 4
	var overflow bytes.Buffer

	binary.Write(out, order, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(out, order, e.tag)
		binary.Write(out, order, e.fieldType)
		binary.Write(out, order, e.count)
		if len(e.value) <= 4 {
			inline := [4]byte{}
			copy(inline[:], e.value)
			out.Write(inline[:])
			continue
		}
		binary.Write(out, order, valueOffset+uint32(overflow.Len()))
		overflow.Write(e.value)
		if overflow.Len()%2 != 0 {
			overflow.WriteByte(0)
		}
	}
	binary.Write(out, order, uint32(0)) // no next IFD
	out.Write(overflow.Bytes())
}

func shortEntry(tag uint16, v uint16, order binary.ByteOrder) ifdEntry {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return ifdEntry{tag: tag, fieldType: typeShort, count: 1, value: b}
}

func shortsEntry(tag uint16, vs []uint16, order binary.ByteOrder) ifdEntry {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		order.PutUint16(b[2*i:], v)
	}
	return ifdEntry{tag: tag, fieldType: typeShort, count: uint32(len(vs)), value: b}
}

func longEntry(tag uint16, v uint32, order binary.ByteOrder) ifdEntry {
	return longsEntry(tag, []uint32{v}, order)
}

func longsEntry(tag uint16, vs []uint32, order binary.ByteOrder) ifdEntry {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		order.PutUint32(b[4*i:], v)
	}
	return ifdEntry{tag: tag, fieldType: typeLong, count: uint32(len(vs)), value: b}
}

func doublesEntry(tag uint16, vs []float64, order binary.ByteOrder) ifdEntry {
	var b bytes.Buffer
	binary.Write(&b, order, vs)
	return ifdEntry{tag: tag, fieldType: typeDouble, count: uint32(len(vs)), value: b.Bytes()}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, fieldType: typeASCII, count: uint32(len(b)), value: b}
}
