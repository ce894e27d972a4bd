package convert

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// decodeGray decodes PNG data and returns the grayscale pixels.
func decodeGray(t *testing.T, data []byte) []uint8 {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok, "expected grayscale PNG")
	return gray.Pix
}
