package srtm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTileID(t *testing.T) {
	tests := []struct {
		name string
		want TileID
	}{
		{"S27E152", TileID{LatDeg: 27, LonDeg: 152, NS: 'S', EW: 'E'}},
		{"N00E000", TileID{LatDeg: 0, LonDeg: 0, NS: 'N', EW: 'E'}},
		{"N47W122", TileID{LatDeg: 47, LonDeg: 122, NS: 'N', EW: 'W'}},
		{"S89W179", TileID{LatDeg: 89, LonDeg: 179, NS: 'S', EW: 'W'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseTileID(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.name, id.String())
		})
	}
}

func TestParseTileIDMalformed(t *testing.T) {
	bad := []string{
		"",
		"S27",
		"S27E1521",  // too long
		"X27E152",   // bad lat hemisphere
		"S27X152",   // bad lon hemisphere
		"s27e152",   // lower case
		"SxxE152",   // non-digit latitude
		"S27Exx2",   // non-digit longitude
		"S-7E152",   // sign instead of digit
		"S27E152\n", // trailing junk
	}

	for _, name := range bad {
		_, err := ParseTileID(name)
		assert.ErrorIs(t, err, ErrMalformedName, "name %q", name)
	}
}

func TestTileIDBounds(t *testing.T) {
	tests := []struct {
		name string
		want Bounds
	}{
		{"S27E152", Bounds{West: 152, South: -27, East: 153, North: -26}},
		{"N00E000", Bounds{West: 0, South: 0, East: 1, North: 1}},
		{"N47W122", Bounds{West: -122, South: 47, East: -121, North: 48}},
		{"S01W001", Bounds{West: -1, South: -1, East: 0, North: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseTileID(tt.name)
			require.NoError(t, err)
			b := id.Bounds()
			assert.Equal(t, tt.want, b)
			assert.Greater(t, b.East, b.West)
			assert.Greater(t, b.North, b.South)
		})
	}
}

func TestParseFilename(t *testing.T) {
	id, err := ParseFilename("/srtm/cache/S27E152.hgt")
	require.NoError(t, err)
	assert.Equal(t, "S27E152", id.String())

	_, err = ParseFilename("/srtm/cache/readme.txt")
	assert.ErrorIs(t, err, ErrMalformedName)
}
