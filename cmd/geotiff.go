package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/relief/internal/convert"
	"github.com/kiesman99/relief/pkg/srtm"
)

var geotiffCmd = &cobra.Command{
	Use:   "geotiff <input.hgt> <output.tif>",
	Short: "Convert an SRTM HGT tile to a georeferenced GeoTIFF",
	Long: `Convert a raw SRTM HGT elevation tile to a GeoTIFF raster.

The tile's geographic bounds are derived from the input filename stem
(e.g. S27E152.hgt covers the cell from 27S 152E to 26S 153E). The output
is a single-band signed 16-bit GeoTIFF, internally tiled and losslessly
compressed, with the SRTM nodata value marked.

Examples:
  relief geotiff S27E152.hgt brisbane.tif
  relief geotiff -w N47W122.hgt seattle.tif`,
	Args: cobra.ExactArgs(2),
	RunE: runGeoTIFF,
}

func init() {
	rootCmd.AddCommand(geotiffCmd)

	geotiffCmd.Flags().BoolP("worldfile", "w", false, "write world file")
	viper.BindPFlag("worldfile", geotiffCmd.Flags().Lookup("worldfile"))
}

func runGeoTIFF(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	id, err := srtm.ParseFilename(input)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	converter := convert.New(convert.Options{
		TileSize:       viper.GetInt("tile-size"),
		Nodata:         int16(viper.GetInt("nodata")),
		WriteWorldFile: viper.GetBool("worldfile"),
	})

	result, err := converter.HGTToGeoTIFF(cmd.Context(), id.String(), data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.TIFFData, 0o644); err != nil {
		return fmt.Errorf("failed to write GeoTIFF: %v", err)
	}

	if result.WorldFileData != nil {
		wf := worldFileName(output)
		if err := os.WriteFile(wf, result.WorldFileData, 0o644); err != nil {
			return fmt.Errorf("failed to write world file: %v", err)
		}
		fmt.Fprintf(os.Stderr, "World file written to '%s'.\n", wf)
	}

	b := result.Bounds
	fmt.Fprintf(os.Stderr, "==Tile: %s\n", id)
	fmt.Fprintf(os.Stderr, "==Bounds (EPSG:4326): %g,%g to %g,%g\n", b.West, b.South, b.East, b.North)
	fmt.Fprintf(os.Stderr, "==Raster Size: %dx%d\n", result.Cols, result.Rows)
	fmt.Fprintf(os.Stderr, "==Resolution: %.6f degrees (~30m)\n", result.PixelSize)
	if result.HasRange {
		fmt.Fprintf(os.Stderr, "==Data range: %d to %d meters\n", result.MinElev, result.MaxElev)
	} else {
		fmt.Fprintf(os.Stderr, "==Data range: all nodata\n")
	}
	fmt.Fprintf(os.Stderr, "Successfully converted %s to %s\n", input, output)

	return nil
}

// worldFileName swaps the output extension for .tfw.
func worldFileName(output string) string {
	if idx := strings.LastIndex(output, "."); idx != -1 {
		return output[:idx] + ".tfw"
	}
	return output + ".tfw"
}
