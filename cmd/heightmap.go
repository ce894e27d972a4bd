package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/relief/internal/convert"
)

var heightmapCmd = &cobra.Command{
	Use:   "heightmap <input.tif> <output.png>",
	Short: "Render a DEM GeoTIFF as an 8-bit grayscale heightmap",
	Long: `Render a single-band elevation GeoTIFF as a grayscale heightmap PNG.

Elevation values are normalized linearly onto 0-255 between the raster's
own minimum and maximum. Nodata cells render black; the nodata value is
taken from the raster's metadata when present.

Examples:
  relief heightmap brisbane.tif brisbane.png`,
	Args: cobra.ExactArgs(2),
	RunE: runHeightmap,
}

func init() {
	rootCmd.AddCommand(heightmapCmd)
}

func runHeightmap(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	converter := convert.New(convert.Options{
		TileSize: viper.GetInt("tile-size"),
		Nodata:   int16(viper.GetInt("nodata")),
	})

	result, err := converter.GeoTIFFToHeightmap(cmd.Context(), data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.PNGData, 0o644); err != nil {
		return fmt.Errorf("failed to write PNG: %v", err)
	}

	fmt.Fprintf(os.Stderr, "==Elevation range: %d to %d meters\n", result.MinElev, result.MaxElev)
	fmt.Fprintf(os.Stderr, "==Size: %dx%d pixels\n", result.Cols, result.Rows)
	fmt.Fprintf(os.Stderr, "==Grayscale range: 0-255 (mapped from %dm to %dm)\n", result.MinElev, result.MaxElev)
	fmt.Fprintf(os.Stderr, "Heightmap saved to %s\n", output)

	return nil
}
