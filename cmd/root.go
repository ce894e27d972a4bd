package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relief",
	Short: "Convert SRTM elevation tiles to GeoTIFF rasters and heightmap images",
	Long: `relief converts raw SRTM 1-arcsecond elevation tiles between formats.

An HGT tile is a headerless grid of big-endian elevation samples whose
geographic placement is encoded in its filename. relief turns such tiles
into georeferenced GeoTIFF rasters, and renders any single-band elevation
GeoTIFF into an 8-bit grayscale heightmap PNG.

Examples:
  # Convert an SRTM tile to a georeferenced GeoTIFF
  relief geotiff S27E152.hgt brisbane.tif

  # Also write an ESRI world file next to the output
  relief geotiff -w S27E152.hgt brisbane.tif

  # Render a DEM GeoTIFF as a grayscale heightmap
  relief heightmap brisbane.tif brisbane.png

  # Start the HTTP conversion API
  relief serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.relief.yaml)")

	// Grid parameters shared by the conversion commands. The defaults
	// are the SRTM1 distribution values.
	rootCmd.PersistentFlags().Int("tile-size", 3601, "tile edge length in samples")
	rootCmd.PersistentFlags().Int("nodata", -32768, "data-void sentinel value")

	viper.BindPFlag("tile-size", rootCmd.PersistentFlags().Lookup("tile-size"))
	viper.BindPFlag("nodata", rootCmd.PersistentFlags().Lookup("nodata"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".relief" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".relief")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
