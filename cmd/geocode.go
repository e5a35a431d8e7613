package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mowthos/cluster-engine/pkg/geocode"
)

var geocodeFlags addressFlags

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve an address to coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		geocoder := newGeocoder(cfg.Geocode)

		result, err := geocoder.Geocode(cmd.Context(), geocode.AddressInput{
			Street: geocodeFlags.address,
			City:   geocodeFlags.city,
			State:  geocodeFlags.state,
		})
		if err != nil {
			return err
		}
		if !result.Matched {
			fmt.Println("no match")
			return nil
		}
		fmt.Printf("%.6f, %.6f (%s)\n", result.Latitude, result.Longitude, result.Source)
		return nil
	},
}

func init() {
	geocodeFlags.register(geocodeCmd)
	rootCmd.AddCommand(geocodeCmd)
}
