package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mowthos/cluster-engine/internal/model"
)

var (
	adjALat, adjALon float64
	adjBLat, adjBLon float64
)

var testAdjacencyCmd = &cobra.Command{
	Use:   "test-adjacency",
	Short: "Check whether two coordinates are adjacent (no road between them)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		oracle, err := newOracle(cfg.Adjacency)
		if err != nil {
			return err
		}

		res := oracle.IsAdjacent(cmd.Context(),
			model.Coordinate{Lat: adjALat, Lon: adjALon},
			model.Coordinate{Lat: adjBLat, Lon: adjBLon},
		)
		fmt.Printf("adjacent=%t reason=%s\n", res.Adjacent, res.Reason)
		return nil
	},
}

func init() {
	testAdjacencyCmd.Flags().Float64Var(&adjALat, "a-lat", 0, "first point latitude (required)")
	testAdjacencyCmd.Flags().Float64Var(&adjALon, "a-lon", 0, "first point longitude (required)")
	testAdjacencyCmd.Flags().Float64Var(&adjBLat, "b-lat", 0, "second point latitude (required)")
	testAdjacencyCmd.Flags().Float64Var(&adjBLon, "b-lon", 0, "second point longitude (required)")
	_ = testAdjacencyCmd.MarkFlagRequired("a-lat")
	_ = testAdjacencyCmd.MarkFlagRequired("a-lon")
	_ = testAdjacencyCmd.MarkFlagRequired("b-lat")
	_ = testAdjacencyCmd.MarkFlagRequired("b-lon")
	rootCmd.AddCommand(testAdjacencyCmd)
}
