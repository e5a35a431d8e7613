package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/model"
)

// addressFlags holds the shared --address/--city/--state/--lat/--lon flag set.
type addressFlags struct {
	address string
	city    string
	state   string
	lat     float64
	lon     float64
}

func (f *addressFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.address, "address", "", "street address (required)")
	cmd.Flags().StringVar(&f.city, "city", "", "city (required)")
	cmd.Flags().StringVar(&f.state, "state", "", "state (required)")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude (optional, geocoded when omitted)")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude (optional, geocoded when omitted)")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("state")
}

func (f *addressFlags) record() model.AddressRecord {
	return model.AddressRecord{
		Address:   f.address,
		City:      f.city,
		State:     f.state,
		Latitude:  f.lat,
		Longitude: f.lon,
	}
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a host or neighbor home",
}

var (
	registerHostFlags     addressFlags
	registerNeighborFlags addressFlags
)

var registerHostCmd = &cobra.Command{
	Use:   "host",
	Short: "Register a host home",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Service.RegisterHost(cmd.Context(), registerHostFlags.record())
		if err != nil {
			return err
		}
		zap.L().Info("host registered", zap.String("id", rec.ID))
		fmt.Printf("registered host %s at (%.6f, %.6f)\n", rec.FullAddress(), rec.Latitude, rec.Longitude)
		return nil
	},
}

var registerNeighborCmd = &cobra.Command{
	Use:   "neighbor",
	Short: "Register a neighbor home",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Service.RegisterNeighbor(cmd.Context(), registerNeighborFlags.record())
		if err != nil {
			return err
		}
		zap.L().Info("neighbor registered", zap.String("id", rec.ID))
		fmt.Printf("registered neighbor %s at (%.6f, %.6f)\n", rec.FullAddress(), rec.Latitude, rec.Longitude)
		return nil
	},
}

func init() {
	registerHostFlags.register(registerHostCmd)
	registerNeighborFlags.register(registerNeighborCmd)
	registerCmd.AddCommand(registerHostCmd)
	registerCmd.AddCommand(registerNeighborCmd)
	rootCmd.AddCommand(registerCmd)
}
