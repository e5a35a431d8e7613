package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mowthos/cluster-engine/internal/model"
)

var (
	discoverFlags  addressFlags
	findHostsFlags addressFlags
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List qualified neighbor homes for a host address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		qualified, err := env.Service.DiscoverNeighborsForHost(cmd.Context(), discoverFlags.record())
		if err != nil {
			return err
		}

		if len(qualified) == 0 {
			fmt.Println("no qualified neighbors found")
			return nil
		}
		for i, addr := range model.FullAddresses(qualified) {
			fmt.Printf("%d. %s\n", i+1, addr)
		}
		if len(qualified) < model.MinClusterSize {
			fmt.Printf("(%d qualified, below the minimum cluster size of %d)\n", len(qualified), model.MinClusterSize)
		}
		return nil
	},
}

var findHostsCmd = &cobra.Command{
	Use:   "find-hosts",
	Short: "List qualified host homes for a neighbor address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		qualified, err := env.Service.FindQualifiedHostsForNeighbor(cmd.Context(), findHostsFlags.record())
		if err != nil {
			return err
		}

		if len(qualified) == 0 {
			fmt.Println("no qualified hosts found")
			return nil
		}
		for i, addr := range model.FullAddresses(qualified) {
			fmt.Printf("%d. %s\n", i+1, addr)
		}
		return nil
	},
}

func init() {
	discoverFlags.register(discoverCmd)
	findHostsFlags.register(findHostsCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(findHostsCmd)
}
