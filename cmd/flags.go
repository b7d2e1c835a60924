package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagBusCapacity = "bus-capacity"
	flagConcurrency = "concurrency"
)

var (
	busCapacity        int
	monitorConcurrency int
)

func serviceFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().IntVar(&busCapacity, flagBusCapacity, 1024, "capacity of the event bus buffer")
	if err := viper.BindPFlag(flagBusCapacity, cmd.Flags().Lookup(flagBusCapacity)); err != nil {
		panic(err)
	}
	cmd.Flags().IntVar(&monitorConcurrency, flagConcurrency, 4, "number of event batches decoded in parallel")
	if err := viper.BindPFlag(flagConcurrency, cmd.Flags().Lookup(flagConcurrency)); err != nil {
		panic(err)
	}
	return cmd
}
