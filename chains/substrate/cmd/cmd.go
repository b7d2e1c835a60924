package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/beefy-relayer/chains/substrate"
	"github.com/hyperledger-labs/beefy-relayer/config"
	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/coreutil"
)

func SubstrateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substrate",
		Short: "manage substrate chain endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		latestHeightCmd(ctx),
		clientsCmd(ctx),
		endpointCmd(ctx),
	)

	return cmd
}

func latestHeightCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "latest-height [chain-id]",
		Short: "Query the latest BEEFY-finalized block number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetSourceChain(args[0])
			if err != nil {
				return err
			}
			if err := chain.Connect(cmd.Context()); err != nil {
				return err
			}
			defer chain.Close()

			height, err := chain.GetLatestFinalizedHeight(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), height)
			return nil
		},
	}
}

func clientsCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "clients [chain-id]",
		Short: "List the GRANDPA light clients hosted on the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetDestChain(args[0])
			if err != nil {
				return err
			}
			if err := chain.Connect(cmd.Context()); err != nil {
				return err
			}
			defer chain.Close()

			clientIDs, err := chain.QueryLightClients(cmd.Context(), core.ClientTypeGrandpa)
			if err != nil {
				return err
			}
			for _, clientID := range clientIDs {
				fmt.Fprintln(cmd.OutOrStdout(), clientID)
			}
			return nil
		},
	}
}

func endpointCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint [chain-id]",
		Short: "Show the websocket endpoint of the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			concrete, err := coreutil.UnwrapChain[*substrate.Chain](chain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), concrete.Config().RpcAddr)
			return nil
		},
	}
}
