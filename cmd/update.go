package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/beefy-relayer/config"
	"github.com/hyperledger-labs/beefy-relayer/core"
)

// updateCmd performs a single update cycle: it waits for the next BEEFY
// justification on the path's source chain, builds the update and submits it
// to every destination.
func updateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [path-name]",
		Short: "Relay the next signed commitment once and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dsts, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}

			src, dsts = traceChains(src, dsts)

			cmdCtx := cmd.Context()
			if err := connectAll(cmdCtx, src, dsts); err != nil {
				return err
			}
			defer closeAll(src, dsts)

			justifications, err := src.SubscribeJustifications(cmdCtx)
			if err != nil {
				return err
			}

			select {
			case <-cmdCtx.Done():
				return cmdCtx.Err()
			case raw, ok := <-justifications:
				if !ok {
					return errors.New("the justification stream was closed")
				}
				return core.UpdateClient(cmdCtx, src, dsts, raw)
			}
		},
	}
	return cmd
}
