package module

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/beefy-relayer/chains/substrate"
	substratecmd "github.com/hyperledger-labs/beefy-relayer/chains/substrate/cmd"
	"github.com/hyperledger-labs/beefy-relayer/config"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "substrate"
}

// NewChainConfig returns an empty substrate chain config
func (Module) NewChainConfig() config.ChainConfig {
	return &substrate.ChainConfig{}
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return substratecmd.SubstrateCmd(ctx)
}
