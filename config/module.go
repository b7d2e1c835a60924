package config

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/beefy-relayer/core"
)

// ChainConfig is the typed configuration of one chain entry, provided by the
// module named in the entry's "type" attribute.
type ChainConfig interface {
	Validate() error
	Build() (core.Chain, error)
}

// ModuleI is implemented by chain modules registered at startup.
type ModuleI interface {
	// Name returns the name of the module
	Name() string

	// NewChainConfig returns an empty chain config to decode entries into
	NewChainConfig() ChainConfig

	// GetCmd returns the module's command, or nil if it has none
	GetCmd(ctx *Context) *cobra.Command
}
