package coreutil

import (
	"fmt"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/otelcore"
)

// UnwrapChain peels tracing wrappers off a chain until it finds a value that
// matches the specified type argument.
//
// In the following example, UnwrapChain returns the *substrate.Chain hidden
// behind an otelcore wrapper:
//
//	chain, err := coreutil.UnwrapChain[*substrate.Chain](tracedChain)
func UnwrapChain[C core.Chain](c core.Chain) (C, error) {
	chain := c
	for {
		switch unwrapped := chain.(type) {
		case *otelcore.SourceChain:
			chain = unwrapped.SourceChain
		case *otelcore.DestChain:
			chain = unwrapped.DestChain
		case C:
			return unwrapped, nil
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap chain: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}
