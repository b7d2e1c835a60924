package cmd

import (
	"go.opentelemetry.io/otel"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/otelcore"
)

var tracer = otel.Tracer("github.com/hyperledger-labs/beefy-relayer/cmd")

// traceChains wraps the chains of a path so that every RPC interaction is
// recorded as a span.
func traceChains(src core.SourceChain, dsts []core.DestChain) (core.SourceChain, []core.DestChain) {
	traced := make([]core.DestChain, len(dsts))
	for i, dst := range dsts {
		traced[i] = otelcore.NewDestChain(dst, tracer)
	}
	return otelcore.NewSourceChain(src, tracer), traced
}
