package core

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/hyperledger-labs/beefy-relayer/core")
)

// WithChainAttributes annotates a span with the identity of the chain being
// queried.
func WithChainAttributes(chainID string) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyChainID.String(chainID))
}

// WithClientAttributes annotates a span with the identity of a light client.
func WithClientAttributes(chainID, clientID string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttributeKeyChainID.String(chainID),
		AttributeKeyClientID.String(clientID),
	)
}

// WithCommitmentAttributes annotates a span with the identity of the
// commitment being processed.
func WithCommitmentAttributes(chainID string, blockNumber uint32) trace.SpanStartOption {
	// Convert block_number to string because the attribute package does not support uint64
	return trace.WithAttributes(AttributeGroup("commitment",
		AttributeKeyChainID.String(chainID),
		AttributeKeyBlockNumber.String(fmt.Sprint(blockNumber)),
	)...)
}
