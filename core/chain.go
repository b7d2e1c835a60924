package core

import (
	"context"
)

// ClientTypeGrandpa is the light-client type updated by the BEEFY pipeline.
const ClientTypeGrandpa = "10-grandpa"

// RawEvent is a chain-native runtime event: the canonical kind resolved by
// the chain's event registry plus the undecoded payload bytes.
type RawEvent struct {
	Kind EventKind
	Data []byte
}

// Chain is the capability set common to source and destination handles.
// Handles are logically shared but physically cloned per task; a clone is an
// independent connection-multiplexing handle to the same endpoint and no
// client-side locking is performed.
type Chain interface {
	// ChainID returns ID of the chain
	ChainID() string

	// Connect establishes the underlying RPC connection
	Connect(ctx context.Context) error

	// Close tears down the underlying RPC connection
	Close() error

	// Clone returns an independent handle to the same endpoint
	Clone() Chain
}

// CloneSource clones a source chain handle, preserving its type.
func CloneSource(c SourceChain) SourceChain {
	return c.Clone().(SourceChain)
}

// CloneDest clones a destination chain handle, preserving its type.
func CloneDest(c DestChain) DestChain {
	return c.Clone().(DestChain)
}

// SourceChain is the handle to a chain whose finality is proven to
// counterparty chains.
type SourceChain interface {
	Chain

	// GetLatestFinalizedHeight returns the latest finalized block number
	GetLatestFinalizedHeight(ctx context.Context) (uint64, error)

	// QueryBlockHash resolves the block hash for a block number
	QueryBlockHash(ctx context.Context, blockNumber uint64) ([]byte, error)

	// QueryBeefyAuthorities returns the BEEFY authority set at the given block
	// hash as 33-byte compressed secp256k1 public keys, in validator order
	QueryBeefyAuthorities(ctx context.Context, blockHash []byte) ([][]byte, error)

	// QueryMmrLeafAndProof fetches the MMR leaf at leafIndex and its inclusion
	// proof, both as opaque encoded blobs, evaluated at the given block hash
	QueryMmrLeafAndProof(ctx context.Context, leafIndex uint64, blockHash []byte) (leaf, proof []byte, err error)

	// SubscribeJustifications opens the BEEFY justification stream. Each
	// element is the raw wire encoding of one signed commitment. The channel
	// is closed when the stream terminates.
	SubscribeJustifications(ctx context.Context) (<-chan []byte, error)

	// SubscribeRuntimeEvents opens the runtime event stream consumed by the
	// event monitor. The channel is closed when the stream terminates.
	SubscribeRuntimeEvents(ctx context.Context) (<-chan []RawEvent, error)
}

// DestChain is the handle to a chain hosting light clients that this relayer
// updates.
type DestChain interface {
	Chain

	// QueryLightClients returns the identifiers of all light clients of the
	// given client type hosted on the chain. Clients of other types are not
	// returned.
	QueryLightClients(ctx context.Context, clientType string) ([]string, error)

	// SubmitUpdateClient submits the encoded MmrRoot to the light-client
	// update entry point for the given client and returns the tx hash
	SubmitUpdateClient(ctx context.Context, clientID string, encodedMmrRoot []byte) ([]byte, error)
}
