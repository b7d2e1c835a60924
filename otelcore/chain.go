package otelcore

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperledger-labs/beefy-relayer/core"
)

// SourceChain wraps a source chain so every query shows up as a span.
type SourceChain struct {
	core.SourceChain
	tracer trace.Tracer
}

func NewSourceChain(chain core.SourceChain, tracer trace.Tracer) core.SourceChain {
	return &SourceChain{
		SourceChain: chain,
		tracer:      tracer,
	}
}

func (c *SourceChain) Clone() core.Chain {
	return &SourceChain{
		SourceChain: core.CloneSource(c.SourceChain),
		tracer:      c.tracer,
	}
}

func (c *SourceChain) GetLatestFinalizedHeight(ctx context.Context) (uint64, error) {
	ctx, span := c.tracer.Start(ctx, "SourceChain.GetLatestFinalizedHeight",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	height, err := c.SourceChain.GetLatestFinalizedHeight(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return height, err
}

func (c *SourceChain) QueryBlockHash(ctx context.Context, blockNumber uint64) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "SourceChain.QueryBlockHash",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	hash, err := c.SourceChain.QueryBlockHash(ctx, blockNumber)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return hash, err
}

func (c *SourceChain) QueryBeefyAuthorities(ctx context.Context, blockHash []byte) ([][]byte, error) {
	ctx, span := c.tracer.Start(ctx, "SourceChain.QueryBeefyAuthorities",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	authorities, err := c.SourceChain.QueryBeefyAuthorities(ctx, blockHash)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return authorities, err
}

func (c *SourceChain) QueryMmrLeafAndProof(ctx context.Context, leafIndex uint64, blockHash []byte) ([]byte, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "SourceChain.QueryMmrLeafAndProof",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	leaf, proof, err := c.SourceChain.QueryMmrLeafAndProof(ctx, leafIndex, blockHash)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return leaf, proof, err
}

func (c *SourceChain) SubscribeJustifications(ctx context.Context) (<-chan []byte, error) {
	// the span covers the subscription setup only, not the stream itself
	ctx, span := c.tracer.Start(ctx, "SourceChain.SubscribeJustifications",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	ch, err := c.SourceChain.SubscribeJustifications(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ch, err
}

func (c *SourceChain) SubscribeRuntimeEvents(ctx context.Context) (<-chan []core.RawEvent, error) {
	ctx, span := c.tracer.Start(ctx, "SourceChain.SubscribeRuntimeEvents",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	ch, err := c.SourceChain.SubscribeRuntimeEvents(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ch, err
}

// DestChain wraps a destination chain so every query and submission shows up
// as a span.
type DestChain struct {
	core.DestChain
	tracer trace.Tracer
}

func NewDestChain(chain core.DestChain, tracer trace.Tracer) core.DestChain {
	return &DestChain{
		DestChain: chain,
		tracer:    tracer,
	}
}

func (c *DestChain) Clone() core.Chain {
	return &DestChain{
		DestChain: core.CloneDest(c.DestChain),
		tracer:    c.tracer,
	}
}

func (c *DestChain) QueryLightClients(ctx context.Context, clientType string) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "DestChain.QueryLightClients",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	clientIDs, err := c.DestChain.QueryLightClients(ctx, clientType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return clientIDs, err
}

func (c *DestChain) SubmitUpdateClient(ctx context.Context, clientID string, encodedMmrRoot []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "DestChain.SubmitUpdateClient",
		core.WithClientAttributes(c.ChainID(), clientID),
	)
	defer span.End()

	txHash, err := c.DestChain.SubmitUpdateClient(ctx, clientID, encodedMmrRoot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return txHash, err
}
