package core

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/codes"
	api "go.opentelemetry.io/otel/metric"

	"github.com/hyperledger-labs/beefy-relayer/beefy"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
)

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// BuildValidatorProofs proves validator-set membership for the signers of the
// given commitment. It queries the BEEFY authority set active at the
// commitment's block, derives the Ethereum address of every authority,
// verifies all signatures present in the commitment against the resulting
// merkle root, and returns a membership proof for every validator in set
// order.
func BuildValidatorProofs(ctx context.Context, src SourceChain, sc *beefy.SignedCommitment) ([]beefy.ValidatorMerkleProof, error) {
	blockHash, err := src.QueryBlockHash(ctx, uint64(sc.Commitment.BlockNumber))
	if err != nil {
		return nil, err
	}

	authorities, err := src.QueryBeefyAuthorities(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if len(authorities) == 0 {
		return nil, ErrNoValidatorSet
	}

	leaves := make([][]byte, len(authorities))
	for i, authority := range authorities {
		address, err := beefy.ECDSAToEthereumAddress(authority)
		if err != nil {
			return nil, errors.Wrapf(err, "authority %d", i)
		}
		leaves[i] = address
	}

	root := beefy.MerkleRoot(leaves)
	proofs := make([]beefy.ValidatorMerkleProof, len(leaves))
	for i := range leaves {
		proof, err := beefy.GenerateMerkleProof(leaves, uint64(i))
		if err != nil {
			return nil, err
		}
		proofs[i] = proof
	}

	hash := sc.Commitment.Hash()
	if err := beefy.VerifyCommitmentSignatures(hash, sc.Signatures, root, proofs, 0, len(sc.Signatures)); err != nil {
		return nil, err
	}

	return proofs, nil
}

// BuildMmrProof fetches the MMR leaf for the commitment's block together with
// its inclusion proof. The commitment block must already be finalized; if it
// is not, ErrBlockTooNew is returned before any further chain query. Block
// zero has no MMR leaf and is rejected outright.
func BuildMmrProof(ctx context.Context, src SourceChain, blockNumber uint32) (*beefy.MmrProof, error) {
	if blockNumber == 0 {
		return nil, ErrInvalidBlockNumber
	}

	latest, err := src.GetLatestFinalizedHeight(ctx)
	if err != nil {
		return nil, err
	}
	if uint64(blockNumber) > latest {
		return nil, errors.Wrapf(ErrBlockTooNew, "block %d, latest finalized %d", blockNumber, latest)
	}

	blockHash, err := src.QueryBlockHash(ctx, uint64(blockNumber))
	if err != nil {
		return nil, err
	}

	// leaf indices are zero-based while block numbers start at one
	leafIndex := uint64(blockNumber) - 1
	leaf, proof, err := src.QueryMmrLeafAndProof(ctx, leafIndex, blockHash)
	if err != nil {
		return nil, err
	}

	return &beefy.MmrProof{MmrLeaf: leaf, MmrLeafProof: proof}, nil
}

// BuildMmrRoot assembles the full light-client update for a signed
// commitment: the commitment itself, membership proofs for its validator set
// and the MMR proof anchoring the commitment's block.
func BuildMmrRoot(ctx context.Context, src SourceChain, sc *beefy.SignedCommitment) (*beefy.MmrRoot, error) {
	proofs, err := BuildValidatorProofs(ctx, src, sc)
	if err != nil {
		return nil, err
	}
	mmrProof, err := BuildMmrProof(ctx, src, sc.Commitment.BlockNumber)
	if err != nil {
		return nil, err
	}
	return assembleMmrRoot(sc, proofs, mmrProof), nil
}

func assembleMmrRoot(sc *beefy.SignedCommitment, proofs []beefy.ValidatorMerkleProof, mmrProof *beefy.MmrProof) *beefy.MmrRoot {
	return &beefy.MmrRoot{
		SignedCommitment:      *sc,
		ValidatorMerkleProofs: proofs,
		MmrLeaf:               mmrProof.MmrLeaf,
		MmrLeafProof:          mmrProof.MmrLeafProof,
	}
}

// SubmitMmrRoot submits the update to every light client of the GRANDPA type
// hosted on the destination chain. A submission failure for one client is
// logged and counted but does not prevent submissions to the remaining
// clients.
func SubmitMmrRoot(ctx context.Context, dst DestChain, root *beefy.MmrRoot) error {
	encoded, err := root.Encode()
	if err != nil {
		return err
	}

	clientIDs, err := dst.QueryLightClients(ctx, ClientTypeGrandpa)
	if err != nil {
		return err
	}

	for _, clientID := range clientIDs {
		logger := log.GetLogger().WithClient(dst.ChainID(), clientID)
		txHash, err := dst.SubmitUpdateClient(ctx, clientID, encoded)
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit the light-client update", err,
				"block_number", root.SignedCommitment.Commitment.BlockNumber,
			)
			metrics.SubmissionFailuresCounter.Add(ctx, 1, api.WithAttributes(
				metrics.ChainIDAttribute(dst.ChainID()),
				metrics.ClientIDAttribute(clientID),
			))
			continue
		}
		logger.InfoContext(ctx, "submitted the light-client update",
			"block_number", root.SignedCommitment.Commitment.BlockNumber,
			"tx_hash", txHash,
		)
	}

	return nil
}

// UpdateClient performs one update cycle for a raw signed commitment: decode,
// prove, assemble and submit to every destination chain.
func UpdateClient(ctx context.Context, src SourceChain, dsts []DestChain, rawCommitment []byte) error {
	logger := log.GetLogger().WithChain(src.ChainID())

	sc, err := beefy.DecodeSignedCommitment(rawCommitment)
	if err != nil {
		logger.ErrorContext(ctx, "failed to decode the signed commitment", err)
		return err
	}

	ctx, span := tracer.Start(ctx, "UpdateClient", WithCommitmentAttributes(src.ChainID(), sc.Commitment.BlockNumber))
	defer span.End()

	root, err := BuildMmrRoot(ctx, src, sc)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build the mmr root", err,
			"block_number", sc.Commitment.BlockNumber,
		)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for _, dst := range dsts {
		if err := SubmitMmrRoot(ctx, dst, root); err != nil {
			logger.ErrorContext(ctx, "failed to submit the mmr root", err,
				"dst_chain_id", dst.ChainID(),
				"block_number", sc.Commitment.BlockNumber,
			)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	metrics.ProcessedCommitmentHeightGauge.Set(int64(sc.Commitment.BlockNumber),
		metrics.ChainIDAttribute(src.ChainID()),
	)
	logger.InfoContext(ctx, "processed the signed commitment",
		"block_number", sc.Commitment.BlockNumber,
		"validator_set_id", sc.Commitment.ValidatorSetID,
		"signatures", sc.SignatureCount(),
	)

	return nil
}

// isCommitmentFault reports whether an update failure is pinned to the
// commitment itself rather than the chain connection. Retrying such a
// commitment cannot succeed; it is dropped and the next one is awaited.
func isCommitmentFault(err error) bool {
	return errors.Is(err, beefy.ErrDecode) ||
		errors.Is(err, beefy.ErrInvalidSignature) ||
		errors.Is(err, beefy.ErrInvalidRecoveryID) ||
		errors.Is(err, beefy.ErrWrongSignature) ||
		errors.Is(err, beefy.ErrValidatorNotFound) ||
		errors.Is(err, beefy.ErrInvalidValidatorProof) ||
		errors.Is(err, ErrBlockTooNew) ||
		errors.Is(err, ErrNoValidatorSet) ||
		errors.Is(err, ErrInvalidBlockNumber)
}

type serviceConfig struct {
	backoff *Backoff
}

type ServiceOption func(*serviceConfig)

// WithServiceBackoff overrides the reconnect backoff parameters of the
// update service.
func WithServiceBackoff(initialDelay, maxDelay, budget time.Duration) ServiceOption {
	return func(c *serviceConfig) {
		c.backoff = NewBackoff(initialDelay, maxDelay, budget)
	}
}

// UpdateClientService consumes the BEEFY justification stream of the source
// chain and performs one update cycle per signed commitment, strictly in
// stream order. When the stream terminates the service reconnects and
// resubscribes with Fibonacci-growing delays until the cumulative retry
// budget is spent. It returns when the context is canceled or the budget
// runs out.
func UpdateClientService(ctx context.Context, src SourceChain, dsts []DestChain, opts ...ServiceOption) error {
	logger := log.GetLogger().WithChain(src.ChainID())

	cfg := serviceConfig{backoff: NewDefaultBackoff()}
	for _, opt := range opts {
		opt(&cfg)
	}

	justifications, err := subscribeJustifications(ctx, src, cfg.backoff)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "started the light-client update service")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rawCommitment, ok := <-justifications:
			if !ok {
				logger.InfoContext(ctx, "the justification stream terminated, resubscribing")
				if justifications, err = resubscribeJustifications(ctx, src, cfg.backoff); err != nil {
					return err
				}
				continue
			}
			err := retry.Do(func() error {
				return UpdateClient(ctx, src, dsts, rawCommitment)
			}, rtyAtt, rtyDel, rtyErr, retry.Context(ctx), retry.RetryIf(func(err error) bool {
				return !isCommitmentFault(err)
			}), retry.OnRetry(func(n uint, err error) {
				logger.InfoContext(ctx,
					"retrying the update cycle",
					"try", n+1,
					"try_limit", rtyAttNum,
					"error", err.Error(),
				)
			}))
			if err != nil {
				// a faulty commitment is superseded by the next one
				if isCommitmentFault(err) {
					logger.ErrorContext(ctx, "skipping an unprovable commitment", err)
					continue
				}
				return err
			}
		}
	}
}

// openJustificationStream re-establishes the transport before subscribing;
// after a connection teardown the subscription cannot succeed on a dead
// socket.
func openJustificationStream(ctx context.Context, src SourceChain) (<-chan []byte, error) {
	if err := src.Connect(ctx); err != nil {
		return nil, err
	}
	return src.SubscribeJustifications(ctx)
}

// subscribeJustifications opens the justification stream, falling back to
// the reconnect loop when the first attempt fails.
func subscribeJustifications(ctx context.Context, src SourceChain, backoff *Backoff) (<-chan []byte, error) {
	stream, err := openJustificationStream(ctx, src)
	if err == nil {
		backoff.Reset()
		return stream, nil
	}
	log.GetLogger().WithChain(src.ChainID()).ErrorContext(ctx, "failed to subscribe to justifications", err)
	return resubscribeJustifications(ctx, src, backoff)
}

// resubscribeJustifications retries the subscription under the Fibonacci
// backoff schedule.
func resubscribeJustifications(ctx context.Context, src SourceChain, backoff *Backoff) (<-chan []byte, error) {
	logger := log.GetLogger().WithChain(src.ChainID())
	for {
		delay, ok := backoff.Next()
		if !ok {
			return nil, errors.Wrapf(ErrRetryBudgetExhausted, "chain %s", src.ChainID())
		}
		if err := Wait(ctx, delay); err != nil {
			return nil, err
		}

		stream, err := openJustificationStream(ctx, src)
		if err != nil {
			logger.ErrorContext(ctx, "reconnect attempt failed", err, "delay", delay)
			continue
		}
		backoff.Reset()
		return stream, nil
	}
}
