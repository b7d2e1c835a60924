package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrBlockTooNew is returned when a commitment refers to a block that the
	// source chain has not finalized yet. No chain queries are performed in
	// that case.
	ErrBlockTooNew = errors.New("commitment block is newer than the latest finalized block")

	// ErrNoValidatorSet is returned when the source chain reports an empty
	// BEEFY authority set.
	ErrNoValidatorSet = errors.New("empty validator set")

	// ErrInvalidBlockNumber is returned when a commitment names block zero,
	// which has no MMR leaf.
	ErrInvalidBlockNumber = errors.New("block number must be positive")

	// ErrRetryBudgetExhausted is returned when the cumulative reconnect
	// budget has been spent without a successful resubscription.
	ErrRetryBudgetExhausted = errors.New("reconnect retry budget exhausted")
)
