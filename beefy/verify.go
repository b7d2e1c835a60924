package beefy

import (
	"bytes"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidSignature is returned when a signature is malformed.
	ErrInvalidSignature = errors.New("beefy: invalid signature")
	// ErrInvalidRecoveryID is returned when the recovery id byte is out of range.
	ErrInvalidRecoveryID = errors.New("beefy: invalid recovery id")
	// ErrWrongSignature is returned when public key recovery fails.
	ErrWrongSignature = errors.New("beefy: wrong signature")
	// ErrValidatorNotFound is returned when the recovered signer matches no
	// supplied validator proof.
	ErrValidatorNotFound = errors.New("beefy: validator not found")
	// ErrInvalidValidatorProof is returned when a matched validator proof does
	// not verify against the validator-set root.
	ErrInvalidValidatorProof = errors.New("beefy: invalid validator proof")
)

// VerifyCommitmentSignatures checks that each present signature in the window
// [start, start+count) of the sparse, positionally-aligned signature list was
// produced by a member of the validator set committed to by validatorSetRoot.
// Absent slots are skipped. The window bounds support incremental quorum
// checking; how many valid signatures are enough is the caller's policy.
func VerifyCommitmentSignatures(
	commitmentHash Hash,
	signatures []*Signature,
	validatorSetRoot Hash,
	validatorProofs []ValidatorMerkleProof,
	start, count int,
) error {
	end := start + count
	if end > len(signatures) {
		end = len(signatures)
	}
	for i := start; i < end && i >= 0; i++ {
		sig := signatures[i]
		if sig == nil {
			continue
		}
		addr, err := RecoverSignerAddress(commitmentHash, sig.Bytes)
		if err != nil {
			return err
		}
		var proof *ValidatorMerkleProof
		for j := range validatorProofs {
			if bytes.Equal(validatorProofs[j].Leaf, addr) {
				proof = &validatorProofs[j]
				break
			}
		}
		if proof == nil {
			return errors.Wrapf(ErrValidatorNotFound, "signature %d, signer %x", i, addr)
		}
		if !VerifyMerkleProof(validatorSetRoot, *proof) {
			return errors.Wrapf(ErrInvalidValidatorProof, "signature %d, signer %x", i, addr)
		}
	}
	return nil
}

// RecoverSignerAddress recovers the signer of a 65-byte (r, s, v) signature
// over the commitment hash and derives the Ethereum-style address: the last
// 20 bytes of the Keccak-256 hash of the uncompressed public key without its
// prefix byte.
func RecoverSignerAddress(commitmentHash Hash, sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, errors.Wrapf(ErrInvalidSignature, "length %d", len(sig))
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return nil, errors.Wrapf(ErrInvalidRecoveryID, "recovery id %d", sig[64])
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return nil, errors.Wrap(ErrInvalidSignature, "r/s out of range")
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig[:64])
	normalized[64] = v
	pub, err := crypto.SigToPub(commitmentHash[:], normalized)
	if err != nil {
		return nil, errors.Wrapf(ErrWrongSignature, "%v", err)
	}
	return crypto.PubkeyToAddress(*pub).Bytes(), nil
}

// ECDSAToEthereumAddress converts a 33-byte compressed secp256k1 public key
// (the BEEFY authority representation) into an Ethereum-style address.
func ECDSAToEthereumAddress(compressed []byte) ([]byte, error) {
	pub, err := crypto.DecompressPubkey(compressed)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSignature, "decompress public key: %v", err)
	}
	return crypto.PubkeyToAddress(*pub).Bytes(), nil
}
