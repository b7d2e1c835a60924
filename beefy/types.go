// Package beefy implements the BEEFY signed-commitment wire codec, the
// Keccak-256 validator Merkle tree and commitment signature verification.
package beefy

// SignatureLength is the length of a serialized (r, s, v) signature.
const SignatureLength = 65

// MmrRootID is the well-known payload id carrying the MMR root hash.
var MmrRootID = [2]byte{'m', 'h'}

// PayloadItem is a single entry of a commitment payload, keyed by a 2-byte id.
type PayloadItem struct {
	ID   [2]byte
	Data []byte
}

// Commitment is the block metadata signed by the BEEFY validator set.
type Commitment struct {
	Payloads       []PayloadItem
	BlockNumber    uint32
	ValidatorSetID uint64
}

// GetPayload returns the payload data registered under the given id.
func (c *Commitment) GetPayload(id [2]byte) ([]byte, bool) {
	for _, p := range c.Payloads {
		if p.ID == id {
			return p.Data, true
		}
	}
	return nil, false
}

// Signature is a validator signature together with the validator's leaf
// position in the validator Merkle tree.
type Signature struct {
	Index uint32
	Bytes []byte
}

// SignedCommitment is a commitment plus the signatures attesting to it.
// Signatures is positionally aligned with the validator set: Signatures[i]
// belongs to validator leaf i and absent slots are nil.
type SignedCommitment struct {
	Commitment Commitment
	Signatures []*Signature
}

// SignatureCount returns the number of present signatures.
func (sc *SignedCommitment) SignatureCount() int {
	n := 0
	for _, sig := range sc.Signatures {
		if sig != nil {
			n++
		}
	}
	return n
}

// ValidatorMerkleProof proves inclusion of one validator address in the
// validator Merkle tree. Proof holds the sibling hash at each level from
// leaf to root.
type ValidatorMerkleProof struct {
	Proof          []Hash
	NumberOfLeaves uint64
	LeafIndex      uint64
	Leaf           []byte
}

// MmrProof carries a block's MMR leaf and inclusion proof as returned by the
// source chain. Both blobs are opaque to the relayer.
type MmrProof struct {
	MmrLeaf      []byte
	MmrLeafProof []byte
}

// MmrRoot is the light-client update artifact submitted to a destination
// chain: the signed commitment, one Merkle proof per validator, and the MMR
// leaf/proof of the last finalized header before the commitment's block.
type MmrRoot struct {
	SignedCommitment      SignedCommitment
	ValidatorMerkleProofs []ValidatorMerkleProof
	MmrLeaf               []byte
	MmrLeafProof          []byte
}
