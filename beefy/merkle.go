package beefy

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength is the length of a Keccak-256 hash.
const HashLength = 32

// Hash is a Keccak-256 digest.
type Hash [HashLength]byte

// ErrLeafIndexOutOfRange is returned when a proof is requested for a leaf
// index beyond the leaf set.
var ErrLeafIndexOutOfRange = errors.New("beefy: leaf index out of range")

func keccak(data ...[]byte) Hash {
	return Hash(crypto.Keccak256(data...))
}

// MerkleRoot computes the root of the Keccak-256 binary Merkle tree over the
// given leaves. Leaves are hashed first; at every level pairs are hashed
// left-to-right and an unmatched trailing node is carried up unchanged.
func MerkleRoot(leaves [][]byte) Hash {
	layer := hashLeaves(leaves)
	for len(layer) > 1 {
		layer = nextLayer(layer)
	}
	if len(layer) == 0 {
		return Hash{}
	}
	return layer[0]
}

// GenerateMerkleProof builds the inclusion proof for leaves[leafIndex]: the
// sibling hash at each level from leaf to root. Levels where the node has no
// sibling contribute nothing to the proof.
func GenerateMerkleProof(leaves [][]byte, leafIndex uint64) (ValidatorMerkleProof, error) {
	if leafIndex >= uint64(len(leaves)) {
		return ValidatorMerkleProof{}, errors.Wrapf(ErrLeafIndexOutOfRange, "index %d, %d leaves", leafIndex, len(leaves))
	}

	var proof []Hash
	layer := hashLeaves(leaves)
	pos := leafIndex
	for len(layer) > 1 {
		if pos%2 == 1 {
			proof = append(proof, layer[pos-1])
		} else if pos+1 < uint64(len(layer)) {
			proof = append(proof, layer[pos+1])
		}
		layer = nextLayer(layer)
		pos /= 2
	}

	leaf := make([]byte, len(leaves[leafIndex]))
	copy(leaf, leaves[leafIndex])
	return ValidatorMerkleProof{
		Proof:          proof,
		NumberOfLeaves: uint64(len(leaves)),
		LeafIndex:      leafIndex,
		Leaf:           leaf,
	}, nil
}

// VerifyMerkleProof reports whether the proof resolves to the given root.
// The reconstruction must match GenerateMerkleProof bit-for-bit: a node that
// is a right child, or the carried rightmost node, combines with its proof
// element on the left.
func VerifyMerkleProof(root Hash, p ValidatorMerkleProof) bool {
	if p.LeafIndex >= p.NumberOfLeaves {
		return false
	}
	computed := keccak(p.Leaf)
	pos := p.LeafIndex
	width := p.NumberOfLeaves
	for _, sibling := range p.Proof {
		if pos%2 == 1 || pos+1 == width {
			computed = keccak(sibling[:], computed[:])
		} else {
			computed = keccak(computed[:], sibling[:])
		}
		pos /= 2
		width = (width-1)/2 + 1
	}
	return computed == root
}

func hashLeaves(leaves [][]byte) []Hash {
	hashes := make([]Hash, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = keccak(leaf)
	}
	return hashes
}

func nextLayer(layer []Hash) []Hash {
	next := make([]Hash, 0, (len(layer)+1)/2)
	for i := 0; i < len(layer); i += 2 {
		if i+1 < len(layer) {
			next = append(next, keccak(layer[i][:], layer[i+1][:]))
		} else {
			next = append(next, layer[i])
		}
	}
	return next
}
