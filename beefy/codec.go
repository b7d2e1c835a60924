package beefy

import (
	"github.com/cockroachdb/errors"

	"github.com/hyperledger-labs/beefy-relayer/scale"
)

var (
	// ErrDecode is returned when a wire blob does not match the expected schema.
	ErrDecode = errors.New("beefy: decode error")
	// ErrEncode is returned when a value violates a wire invariant.
	ErrEncode = errors.New("beefy: encode error")
)

// DecodeSignedCommitment decodes the SCALE wire form of a signed commitment.
// The signature list is decoded into its sparse positional representation and
// each present signature is stamped with its leaf index.
func DecodeSignedCommitment(data []byte) (*SignedCommitment, error) {
	r := scale.NewReader(data)
	c, err := decodeCommitment(r)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "commitment: %v", err)
	}

	n, err := r.ReadCount(1)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "signature count: %v", err)
	}
	sigs := make([]*Signature, 0, n)
	for i := uint64(0); i < n; i++ {
		present, err := r.ReadOption()
		if err != nil {
			return nil, errors.Wrapf(ErrDecode, "signature %d: %v", i, err)
		}
		if !present {
			sigs = append(sigs, nil)
			continue
		}
		bz, err := r.ReadBytes(SignatureLength)
		if err != nil {
			return nil, errors.Wrapf(ErrDecode, "signature %d: %v", i, err)
		}
		sigs = append(sigs, &Signature{Index: uint32(i), Bytes: bz})
	}
	if err := r.Close(); err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return &SignedCommitment{Commitment: *c, Signatures: sigs}, nil
}

func decodeCommitment(r *scale.Reader) (*Commitment, error) {
	// a payload item is at least a 2-byte id plus a length prefix
	n, err := r.ReadCount(3)
	if err != nil {
		return nil, err
	}
	payloads := make([]PayloadItem, 0, n)
	for i := uint64(0); i < n; i++ {
		idBytes, err := r.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		data, err := r.ReadByteSlice()
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, PayloadItem{ID: [2]byte(idBytes), Data: data})
	}
	blockNumber, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	validatorSetID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &Commitment{
		Payloads:       payloads,
		BlockNumber:    blockNumber,
		ValidatorSetID: validatorSetID,
	}, nil
}

// Encode returns the SCALE wire form of the signed commitment.
// Every present signature must be 65 bytes long and carry an index matching
// its position in the list.
func (sc *SignedCommitment) Encode() ([]byte, error) {
	w := scale.NewWriter()
	sc.Commitment.encode(w)
	w.WriteCompact(uint64(len(sc.Signatures)))
	for i, sig := range sc.Signatures {
		if sig == nil {
			w.WriteOption(false)
			continue
		}
		if len(sig.Bytes) != SignatureLength {
			return nil, errors.Wrapf(ErrEncode, "signature %d: invalid length %d", i, len(sig.Bytes))
		}
		if sig.Index != uint32(i) {
			return nil, errors.Wrapf(ErrEncode, "signature %d: index %d out of position", i, sig.Index)
		}
		w.WriteOption(true)
		w.WriteBytes(sig.Bytes)
	}
	return w.Bytes(), nil
}

// Encode returns the SCALE wire form of the commitment. This is the exact
// byte string the validators sign.
func (c *Commitment) Encode() []byte {
	w := scale.NewWriter()
	c.encode(w)
	return w.Bytes()
}

func (c *Commitment) encode(w *scale.Writer) {
	w.WriteCompact(uint64(len(c.Payloads)))
	for _, p := range c.Payloads {
		w.WriteBytes(p.ID[:])
		w.WriteByteSlice(p.Data)
	}
	w.WriteUint32(c.BlockNumber)
	w.WriteUint64(c.ValidatorSetID)
}

// Hash returns the Keccak-256 hash of the commitment's wire encoding.
func (c *Commitment) Hash() Hash {
	return keccak(c.Encode())
}

// Encode returns the SCALE wire form of the MmrRoot submission artifact.
func (mr *MmrRoot) Encode() ([]byte, error) {
	w := scale.NewWriter()
	sc, err := mr.SignedCommitment.Encode()
	if err != nil {
		return nil, err
	}
	w.WriteByteSlice(sc)
	w.WriteCompact(uint64(len(mr.ValidatorMerkleProofs)))
	for _, p := range mr.ValidatorMerkleProofs {
		w.WriteCompact(uint64(len(p.Proof)))
		for _, h := range p.Proof {
			w.WriteBytes(h[:])
		}
		w.WriteUint64(p.NumberOfLeaves)
		w.WriteUint64(p.LeafIndex)
		w.WriteByteSlice(p.Leaf)
	}
	w.WriteByteSlice(mr.MmrLeaf)
	w.WriteByteSlice(mr.MmrLeafProof)
	return w.Bytes(), nil
}

// DecodeMmrRoot decodes the SCALE wire form of an MmrRoot.
func DecodeMmrRoot(data []byte) (*MmrRoot, error) {
	r := scale.NewReader(data)
	scBytes, err := r.ReadByteSlice()
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "signed commitment: %v", err)
	}
	sc, err := DecodeSignedCommitment(scBytes)
	if err != nil {
		return nil, err
	}
	n, err := r.ReadCount(1)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "proof count: %v", err)
	}
	proofs := make([]ValidatorMerkleProof, 0, n)
	for i := uint64(0); i < n; i++ {
		var p ValidatorMerkleProof
		m, err := r.ReadCount(HashLength)
		if err != nil {
			return nil, errors.Wrapf(ErrDecode, "proof %d: %v", i, err)
		}
		p.Proof = make([]Hash, 0, m)
		for j := uint64(0); j < m; j++ {
			bz, err := r.ReadBytes(HashLength)
			if err != nil {
				return nil, errors.Wrapf(ErrDecode, "proof %d: %v", i, err)
			}
			p.Proof = append(p.Proof, Hash(bz))
		}
		if p.NumberOfLeaves, err = r.ReadUint64(); err != nil {
			return nil, errors.Wrapf(ErrDecode, "proof %d: %v", i, err)
		}
		if p.LeafIndex, err = r.ReadUint64(); err != nil {
			return nil, errors.Wrapf(ErrDecode, "proof %d: %v", i, err)
		}
		if p.Leaf, err = r.ReadByteSlice(); err != nil {
			return nil, errors.Wrapf(ErrDecode, "proof %d: %v", i, err)
		}
		proofs = append(proofs, p)
	}
	mr := &MmrRoot{SignedCommitment: *sc, ValidatorMerkleProofs: proofs}
	if mr.MmrLeaf, err = r.ReadByteSlice(); err != nil {
		return nil, errors.Wrapf(ErrDecode, "mmr leaf: %v", err)
	}
	if mr.MmrLeafProof, err = r.ReadByteSlice(); err != nil {
		return nil, errors.Wrapf(ErrDecode, "mmr leaf proof: %v", err)
	}
	if err := r.Close(); err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return mr, nil
}
