package core_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/beefy-relayer/beefy"
	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
)

func TestMain(m *testing.M) {
	if err := log.InitLoggerWithWriter("DEBUG", "text", os.Stderr, false); err != nil {
		panic(err)
	}
	if err := metrics.InitializeMetrics(metrics.ExporterNull{}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockSource struct {
	chainID         string
	latestFinalized uint64
	keys            []*ecdsa.PrivateKey
	justifications  chan []byte
	// extraStreams are handed out, in order, by the subscriptions after the
	// first; once drained, subscribing fails
	extraStreams []chan []byte

	mu             sync.Mutex
	connectCalls   int
	subscribeCalls int
	queryCalls     int
}

var _ core.SourceChain = (*mockSource)(nil)

func newMockSource(n int) *mockSource {
	src := &mockSource{
		chainID:         "src-chain",
		latestFinalized: 1000,
		justifications:  make(chan []byte, 8),
	}
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			panic(err)
		}
		src.keys = append(src.keys, key)
	}
	return src
}

func (m *mockSource) ChainID() string { return m.chainID }

func (m *mockSource) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	return nil
}

func (m *mockSource) Close() error      { return nil }
func (m *mockSource) Clone() core.Chain { return m }

func (m *mockSource) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

func (m *mockSource) GetLatestFinalizedHeight(ctx context.Context) (uint64, error) {
	return m.latestFinalized, nil
}

func (m *mockSource) QueryBlockHash(ctx context.Context, blockNumber uint64) ([]byte, error) {
	m.queryCalls++
	hash := make([]byte, 32)
	hash[0] = byte(blockNumber)
	return hash, nil
}

func (m *mockSource) QueryBeefyAuthorities(ctx context.Context, blockHash []byte) ([][]byte, error) {
	m.queryCalls++
	authorities := make([][]byte, len(m.keys))
	for i, key := range m.keys {
		authorities[i] = crypto.CompressPubkey(&key.PublicKey)
	}
	return authorities, nil
}

func (m *mockSource) QueryMmrLeafAndProof(ctx context.Context, leafIndex uint64, blockHash []byte) ([]byte, []byte, error) {
	m.queryCalls++
	return []byte{0xaa, byte(leafIndex)}, []byte{0xbb, byte(leafIndex)}, nil
}

func (m *mockSource) SubscribeJustifications(ctx context.Context) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls++
	if m.subscribeCalls == 1 {
		return m.justifications, nil
	}
	if len(m.extraStreams) == 0 {
		return nil, errors.New("endpoint unavailable")
	}
	stream := m.extraStreams[0]
	m.extraStreams = m.extraStreams[1:]
	return stream, nil
}

func (m *mockSource) SubscribeRuntimeEvents(ctx context.Context) (<-chan []core.RawEvent, error) {
	ch := make(chan []core.RawEvent)
	close(ch)
	return ch, nil
}

// signCommitment signs the commitment with the keys at the given indices and
// leaves the remaining positions empty.
func (m *mockSource) signCommitment(t *testing.T, c beefy.Commitment, indices ...int) *beefy.SignedCommitment {
	t.Helper()
	hash := c.Hash()
	sigs := make([]*beefy.Signature, len(m.keys))
	for _, i := range indices {
		raw, err := crypto.Sign(hash[:], m.keys[i])
		require.NoError(t, err)
		sigs[i] = &beefy.Signature{Index: uint32(i), Bytes: raw}
	}
	return &beefy.SignedCommitment{Commitment: c, Signatures: sigs}
}

type submission struct {
	clientID string
	encoded  []byte
}

type mockDest struct {
	chainID   string
	clientIDs []string
	failing   map[string]bool

	mu          sync.Mutex
	submissions []submission
}

var _ core.DestChain = (*mockDest)(nil)

func (m *mockDest) ChainID() string                   { return m.chainID }
func (m *mockDest) Connect(ctx context.Context) error { return nil }
func (m *mockDest) Close() error                      { return nil }
func (m *mockDest) Clone() core.Chain                 { return m }

func (m *mockDest) QueryLightClients(ctx context.Context, clientType string) ([]string, error) {
	if clientType != core.ClientTypeGrandpa {
		return nil, nil
	}
	return m.clientIDs, nil
}

func (m *mockDest) SubmitUpdateClient(ctx context.Context, clientID string, encoded []byte) ([]byte, error) {
	if m.failing[clientID] {
		return nil, errors.New("submission rejected")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, submission{clientID, encoded})
	return []byte{0x01}, nil
}

func testCommitment(blockNumber uint32) beefy.Commitment {
	return beefy.Commitment{
		Payloads:       []beefy.PayloadItem{{ID: beefy.MmrRootID, Data: bytes.Repeat([]byte{0x11}, 32)}},
		BlockNumber:    blockNumber,
		ValidatorSetID: 1,
	}
}

func TestBuildValidatorProofs(t *testing.T) {
	src := newMockSource(5)
	sc := src.signCommitment(t, testCommitment(100), 0, 2, 4)

	proofs, err := core.BuildValidatorProofs(context.TODO(), src, sc)
	require.NoError(t, err)

	// one membership proof per validator, in set order
	assert.Len(t, proofs, 5)
	for i, proof := range proofs {
		assert.Equal(t, uint64(i), proof.LeafIndex)
		assert.Equal(t, uint64(5), proof.NumberOfLeaves)
	}
}

func TestBuildValidatorProofsRejectsBadSignature(t *testing.T) {
	src := newMockSource(3)
	sc := src.signCommitment(t, testCommitment(100), 0, 1)
	sc.Signatures[1].Bytes[5] ^= 0xff

	_, err := core.BuildValidatorProofs(context.TODO(), src, sc)
	assert.Error(t, err)
}

func TestBuildMmrProof(t *testing.T) {
	src := newMockSource(1)

	proof, err := core.BuildMmrProof(context.TODO(), src, 100)
	require.NoError(t, err)
	// the leaf index is the block number minus one
	assert.Equal(t, []byte{0xaa, 99}, proof.MmrLeaf)
	assert.Equal(t, []byte{0xbb, 99}, proof.MmrLeafProof)
}

func TestBuildMmrProofBlockTooNew(t *testing.T) {
	src := newMockSource(1)
	src.latestFinalized = 99

	_, err := core.BuildMmrProof(context.TODO(), src, 100)
	assert.ErrorIs(t, err, core.ErrBlockTooNew)
	// the guard must fire before any further chain query
	assert.Zero(t, src.queryCalls)
}

func TestBuildMmrProofBlockZero(t *testing.T) {
	src := newMockSource(1)

	// block zero has no MMR leaf; the leaf index must never wrap around
	_, err := core.BuildMmrProof(context.TODO(), src, 0)
	assert.ErrorIs(t, err, core.ErrInvalidBlockNumber)
	assert.Zero(t, src.queryCalls)
}

func TestUpdateClient(t *testing.T) {
	src := newMockSource(5)
	sc := src.signCommitment(t, testCommitment(100), 0, 2, 4)
	raw, err := sc.Encode()
	require.NoError(t, err)

	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0", "10-grandpa-1"}}
	require.NoError(t, core.UpdateClient(context.TODO(), src, []core.DestChain{dst}, raw))

	require.Len(t, dst.submissions, 2)
	assert.Equal(t, "10-grandpa-0", dst.submissions[0].clientID)
	assert.Equal(t, "10-grandpa-1", dst.submissions[1].clientID)

	// every client receives the same update, carrying the full commitment,
	// a proof per validator and the mmr proof
	for _, sub := range dst.submissions {
		root, err := beefy.DecodeMmrRoot(sub.encoded)
		require.NoError(t, err)
		assert.Equal(t, uint32(100), root.SignedCommitment.Commitment.BlockNumber)
		assert.Equal(t, 3, root.SignedCommitment.SignatureCount())
		assert.Len(t, root.ValidatorMerkleProofs, 5)
		assert.Equal(t, []byte{0xaa, 99}, root.MmrLeaf)
		assert.Equal(t, []byte{0xbb, 99}, root.MmrLeafProof)
	}
}

func TestUpdateClientDecodeError(t *testing.T) {
	src := newMockSource(1)
	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0"}}

	err := core.UpdateClient(context.TODO(), src, []core.DestChain{dst}, []byte{0x01, 0x02})
	assert.Error(t, err)
	assert.Empty(t, dst.submissions)
}

func TestSubmitMmrRootPartialFailure(t *testing.T) {
	src := newMockSource(3)
	sc := src.signCommitment(t, testCommitment(200), 0, 1, 2)
	root, err := core.BuildMmrRoot(context.TODO(), src, sc)
	require.NoError(t, err)

	dst := &mockDest{
		chainID:   "dst-chain",
		clientIDs: []string{"10-grandpa-0", "10-grandpa-1", "10-grandpa-2"},
		failing:   map[string]bool{"10-grandpa-1": true},
	}

	// a failing client must not block the remaining clients
	require.NoError(t, core.SubmitMmrRoot(context.TODO(), dst, root))
	require.Len(t, dst.submissions, 2)
	assert.Equal(t, "10-grandpa-0", dst.submissions[0].clientID)
	assert.Equal(t, "10-grandpa-2", dst.submissions[1].clientID)
}

func TestUpdateClientServiceSequential(t *testing.T) {
	src := newMockSource(3)
	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0"}}

	for i, blockNumber := range []uint32{10, 20, 30} {
		sc := src.signCommitment(t, testCommitment(blockNumber), 0, 1, 2)
		raw, err := sc.Encode()
		require.NoError(t, err)
		src.justifications <- raw
		if i == 0 {
			// an undecodable commitment is skipped, not fatal to the stream
			src.justifications <- []byte{0xff}
		}
	}
	close(src.justifications)

	// with no stream left, the closed stream runs the reconnect budget out
	err := core.UpdateClientService(context.TODO(), src, []core.DestChain{dst},
		core.WithServiceBackoff(time.Millisecond, 5*time.Millisecond, 20*time.Millisecond))
	assert.ErrorIs(t, err, core.ErrRetryBudgetExhausted)

	// commitments are processed strictly in stream order
	require.Len(t, dst.submissions, 3)
	for i, blockNumber := range []uint32{10, 20, 30} {
		root, err := beefy.DecodeMmrRoot(dst.submissions[i].encoded)
		require.NoError(t, err)
		assert.Equal(t, blockNumber, root.SignedCommitment.Commitment.BlockNumber, fmt.Sprintf("submission %d", i))
	}
}

func TestUpdateClientServiceSkipsFaultyCommitments(t *testing.T) {
	src := newMockSource(3)
	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0"}}

	// a commitment for a block past the finalized head cannot be proven
	tooNew := src.signCommitment(t, testCommitment(2000), 0, 1, 2)
	raw, err := tooNew.Encode()
	require.NoError(t, err)
	src.justifications <- raw

	// neither can one with a corrupted signature
	forged := src.signCommitment(t, testCommitment(10), 0, 1, 2)
	forged.Signatures[0].Bytes[5] ^= 0xff
	raw, err = forged.Encode()
	require.NoError(t, err)
	src.justifications <- raw

	valid := src.signCommitment(t, testCommitment(20), 0, 1, 2)
	raw, err = valid.Encode()
	require.NoError(t, err)
	src.justifications <- raw
	close(src.justifications)

	err = core.UpdateClientService(context.TODO(), src, []core.DestChain{dst},
		core.WithServiceBackoff(time.Millisecond, 5*time.Millisecond, 20*time.Millisecond))
	assert.ErrorIs(t, err, core.ErrRetryBudgetExhausted)

	// the unprovable commitments are dropped; the valid one still goes out
	require.Len(t, dst.submissions, 1)
	root, err := beefy.DecodeMmrRoot(dst.submissions[0].encoded)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), root.SignedCommitment.Commitment.BlockNumber)
}

func TestUpdateClientServiceResubscribes(t *testing.T) {
	src := newMockSource(3)
	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0"}}

	first := src.signCommitment(t, testCommitment(10), 0, 1, 2)
	raw, err := first.Encode()
	require.NoError(t, err)
	src.justifications <- raw
	close(src.justifications)

	// the second stream takes over after the first one terminates
	replacement := make(chan []byte, 1)
	second := src.signCommitment(t, testCommitment(20), 0, 1, 2)
	raw, err = second.Encode()
	require.NoError(t, err)
	replacement <- raw
	close(replacement)
	src.extraStreams = []chan []byte{replacement}

	err = core.UpdateClientService(context.TODO(), src, []core.DestChain{dst},
		core.WithServiceBackoff(time.Millisecond, 5*time.Millisecond, 20*time.Millisecond))
	assert.ErrorIs(t, err, core.ErrRetryBudgetExhausted)

	require.Len(t, dst.submissions, 2)
	for i, blockNumber := range []uint32{10, 20} {
		root, err := beefy.DecodeMmrRoot(dst.submissions[i].encoded)
		require.NoError(t, err)
		assert.Equal(t, blockNumber, root.SignedCommitment.Commitment.BlockNumber, fmt.Sprintf("submission %d", i))
	}
	// every resubscription re-establishes the transport first
	assert.GreaterOrEqual(t, src.ConnectCalls(), 2)
}

func TestUpdateClientServiceCancellation(t *testing.T) {
	src := newMockSource(1)
	dst := &mockDest{chainID: "dst-chain", clientIDs: []string{"10-grandpa-0"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := core.UpdateClientService(ctx, src, []core.DestChain{dst})
	assert.ErrorIs(t, err, context.Canceled)
}
