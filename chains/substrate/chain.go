package substrate

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/scale"
)

// systemEventsKey is the storage key of System.Events, where the runtime
// deposits the event records of each block.
const systemEventsKey = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"

// Chain talks to a substrate node over its websocket JSON-RPC endpoint. It
// serves as a source of BEEFY commitments and runtime events, and as a
// destination hosting GRANDPA light clients.
type Chain struct {
	config           ChainConfig
	client           *rpcClient
	updateClientCall [2]byte
	authoritiesKey   string
}

var (
	_ core.SourceChain = (*Chain)(nil)
	_ core.DestChain   = (*Chain)(nil)
)

func (c *Chain) ChainID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) Connect(ctx context.Context) error {
	return c.client.Connect(ctx)
}

func (c *Chain) Close() error {
	return c.client.Close()
}

// Clone returns a handle sharing the multiplexed connection. Requests from
// clones are correlated by id on the one socket, so their in-flight calls
// interleave; only the socket writes themselves serialize.
func (c *Chain) Clone() core.Chain {
	clone := *c
	return &clone
}

type blockHeader struct {
	ParentHash string `json:"parentHash"`
	Number     string `json:"number"`
}

func (c *Chain) GetLatestFinalizedHeight(ctx context.Context) (uint64, error) {
	var hash string
	if err := c.client.Call(ctx, "beefy_getFinalizedHead", nil, &hash); err != nil {
		return 0, err
	}
	return c.queryBlockNumber(ctx, hash)
}

func (c *Chain) queryBlockNumber(ctx context.Context, blockHash string) (uint64, error) {
	var header blockHeader
	if err := c.client.Call(ctx, "chain_getHeader", []interface{}{blockHash}, &header); err != nil {
		return 0, err
	}
	return hexutil.DecodeUint64(header.Number)
}

func (c *Chain) QueryBlockHash(ctx context.Context, blockNumber uint64) ([]byte, error) {
	var hash string
	if err := c.client.Call(ctx, "chain_getBlockHash", []interface{}{blockNumber}, &hash); err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, errors.Newf("no block hash for block %d", blockNumber)
	}
	return hexutil.Decode(hash)
}

func (c *Chain) QueryBeefyAuthorities(ctx context.Context, blockHash []byte) ([][]byte, error) {
	var value *string
	params := []interface{}{c.authoritiesKey, hexutil.Encode(blockHash)}
	if err := c.client.Call(ctx, "state_getStorage", params, &value); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.New("the BEEFY authority set is not in storage")
	}
	bz, err := hexutil.Decode(*value)
	if err != nil {
		return nil, err
	}
	return decodeAuthorities(bz)
}

// decodeAuthorities parses the storage value of the authority set, a vector
// of 33-byte compressed secp256k1 public keys.
func decodeAuthorities(bz []byte) ([][]byte, error) {
	r := scale.NewReader(bz)
	n, err := r.ReadCount(33)
	if err != nil {
		return nil, err
	}
	authorities := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		key, err := r.ReadBytes(33)
		if err != nil {
			return nil, err
		}
		authorities = append(authorities, key)
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return authorities, nil
}

type mmrProofResponse struct {
	BlockHash string `json:"blockHash"`
	Leaf      string `json:"leaf"`
	Proof     string `json:"proof"`
}

func (c *Chain) QueryMmrLeafAndProof(ctx context.Context, leafIndex uint64, blockHash []byte) ([]byte, []byte, error) {
	var resp mmrProofResponse
	params := []interface{}{leafIndex, hexutil.Encode(blockHash)}
	if err := c.client.Call(ctx, "mmr_generateProof", params, &resp); err != nil {
		return nil, nil, err
	}
	leaf, err := hexutil.Decode(resp.Leaf)
	if err != nil {
		return nil, nil, err
	}
	proof, err := hexutil.Decode(resp.Proof)
	if err != nil {
		return nil, nil, err
	}
	return leaf, proof, nil
}

func (c *Chain) SubscribeJustifications(ctx context.Context) (<-chan []byte, error) {
	sub, err := c.client.Subscribe(ctx, "beefy_subscribeJustifications", "beefy_unsubscribeJustifications", nil)
	if err != nil {
		return nil, err
	}

	logger := log.GetLogger().WithChain(c.ChainID())
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Unsubscribe(context.Background())
				return
			case raw, ok := <-sub.Notifications():
				if !ok {
					return
				}
				var encoded string
				if err := json.Unmarshal(raw, &encoded); err != nil {
					logger.Error("discarding an unparsable justification", err)
					continue
				}
				bz, err := hexutil.Decode(encoded)
				if err != nil {
					logger.Error("discarding an unparsable justification", err)
					continue
				}
				select {
				case out <- bz:
				case <-ctx.Done():
					_ = sub.Unsubscribe(context.Background())
					return
				}
			}
		}
	}()
	return out, nil
}

type storageChangeSet struct {
	Block   string     `json:"block"`
	Changes [][]string `json:"changes"`
}

func (c *Chain) SubscribeRuntimeEvents(ctx context.Context) (<-chan []core.RawEvent, error) {
	params := []interface{}{[]string{systemEventsKey}}
	sub, err := c.client.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage", params)
	if err != nil {
		return nil, err
	}

	logger := log.GetLogger().WithChain(c.ChainID())
	out := make(chan []core.RawEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Unsubscribe(context.Background())
				return
			case raw, ok := <-sub.Notifications():
				if !ok {
					return
				}
				events, err := c.extractEvents(ctx, raw)
				if err != nil {
					logger.Error("discarding an unparsable change set", err)
					continue
				}
				if len(events) == 0 {
					continue
				}
				select {
				case out <- events:
				case <-ctx.Done():
					_ = sub.Unsubscribe(context.Background())
					return
				}
			}
		}
	}()
	return out, nil
}

// extractEvents turns one storage change notification into raw events,
// prefixed by a synthesized NewBlock event carrying the block's height.
func (c *Chain) extractEvents(ctx context.Context, raw json.RawMessage) ([]core.RawEvent, error) {
	var changeSet storageChangeSet
	if err := json.Unmarshal(raw, &changeSet); err != nil {
		return nil, err
	}

	blockNumber, err := c.queryBlockNumber(ctx, changeSet.Block)
	if err != nil {
		return nil, err
	}
	w := scale.NewWriter()
	w.WriteUint64(0)
	w.WriteUint64(blockNumber)
	events := []core.RawEvent{{Kind: core.EventKindNewBlock, Data: w.Bytes()}}

	for _, change := range changeSet.Changes {
		if len(change) < 2 || change[1] == "" {
			continue
		}
		value, err := hexutil.Decode(change[1])
		if err != nil {
			return nil, err
		}
		decoded, err := decodeEventRecords(value, c.config.IbcPalletIndex)
		if err != nil {
			return nil, err
		}
		events = append(events, decoded...)
	}
	return events, nil
}

func (c *Chain) QueryLightClients(ctx context.Context, clientType string) ([]string, error) {
	var clientIDs []string
	if err := c.client.Call(ctx, "ibc_queryClients", []interface{}{clientType}, &clientIDs); err != nil {
		return nil, err
	}
	return clientIDs, nil
}

func (c *Chain) SubmitUpdateClient(ctx context.Context, clientID string, encodedMmrRoot []byte) ([]byte, error) {
	call := scale.NewWriter()
	call.WriteU8(c.updateClientCall[0])
	call.WriteU8(c.updateClientCall[1])
	call.WriteString(clientID)
	call.WriteByteSlice(encodedMmrRoot)

	// unsigned extrinsic: version byte followed by the call, length-prefixed
	extrinsic := scale.NewWriter()
	extrinsic.WriteU8(0x04)
	extrinsic.WriteBytes(call.Bytes())
	payload := scale.NewWriter()
	payload.WriteByteSlice(extrinsic.Bytes())

	var txHash string
	params := []interface{}{hexutil.Encode(payload.Bytes())}
	if err := c.client.Call(ctx, "author_submitExtrinsic", params, &txHash); err != nil {
		return nil, err
	}
	return hexutil.Decode(txHash)
}
