package substrate

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hyperledger-labs/beefy-relayer/config"
	"github.com/hyperledger-labs/beefy-relayer/core"
)

// defaultBeefyAuthoritiesKey is the storage key of the BEEFY pallet's
// authority set under the standard pallet name "Beefy".
const defaultBeefyAuthoritiesKey = "0x08c41974a97dbf15cfbec28365bea2da5e0621c4869aa60c02be9adcc98a0d1d"

type ChainConfig struct {
	ChainID string `yaml:"chain_id" json:"chain_id"`
	RpcAddr string `yaml:"rpc_addr" json:"rpc_addr"`

	// IbcPalletIndex is the runtime index of the pallet whose events the
	// monitor decodes
	IbcPalletIndex uint8 `yaml:"ibc_pallet_index" json:"ibc_pallet_index"`

	// UpdateClientCall is the two-byte call index of the light-client update
	// entry point, hex encoded
	UpdateClientCall string `yaml:"update_client_call" json:"update_client_call"`

	// BeefyAuthoritiesKey overrides the storage key of the BEEFY authority
	// set; leave empty for the standard key
	BeefyAuthoritiesKey string `yaml:"beefy_authorities_key,omitempty" json:"beefy_authorities_key,omitempty"`
}

var _ config.ChainConfig = (*ChainConfig)(nil)

func (c *ChainConfig) Validate() error {
	isEmpty := func(s string) bool {
		return strings.TrimSpace(s) == ""
	}

	var errs []error
	if isEmpty(c.ChainID) {
		errs = append(errs, fmt.Errorf("config attribute \"chain_id\" is empty"))
	}
	if isEmpty(c.RpcAddr) {
		errs = append(errs, fmt.Errorf("config attribute \"rpc_addr\" is empty"))
	} else if !strings.HasPrefix(c.RpcAddr, "ws://") && !strings.HasPrefix(c.RpcAddr, "wss://") {
		errs = append(errs, fmt.Errorf("config attribute \"rpc_addr\" must be a websocket endpoint: %s", c.RpcAddr))
	}
	if _, err := c.updateClientCall(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.beefyAuthoritiesKey(); err != nil {
		errs = append(errs, err)
	}

	// errors.Join returns nil if len(errs) == 0
	return errors.Join(errs...)
}

func (c *ChainConfig) Build() (core.Chain, error) {
	call, err := c.updateClientCall()
	if err != nil {
		return nil, err
	}
	authoritiesKey, err := c.beefyAuthoritiesKey()
	if err != nil {
		return nil, err
	}
	return &Chain{
		config:           *c,
		client:           newRPCClient(c.RpcAddr),
		updateClientCall: call,
		authoritiesKey:   authoritiesKey,
	}, nil
}

func (c *ChainConfig) updateClientCall() ([2]byte, error) {
	bz, err := hexutil.Decode(c.UpdateClientCall)
	if err != nil || len(bz) != 2 {
		return [2]byte{}, fmt.Errorf("config attribute \"update_client_call\" must be two hex bytes: %q", c.UpdateClientCall)
	}
	return [2]byte{bz[0], bz[1]}, nil
}

func (c *ChainConfig) beefyAuthoritiesKey() (string, error) {
	key := c.BeefyAuthoritiesKey
	if key == "" {
		key = defaultBeefyAuthoritiesKey
	}
	if _, err := hexutil.Decode(key); err != nil {
		return "", fmt.Errorf("config attribute \"beefy_authorities_key\" is invalid: %v", err)
	}
	return key, nil
}
