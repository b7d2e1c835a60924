package substrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() ChainConfig {
	return ChainConfig{
		ChainID:          "parachain-0",
		RpcAddr:          "ws://localhost:9944",
		IbcPalletIndex:   0x67,
		UpdateClientCall: "0x6701",
	}
}

func TestChainConfigValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.ChainID = " "
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RpcAddr = "http://localhost:9933"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UpdateClientCall = "0x67"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BeefyAuthoritiesKey = "not-hex"
	assert.Error(t, cfg.Validate())
}

func TestChainConfigBuild(t *testing.T) {
	cfg := validConfig()
	chain, err := cfg.Build()
	require.NoError(t, err)

	c, ok := chain.(*Chain)
	require.True(t, ok)
	assert.Equal(t, "parachain-0", c.ChainID())
	assert.Equal(t, [2]byte{0x67, 0x01}, c.updateClientCall)
	assert.Equal(t, defaultBeefyAuthoritiesKey, c.authoritiesKey)

	cfg.BeefyAuthoritiesKey = "0x0102"
	chain, err = cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, "0x0102", chain.(*Chain).authoritiesKey)
}
