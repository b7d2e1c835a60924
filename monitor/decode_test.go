package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/monitor"
	"github.com/hyperledger-labs/beefy-relayer/scale"
)

func encodeHeight(w *scale.Writer, revisionNumber, revisionHeight uint64) {
	w.WriteUint64(revisionNumber)
	w.WriteUint64(revisionHeight)
}

func encodeClientPayload(t *testing.T) []byte {
	t.Helper()
	w := scale.NewWriter()
	encodeHeight(w, 0, 42)
	w.WriteString("10-grandpa-0")
	w.WriteString("10-grandpa")
	encodeHeight(w, 0, 40)
	return w.Bytes()
}

func encodePacketPayload(t *testing.T) []byte {
	t.Helper()
	w := scale.NewWriter()
	encodeHeight(w, 0, 42)
	w.WriteUint64(7)
	w.WriteString("transfer")
	w.WriteString("channel-0")
	w.WriteString("transfer")
	w.WriteString("channel-1")
	w.WriteByteSlice([]byte("payload"))
	encodeHeight(w, 0, 100)
	w.WriteUint64(0)
	return w.Bytes()
}

func TestDecodeCreateClient(t *testing.T) {
	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindCreateClient,
		Data: encodeClientPayload(t),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event, ok := events[0].(core.CreateClientEvent)
	require.True(t, ok)
	assert.Equal(t, core.EventKindCreateClient, event.Kind())
	assert.Equal(t, "10-grandpa-0", event.ClientID)
	assert.Equal(t, "10-grandpa", event.ClientType)
	assert.Equal(t, uint64(42), event.Height.GetRevisionHeight())
	assert.Equal(t, uint64(40), event.ConsensusHeight.GetRevisionHeight())
}

func TestDecodeSendPacket(t *testing.T) {
	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindSendPacket,
		Data: encodePacketPayload(t),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event, ok := events[0].(core.SendPacketEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(7), event.Packet.Sequence)
	assert.Equal(t, "transfer", event.Packet.SourcePort)
	assert.Equal(t, "channel-0", event.Packet.SourceChannel)
	assert.Equal(t, "channel-1", event.Packet.DestinationChannel)
	assert.Equal(t, []byte("payload"), event.Packet.Data)
	assert.Equal(t, uint64(100), event.Packet.TimeoutHeight.GetRevisionHeight())
}

func TestDecodeWriteAcknowledgement(t *testing.T) {
	w := scale.NewWriter()
	w.WriteBytes(encodePacketPayload(t))
	w.WriteByteSlice([]byte("ack"))

	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindWriteAcknowledgement,
		Data: w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event, ok := events[0].(core.WriteAcknowledgementEvent)
	require.True(t, ok)
	assert.Equal(t, []byte("ack"), event.Ack)
}

func TestDecodeConnectionAttributes(t *testing.T) {
	w := scale.NewWriter()
	encodeHeight(w, 0, 10)
	w.WriteOptionString("connection-0", true)
	w.WriteString("10-grandpa-0")
	w.WriteOptionString("", false)
	w.WriteString("07-tendermint-0")

	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindOpenInitConnection,
		Data: w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event, ok := events[0].(core.OpenInitConnectionEvent)
	require.True(t, ok)
	assert.Equal(t, "connection-0", event.ConnectionID)
	assert.Equal(t, "10-grandpa-0", event.ClientID)
	assert.Empty(t, event.CounterpartyConnectionID)
	assert.Equal(t, "07-tendermint-0", event.CounterpartyClientID)
}

func TestDecodeChainError(t *testing.T) {
	w := scale.NewWriter()
	encodeHeight(w, 0, 5)
	w.WriteString("extrinsic failed")

	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindChainError,
		Data: w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "extrinsic failed", events[0].(core.ChainErrorEvent).Err)
}

func TestDecodeUnknownKind(t *testing.T) {
	events, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindUnknown,
		Data: []byte{0x01, 0x02, 0x03},
	})
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeMalformedPayload(t *testing.T) {
	// a truncated payload of a known kind is a decode error
	_, err := monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindCreateClient,
		Data: []byte{0x01, 0x02},
	})
	assert.ErrorIs(t, err, monitor.ErrInvalidCodecDecode)

	// so are trailing bytes after a complete payload
	data := append(encodeClientPayload(t), 0xff)
	_, err = monitor.DecodeEvents(core.RawEvent{
		Kind: core.EventKindCreateClient,
		Data: data,
	})
	assert.ErrorIs(t, err, monitor.ErrInvalidCodecDecode)
}
