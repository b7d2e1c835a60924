package substrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/scale"
)

const testPalletIndex = 0x67

type testRecord struct {
	phase   byte
	pallet  byte
	variant byte
	payload []byte
	topics  int
}

func encodeRecords(records ...testRecord) []byte {
	w := scale.NewWriter()
	w.WriteCompact(uint64(len(records)))
	for _, rec := range records {
		w.WriteU8(rec.phase)
		if rec.phase == phaseApplyExtrinsic {
			w.WriteUint32(0)
		}
		w.WriteU8(rec.pallet)
		w.WriteU8(rec.variant)
		w.WriteByteSlice(rec.payload)
		w.WriteCompact(uint64(rec.topics))
		for i := 0; i < rec.topics; i++ {
			w.WriteBytes(make([]byte, 32))
		}
	}
	return w.Bytes()
}

func TestDecodeEventRecords(t *testing.T) {
	bz := encodeRecords(
		testRecord{phase: phaseApplyExtrinsic, pallet: testPalletIndex, variant: 0, payload: []byte{0x01}},
		testRecord{phase: phaseFinalization, pallet: testPalletIndex, variant: 13, payload: []byte{0x02, 0x03}, topics: 2},
		testRecord{phase: phaseInitialization, pallet: 0x05, variant: 1, payload: []byte{0x04}},
	)

	events, err := decodeEventRecords(bz, testPalletIndex)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, core.EventKindCreateClient, events[0].Kind)
	assert.Equal(t, []byte{0x01}, events[0].Data)
	assert.Equal(t, core.EventKindSendPacket, events[1].Kind)
	assert.Equal(t, []byte{0x02, 0x03}, events[1].Data)

	// a foreign pallet's event is carried through as unknown
	assert.Equal(t, core.EventKindUnknown, events[2].Kind)
}

func TestDecodeEventRecordsEmpty(t *testing.T) {
	events, err := decodeEventRecords(encodeRecords(), testPalletIndex)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeEventRecordsInvalidPhase(t *testing.T) {
	w := scale.NewWriter()
	w.WriteCompact(1)
	w.WriteU8(7)
	w.WriteU8(testPalletIndex)
	w.WriteU8(0)
	w.WriteByteSlice(nil)
	w.WriteCompact(0)

	_, err := decodeEventRecords(w.Bytes(), testPalletIndex)
	assert.Error(t, err)
}

func TestDecodeEventRecordsHostileCounts(t *testing.T) {
	// record count far beyond what the input could hold
	w := scale.NewWriter()
	w.WriteCompact(1 << 40)
	var events []core.RawEvent
	var err error
	assert.NotPanics(t, func() {
		events, err = decodeEventRecords(w.Bytes(), testPalletIndex)
	})
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)
	assert.Nil(t, events)

	// topic count far beyond what the input could hold
	w = scale.NewWriter()
	w.WriteCompact(1)
	w.WriteU8(phaseFinalization)
	w.WriteU8(testPalletIndex)
	w.WriteU8(0)
	w.WriteByteSlice(nil)
	w.WriteCompact(1 << 40)
	assert.NotPanics(t, func() {
		_, err = decodeEventRecords(w.Bytes(), testPalletIndex)
	})
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)
}

func TestDecodeEventRecordsTrailingBytes(t *testing.T) {
	bz := append(encodeRecords(
		testRecord{phase: phaseFinalization, pallet: testPalletIndex, variant: 0, payload: []byte{0x01}},
	), 0xff)

	_, err := decodeEventRecords(bz, testPalletIndex)
	assert.ErrorIs(t, err, scale.ErrTrailingBytes)
}

func TestKindForEvent(t *testing.T) {
	assert.Equal(t, core.EventKindCreateClient, kindForEvent(testPalletIndex, 0, testPalletIndex))
	assert.Equal(t, core.EventKindChainError, kindForEvent(testPalletIndex, 20, testPalletIndex))
	assert.Equal(t, core.EventKindUnknown, kindForEvent(testPalletIndex, 21, testPalletIndex))
	assert.Equal(t, core.EventKindUnknown, kindForEvent(0x01, 0, testPalletIndex))
}

func TestDecodeAuthorities(t *testing.T) {
	w := scale.NewWriter()
	w.WriteCompact(2)
	first := make([]byte, 33)
	first[0] = 0x02
	second := make([]byte, 33)
	second[0] = 0x03
	w.WriteBytes(first)
	w.WriteBytes(second)

	authorities, err := decodeAuthorities(w.Bytes())
	require.NoError(t, err)
	require.Len(t, authorities, 2)
	assert.Equal(t, first, authorities[0])
	assert.Equal(t, second, authorities[1])

	_, err = decodeAuthorities(w.Bytes()[:10])
	assert.Error(t, err)
}

func TestDecodeAuthoritiesHostileCount(t *testing.T) {
	w := scale.NewWriter()
	w.WriteCompact(1 << 50)

	var err error
	assert.NotPanics(t, func() {
		_, err = decodeAuthorities(w.Bytes())
	})
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)
}
