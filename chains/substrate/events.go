package substrate

import (
	"github.com/cockroachdb/errors"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/scale"
)

// event record phases
const (
	phaseApplyExtrinsic = 0
	phaseFinalization   = 1
	phaseInitialization = 2
)

// eventKindByVariant maps the variant index within the IBC pallet to the
// canonical event kind. The order matches the pallet's event enum.
var eventKindByVariant = [...]core.EventKind{
	core.EventKindCreateClient,
	core.EventKindUpdateClient,
	core.EventKindClientMisbehaviour,
	core.EventKindOpenInitConnection,
	core.EventKindOpenTryConnection,
	core.EventKindOpenAckConnection,
	core.EventKindOpenConfirmConnection,
	core.EventKindOpenInitChannel,
	core.EventKindOpenTryChannel,
	core.EventKindOpenAckChannel,
	core.EventKindOpenConfirmChannel,
	core.EventKindCloseInitChannel,
	core.EventKindCloseConfirmChannel,
	core.EventKindSendPacket,
	core.EventKindReceivePacket,
	core.EventKindWriteAcknowledgement,
	core.EventKindAcknowledgePacket,
	core.EventKindTimeoutPacket,
	core.EventKindTimeoutOnClosePacket,
	core.EventKindAppModule,
	core.EventKindChainError,
}

func kindForEvent(palletIndex, variantIndex, ibcPalletIndex uint8) core.EventKind {
	if palletIndex != ibcPalletIndex || int(variantIndex) >= len(eventKindByVariant) {
		return core.EventKindUnknown
	}
	return eventKindByVariant[variantIndex]
}

// decodeEventRecords walks the System.Events storage value. Each record is
// phase, pallet index, variant index, the payload as an opaque byte vector
// and the topic list; payload framing keeps records of foreign pallets
// skippable without their metadata.
func decodeEventRecords(bz []byte, ibcPalletIndex uint8) ([]core.RawEvent, error) {
	r := scale.NewReader(bz)
	// a record is at least phase, pallet, variant, payload length and topic count
	count, err := r.ReadCount(5)
	if err != nil {
		return nil, err
	}

	events := make([]core.RawEvent, 0, count)
	for i := uint64(0); i < count; i++ {
		phase, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch phase {
		case phaseApplyExtrinsic:
			if _, err := r.ReadUint32(); err != nil {
				return nil, err
			}
		case phaseFinalization, phaseInitialization:
		default:
			return nil, errors.Newf("record %d: invalid phase %d", i, phase)
		}

		palletIndex, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		variantIndex, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		payload, err := r.ReadByteSlice()
		if err != nil {
			return nil, err
		}

		topics, err := r.ReadCount(32)
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < topics; j++ {
			if _, err := r.ReadBytes(32); err != nil {
				return nil, err
			}
		}

		events = append(events, core.RawEvent{
			Kind: kindForEvent(palletIndex, variantIndex, ibcPalletIndex),
			Data: payload,
		})
	}

	if err := r.Close(); err != nil {
		return nil, err
	}
	return events, nil
}
