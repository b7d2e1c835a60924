package monitor

import (
	"github.com/cockroachdb/errors"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/scale"
)

// DecodeEvents turns a raw runtime event into canonical events. Events of an
// unknown kind decode to no canonical events at all; a payload of a known
// kind that does not decode yields ErrInvalidCodecDecode.
func DecodeEvents(raw core.RawEvent) ([]core.Event, error) {
	decode, ok := eventDecoders[raw.Kind]
	if !ok {
		return nil, nil
	}

	r := scale.NewReader(raw.Data)
	event, err := decode(r)
	if err == nil {
		err = r.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCodecDecode, "kind %s: %v", raw.Kind, err)
	}
	return []core.Event{event}, nil
}

var eventDecoders = map[core.EventKind]func(*scale.Reader) (core.Event, error){
	core.EventKindCreateClient: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeClientAttributes(r)
		return core.CreateClientEvent{ClientAttributes: attrs}, err
	},
	core.EventKindUpdateClient: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeClientAttributes(r)
		return core.UpdateClientEvent{ClientAttributes: attrs}, err
	},
	core.EventKindClientMisbehaviour: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeClientAttributes(r)
		return core.ClientMisbehaviourEvent{ClientAttributes: attrs}, err
	},
	core.EventKindOpenInitConnection: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeConnectionAttributes(r)
		return core.OpenInitConnectionEvent{ConnectionAttributes: attrs}, err
	},
	core.EventKindOpenTryConnection: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeConnectionAttributes(r)
		return core.OpenTryConnectionEvent{ConnectionAttributes: attrs}, err
	},
	core.EventKindOpenAckConnection: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeConnectionAttributes(r)
		return core.OpenAckConnectionEvent{ConnectionAttributes: attrs}, err
	},
	core.EventKindOpenConfirmConnection: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeConnectionAttributes(r)
		return core.OpenConfirmConnectionEvent{ConnectionAttributes: attrs}, err
	},
	core.EventKindOpenInitChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.OpenInitChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindOpenTryChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.OpenTryChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindOpenAckChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.OpenAckChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindOpenConfirmChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.OpenConfirmChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindCloseInitChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.CloseInitChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindCloseConfirmChannel: func(r *scale.Reader) (core.Event, error) {
		attrs, err := decodeChannelAttributes(r)
		return core.CloseConfirmChannelEvent{ChannelAttributes: attrs}, err
	},
	core.EventKindSendPacket: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		return core.SendPacketEvent{Height: height, Packet: packet}, err
	},
	core.EventKindReceivePacket: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		return core.ReceivePacketEvent{Height: height, Packet: packet}, err
	},
	core.EventKindWriteAcknowledgement: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		if err != nil {
			return nil, err
		}
		ack, err := r.ReadByteSlice()
		return core.WriteAcknowledgementEvent{Height: height, Packet: packet, Ack: ack}, err
	},
	core.EventKindAcknowledgePacket: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		return core.AcknowledgePacketEvent{Height: height, Packet: packet}, err
	},
	core.EventKindTimeoutPacket: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		return core.TimeoutPacketEvent{Height: height, Packet: packet}, err
	},
	core.EventKindTimeoutOnClosePacket: func(r *scale.Reader) (core.Event, error) {
		height, packet, err := decodePacketEnvelope(r)
		return core.TimeoutOnClosePacketEvent{Height: height, Packet: packet}, err
	},
	core.EventKindAppModule: func(r *scale.Reader) (core.Event, error) {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		data, err := r.ReadByteSlice()
		return core.AppModuleEvent{Name: name, Data: data}, err
	},
	core.EventKindChainError: func(r *scale.Reader) (core.Event, error) {
		height, err := decodeHeight(r)
		if err != nil {
			return nil, err
		}
		msg, err := r.ReadString()
		return core.ChainErrorEvent{Height: height, Err: msg}, err
	},
	core.EventKindNewBlock: func(r *scale.Reader) (core.Event, error) {
		height, err := decodeHeight(r)
		return core.NewBlockEvent{Height: height}, err
	},
}

func decodeHeight(r *scale.Reader) (clienttypes.Height, error) {
	revisionNumber, err := r.ReadUint64()
	if err != nil {
		return clienttypes.Height{}, err
	}
	revisionHeight, err := r.ReadUint64()
	if err != nil {
		return clienttypes.Height{}, err
	}
	return clienttypes.NewHeight(revisionNumber, revisionHeight), nil
}

func decodeClientAttributes(r *scale.Reader) (core.ClientAttributes, error) {
	var attrs core.ClientAttributes
	var err error
	if attrs.Height, err = decodeHeight(r); err != nil {
		return attrs, err
	}
	if attrs.ClientID, err = r.ReadString(); err != nil {
		return attrs, err
	}
	if attrs.ClientType, err = r.ReadString(); err != nil {
		return attrs, err
	}
	attrs.ConsensusHeight, err = decodeHeight(r)
	return attrs, err
}

func decodeConnectionAttributes(r *scale.Reader) (core.ConnectionAttributes, error) {
	var attrs core.ConnectionAttributes
	var err error
	if attrs.Height, err = decodeHeight(r); err != nil {
		return attrs, err
	}
	if attrs.ConnectionID, _, err = r.ReadOptionString(); err != nil {
		return attrs, err
	}
	if attrs.ClientID, err = r.ReadString(); err != nil {
		return attrs, err
	}
	if attrs.CounterpartyConnectionID, _, err = r.ReadOptionString(); err != nil {
		return attrs, err
	}
	attrs.CounterpartyClientID, err = r.ReadString()
	return attrs, err
}

func decodeChannelAttributes(r *scale.Reader) (core.ChannelAttributes, error) {
	var attrs core.ChannelAttributes
	var err error
	if attrs.Height, err = decodeHeight(r); err != nil {
		return attrs, err
	}
	if attrs.PortID, err = r.ReadString(); err != nil {
		return attrs, err
	}
	if attrs.ChannelID, _, err = r.ReadOptionString(); err != nil {
		return attrs, err
	}
	if attrs.ConnectionID, err = r.ReadString(); err != nil {
		return attrs, err
	}
	if attrs.CounterpartyPortID, err = r.ReadString(); err != nil {
		return attrs, err
	}
	attrs.CounterpartyChannelID, _, err = r.ReadOptionString()
	return attrs, err
}

func decodePacketEnvelope(r *scale.Reader) (clienttypes.Height, chantypes.Packet, error) {
	height, err := decodeHeight(r)
	if err != nil {
		return clienttypes.Height{}, chantypes.Packet{}, err
	}
	packet, err := decodePacket(r)
	return height, packet, err
}

func decodePacket(r *scale.Reader) (chantypes.Packet, error) {
	var packet chantypes.Packet
	var err error
	if packet.Sequence, err = r.ReadUint64(); err != nil {
		return packet, err
	}
	if packet.SourcePort, err = r.ReadString(); err != nil {
		return packet, err
	}
	if packet.SourceChannel, err = r.ReadString(); err != nil {
		return packet, err
	}
	if packet.DestinationPort, err = r.ReadString(); err != nil {
		return packet, err
	}
	if packet.DestinationChannel, err = r.ReadString(); err != nil {
		return packet, err
	}
	if packet.Data, err = r.ReadByteSlice(); err != nil {
		return packet, err
	}
	timeoutHeight, err := decodeHeight(r)
	if err != nil {
		return packet, err
	}
	packet.TimeoutHeight = timeoutHeight
	packet.TimeoutTimestamp, err = r.ReadUint64()
	return packet, err
}
