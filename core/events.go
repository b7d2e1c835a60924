package core

import (
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

// EventKind identifies a runtime event the monitor knows how to decode.
// Kinds outside this set are reported as EventKindUnknown and produce no
// canonical events.
type EventKind int

const (
	EventKindUnknown EventKind = iota
	EventKindCreateClient
	EventKindUpdateClient
	EventKindClientMisbehaviour
	EventKindOpenInitConnection
	EventKindOpenTryConnection
	EventKindOpenAckConnection
	EventKindOpenConfirmConnection
	EventKindOpenInitChannel
	EventKindOpenTryChannel
	EventKindOpenAckChannel
	EventKindOpenConfirmChannel
	EventKindCloseInitChannel
	EventKindCloseConfirmChannel
	EventKindSendPacket
	EventKindReceivePacket
	EventKindWriteAcknowledgement
	EventKindAcknowledgePacket
	EventKindTimeoutPacket
	EventKindTimeoutOnClosePacket
	EventKindAppModule
	EventKindChainError
	EventKindNewBlock
)

var eventKindNames = map[EventKind]string{
	EventKindUnknown:               "Unknown",
	EventKindCreateClient:          "CreateClient",
	EventKindUpdateClient:          "UpdateClient",
	EventKindClientMisbehaviour:    "ClientMisbehaviour",
	EventKindOpenInitConnection:    "OpenInitConnection",
	EventKindOpenTryConnection:     "OpenTryConnection",
	EventKindOpenAckConnection:     "OpenAckConnection",
	EventKindOpenConfirmConnection: "OpenConfirmConnection",
	EventKindOpenInitChannel:       "OpenInitChannel",
	EventKindOpenTryChannel:        "OpenTryChannel",
	EventKindOpenAckChannel:        "OpenAckChannel",
	EventKindOpenConfirmChannel:    "OpenConfirmChannel",
	EventKindCloseInitChannel:      "CloseInitChannel",
	EventKindCloseConfirmChannel:   "CloseConfirmChannel",
	EventKindSendPacket:            "SendPacket",
	EventKindReceivePacket:         "ReceivePacket",
	EventKindWriteAcknowledgement:  "WriteAcknowledgement",
	EventKindAcknowledgePacket:     "AcknowledgePacket",
	EventKindTimeoutPacket:         "TimeoutPacket",
	EventKindTimeoutOnClosePacket:  "TimeoutOnClosePacket",
	EventKindAppModule:             "AppModule",
	EventKindChainError:            "ChainError",
	EventKindNewBlock:              "NewBlock",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Event is a canonical chain event produced by the event monitor.
type Event interface {
	Kind() EventKind
}

// ClientAttributes carries the identity of a light client referenced by a
// client-lifecycle event.
type ClientAttributes struct {
	Height          clienttypes.Height
	ClientID        string
	ClientType      string
	ConsensusHeight clienttypes.Height
}

// ConnectionAttributes carries the identity of a connection end referenced by
// a connection-handshake event.
type ConnectionAttributes struct {
	Height                   clienttypes.Height
	ConnectionID             string
	ClientID                 string
	CounterpartyConnectionID string
	CounterpartyClientID     string
}

// ChannelAttributes carries the identity of a channel end referenced by a
// channel-handshake event.
type ChannelAttributes struct {
	Height                clienttypes.Height
	PortID                string
	ChannelID             string
	ConnectionID          string
	CounterpartyPortID    string
	CounterpartyChannelID string
}

type CreateClientEvent struct{ ClientAttributes }
type UpdateClientEvent struct{ ClientAttributes }
type ClientMisbehaviourEvent struct{ ClientAttributes }

type OpenInitConnectionEvent struct{ ConnectionAttributes }
type OpenTryConnectionEvent struct{ ConnectionAttributes }
type OpenAckConnectionEvent struct{ ConnectionAttributes }
type OpenConfirmConnectionEvent struct{ ConnectionAttributes }

type OpenInitChannelEvent struct{ ChannelAttributes }
type OpenTryChannelEvent struct{ ChannelAttributes }
type OpenAckChannelEvent struct{ ChannelAttributes }
type OpenConfirmChannelEvent struct{ ChannelAttributes }
type CloseInitChannelEvent struct{ ChannelAttributes }
type CloseConfirmChannelEvent struct{ ChannelAttributes }

// SendPacketEvent and its siblings wrap the full packet so downstream
// consumers can relay or acknowledge without further queries.
type SendPacketEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
}

type ReceivePacketEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
}

type WriteAcknowledgementEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
	Ack    []byte
}

type AcknowledgePacketEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
}

type TimeoutPacketEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
}

type TimeoutOnClosePacketEvent struct {
	Height clienttypes.Height
	Packet chantypes.Packet
}

// AppModuleEvent is an opaque event emitted by an application module.
type AppModuleEvent struct {
	Name string
	Data []byte
}

// ChainErrorEvent reports a runtime-level failure observed on the chain.
type ChainErrorEvent struct {
	Height clienttypes.Height
	Err    string
}

// NewBlockEvent marks the inclusion point of the events that share its batch.
type NewBlockEvent struct {
	Height clienttypes.Height
}

func (CreateClientEvent) Kind() EventKind          { return EventKindCreateClient }
func (UpdateClientEvent) Kind() EventKind          { return EventKindUpdateClient }
func (ClientMisbehaviourEvent) Kind() EventKind    { return EventKindClientMisbehaviour }
func (OpenInitConnectionEvent) Kind() EventKind    { return EventKindOpenInitConnection }
func (OpenTryConnectionEvent) Kind() EventKind     { return EventKindOpenTryConnection }
func (OpenAckConnectionEvent) Kind() EventKind     { return EventKindOpenAckConnection }
func (OpenConfirmConnectionEvent) Kind() EventKind { return EventKindOpenConfirmConnection }
func (OpenInitChannelEvent) Kind() EventKind       { return EventKindOpenInitChannel }
func (OpenTryChannelEvent) Kind() EventKind        { return EventKindOpenTryChannel }
func (OpenAckChannelEvent) Kind() EventKind        { return EventKindOpenAckChannel }
func (OpenConfirmChannelEvent) Kind() EventKind    { return EventKindOpenConfirmChannel }
func (CloseInitChannelEvent) Kind() EventKind      { return EventKindCloseInitChannel }
func (CloseConfirmChannelEvent) Kind() EventKind   { return EventKindCloseConfirmChannel }
func (SendPacketEvent) Kind() EventKind            { return EventKindSendPacket }
func (ReceivePacketEvent) Kind() EventKind         { return EventKindReceivePacket }
func (WriteAcknowledgementEvent) Kind() EventKind  { return EventKindWriteAcknowledgement }
func (AcknowledgePacketEvent) Kind() EventKind     { return EventKindAcknowledgePacket }
func (TimeoutPacketEvent) Kind() EventKind         { return EventKindTimeoutPacket }
func (TimeoutOnClosePacketEvent) Kind() EventKind  { return EventKindTimeoutOnClosePacket }
func (AppModuleEvent) Kind() EventKind             { return EventKindAppModule }
func (ChainErrorEvent) Kind() EventKind            { return EventKindChainError }
func (NewBlockEvent) Kind() EventKind              { return EventKindNewBlock }

// EventBatch groups the canonical events decoded from a single runtime event,
// stamped with the chain's latest finalized height at decode time.
type EventBatch struct {
	ChainID    string
	Height     clienttypes.Height
	TrackingID TrackingID
	Events     []Event
}
