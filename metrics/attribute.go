package metrics

import (
	"go.opentelemetry.io/otel/attribute"
)

func ChainIDAttribute(chainID string) attribute.KeyValue {
	return attribute.Key("chain_id").String(chainID)
}

func ClientIDAttribute(clientID string) attribute.KeyValue {
	return attribute.Key("client_id").String(clientID)
}

func EventKindAttribute(kind string) attribute.KeyValue {
	return attribute.Key("event_kind").String(kind)
}
