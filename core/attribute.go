package core

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttributeKeyChainID     = attribute.Key("chain_id")
	AttributeKeyClientID    = attribute.Key("client_id")
	AttributeKeyBlockNumber = attribute.Key("block_number")
	AttributeKeyTrackingID  = attribute.Key("tracking_id")
	AttributeKeyEventKind   = attribute.Key("event_kind")
)

// AttributeGroup prefixes the given key to all attributes.
//
// For example, if the key is "foo" and the key of an attribute is "bar", the new key will be "foo.bar".
func AttributeGroup(key string, attributes ...attribute.KeyValue) []attribute.KeyValue {
	newAttrs := make([]attribute.KeyValue, 0, len(attributes))
	for _, attr := range attributes {
		newAttrs = append(newAttrs, attribute.KeyValue{
			Key:   attribute.Key(key + "." + string(attr.Key)),
			Value: attr.Value,
		})
	}
	return newAttrs
}
