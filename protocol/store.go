package protocol

import (
	"encoding/json"
	"fmt"

	"dwn.evalgo.org/index"
	"dwn.evalgo.org/messagestore"
)

// Store persists and resolves ProtocolsConfigure definitions through the
// tenant's message store, the write/read half of Component C8's protocol
// side that authz.Engine.AuthorizeWrite's $actions evaluation reads from.
type Store struct {
	messages *messagestore.MessageStore
}

// NewStore builds a Store over the tenant's message store.
func NewStore(messages *messagestore.MessageStore) *Store {
	return &Store{messages: messages}
}

// storedDefinition wraps a Definition with the timestamp Configure calls
// are ordered by, so a reconfiguration of the same protocol can be
// resolved to the most recent one rather than an arbitrary match.
type storedDefinition struct {
	Definition   Definition `json:"definition"`
	ConfiguredAt string     `json:"configuredAt"`
}

// Configure persists def under messageCid as a candidate definition for
// def.Protocol, timestamped configuredAt; Lookup always resolves to the
// most recently configured definition, mirroring how record.Lifecycle
// resolves a record's current write by messageTimestamp.
func (s *Store) Configure(tenantDid, messageCid string, def Definition, configuredAt string) error {
	raw, err := json.Marshal(storedDefinition{Definition: def, ConfiguredAt: configuredAt})
	if err != nil {
		return fmt.Errorf("protocol: encoding definition %s: %w", def.Protocol, err)
	}
	return s.messages.Put(tenantDid, messageCid, raw, map[string]any{
		"protocol": def.Protocol, "interface": "Protocols", "method": "Configure",
		"messageTimestamp": configuredAt,
	})
}

// Lookup resolves the currently configured Definition for protocolName,
// if one has been installed.
func (s *Store) Lookup(tenantDid, protocolName string) (Definition, bool, error) {
	filter := index.Filter{
		"protocol":  index.EqualFilter{Value: protocolName},
		"interface": index.EqualFilter{Value: "Protocols"},
		"method":    index.EqualFilter{Value: "Configure"},
	}
	results, _, err := s.messages.Query(tenantDid, []index.Filter{filter}, "messageTimestamp", true, nil, 1)
	if err != nil {
		return Definition{}, false, fmt.Errorf("protocol: looking up %s: %w", protocolName, err)
	}
	if len(results) == 0 {
		return Definition{}, false, nil
	}
	var stored storedDefinition
	if err := json.Unmarshal(results[0].Raw, &stored); err != nil {
		return Definition{}, false, fmt.Errorf("protocol: decoding %s: %w", protocolName, err)
	}
	return stored.Definition, true, nil
}
