// Package record implements Component C7: record identity (content
// addressing), create-vs-update detection, latest-writer-wins conflict
// resolution, and the inline/external data-size policy.
package record

// Descriptor is the method-specific payload of a RecordsWrite message.
// Fields marked immutable must stay identical across every write in a
// record's chain; violating that is ErrImmutablePropertyChanged.
type Descriptor struct {
	Interface string `json:"interface" cbor:"interface"`
	Method    string `json:"method" cbor:"method"`

	// Immutable once the initial write lands.
	RecordID     string `json:"recordId" cbor:"recordId"`
	ContextID    string `json:"contextId,omitempty" cbor:"contextId,omitempty"`
	Protocol     string `json:"protocol,omitempty" cbor:"protocol,omitempty"`
	ProtocolPath string `json:"protocolPath,omitempty" cbor:"protocolPath,omitempty"`
	Schema       string `json:"schema,omitempty" cbor:"schema,omitempty"`
	ParentID     string `json:"parentId,omitempty" cbor:"parentId,omitempty"`
	Recipient    string `json:"recipient,omitempty" cbor:"recipient,omitempty"`
	DateCreated  string `json:"dateCreated" cbor:"dateCreated"`

	// Mutable across updates.
	Published        bool   `json:"published" cbor:"published"`
	DatePublished    string `json:"datePublished,omitempty" cbor:"datePublished,omitempty"`
	DataCid          string `json:"dataCid" cbor:"dataCid"`
	DataSize         int64  `json:"dataSize" cbor:"dataSize"`
	DataFormat       string `json:"dataFormat,omitempty" cbor:"dataFormat,omitempty"`
	MessageTimestamp string `json:"messageTimestamp" cbor:"messageTimestamp"`
}

// immutableFields returns the subset of d that must match across every
// write in the same record chain, per spec.md §3's Record definition.
func (d Descriptor) immutableFields() [8]string {
	return [8]string{d.RecordID, d.DateCreated, d.Protocol, d.ProtocolPath, d.Schema, d.ContextID, d.ParentID, d.Recipient}
}

// sameImmutableFields reports whether d and other agree on every
// immutable field.
func (d Descriptor) sameImmutableFields(other Descriptor) bool {
	return d.immutableFields() == other.immutableFields()
}

// Indexes flattens the descriptor plus author/recipient into the property
// map the index engine stores, matching the minimum set spec.md §3
// requires every record to carry.
func (d Descriptor) Indexes(author string) map[string]any {
	return map[string]any{
		"recordId":         d.RecordID,
		"author":           author,
		"recipient":        d.Recipient,
		"schema":           d.Schema,
		"dataFormat":       d.DataFormat,
		"dataSize":         d.DataSize,
		"dataCid":          d.DataCid,
		"protocol":         d.Protocol,
		"protocolPath":     d.ProtocolPath,
		"contextId":        d.ContextID,
		"dateCreated":      d.DateCreated,
		"datePublished":    d.DatePublished,
		"messageTimestamp": d.MessageTimestamp,
		"published":        d.Published,
		"interface":        d.Interface,
		"method":           d.Method,
	}
}
