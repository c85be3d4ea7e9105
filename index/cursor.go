package index

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Cursor opaquely identifies a position in a sorted query result set as
// (encoded sort value, item id, message CID) — the same tuple the sorted
// scan naturally orders by, so resuming from a Cursor is just seeking past
// it rather than re-deriving an offset.
type Cursor struct {
	SortValueEncoded string
	ItemID           string
	MessageCid       string
}

const cursorSep = "\x1f"

// Encode renders c as an opaque token safe to hand back to API callers.
func (c Cursor) Encode() string {
	raw := c.SortValueEncoded + cursorSep + c.ItemID + cursorSep + c.MessageCid
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Cursor.Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("index: malformed cursor: %w", err)
	}
	parts := strings.Split(string(raw), cursorSep)
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("index: malformed cursor")
	}
	return Cursor{SortValueEncoded: parts[0], ItemID: parts[1], MessageCid: parts[2]}, nil
}
