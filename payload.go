package toolbridge

import (
	"encoding/json"

	"github.com/wagiedev/toolbridge-go/internal/payload"
)

// Extract unwraps a raw tool result into a plain Go value. It tries, in
// order: structuredContent.result, the first content item's text (decoded
// as JSON when possible), a bare array, a top-level result field, and
// finally the whole value.
func Extract(raw json.RawMessage) any {
	return payload.Extract(raw)
}

// Rows extracts a tool result and coerces it into a list, the shape
// database and vector-search workers return their matches in.
func Rows(raw json.RawMessage) []any {
	return payload.Rows(payload.Extract(raw))
}
