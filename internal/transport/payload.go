package transport

import (
	"bytes"
	"encoding/json"
)

// DecodeList resolves the backend's two list shapes once, at the
// transport boundary: a paginated envelope {"results": [...]} or a bare
// array. Any other shape (error object, scalar, garbage, empty body)
// decodes to an empty list rather than an error.
func DecodeList(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		return items
	case '{':
		var envelope struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil
		}
		return envelope.Results
	default:
		return nil
	}
}
