package httpkit

import (
	"encoding/json"
	"fmt"
)

// Envelope is the list payload shape used by external collaborator APIs.
// Older gateway revisions return `{"data": [...]}` while newer ones nest it
// as `{"data": {"data": [...]}}`. DecodeList accepts either so call sites
// never special-case the revision.
type Envelope struct {
	Data json.RawMessage `json:"data"`
}

// DecodeList unmarshals a list response body into dst (a pointer to a slice),
// unwrapping one or two levels of the `data` envelope.
func DecodeList(body []byte, dst interface{}) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode envelope: missing data field")
	}

	// Flat revision: data is already the array.
	if env.Data[0] == '[' {
		return json.Unmarshal(env.Data, dst)
	}

	// Nested revision: data is an object holding another data array.
	var inner Envelope
	if err := json.Unmarshal(env.Data, &inner); err != nil {
		return fmt.Errorf("decode nested envelope: %w", err)
	}
	if len(inner.Data) == 0 {
		return fmt.Errorf("decode nested envelope: missing data field")
	}
	return json.Unmarshal(inner.Data, dst)
}
