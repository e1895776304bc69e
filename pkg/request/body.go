package request

import (
	"encoding/json"
	"fmt"
)

// Body is a decoded response: structured JSON or raw text.
type Body struct {
	StatusCode  int
	ContentType string
	data        []byte
	json        bool
	malformed   bool
}

// NewJSONBody wraps raw JSON, mostly for tests and adapters.
func NewJSONBody(raw []byte) *Body {
	return &Body{StatusCode: 200, ContentType: "application/json", data: raw, json: len(raw) > 0}
}

// IsJSON reports whether the body was declared and parsed as JSON.
func (b *Body) IsJSON() bool {
	return b.json
}

// Malformed reports a body declared as JSON that failed to parse.
func (b *Body) Malformed() bool {
	return b.malformed
}

// Raw returns the JSON payload, or nil for text bodies.
func (b *Body) Raw() json.RawMessage {
	if !b.json {
		return nil
	}
	return json.RawMessage(b.data)
}

// Text returns the body verbatim.
func (b *Body) Text() string {
	return string(b.data)
}

// Bytes returns the body verbatim.
func (b *Body) Bytes() []byte {
	return b.data
}

// Decode unmarshals a JSON body into v.
func (b *Body) Decode(v any) error {
	if !b.json {
		return fmt.Errorf("decode response: body is %q, not JSON", b.ContentType)
	}
	return json.Unmarshal(b.data, v)
}

// Value returns the JSON body decoded into generic Go values, or the text
// body as a string.
func (b *Body) Value() (any, error) {
	if !b.json {
		return b.Text(), nil
	}
	var v any
	if err := json.Unmarshal(b.data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *Body) errorFields() (message, code string) {
	if !b.json {
		return "", ""
	}
	var payload struct {
		Message json.RawMessage `json:"message"`
		Code    json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(b.data, &payload); err != nil {
		return "", ""
	}
	return stringField(payload.Message), stringField(payload.Code)
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
