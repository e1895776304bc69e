package chat

import "encoding/json"

// FallbackReply is shown when the webhook answers with an unrecognised shape.
const FallbackReply = "Sorry, I couldn't come up with a response just now. Could you rephrase your question?"

// Extractor pulls a display string out of one response shape.
type Extractor struct {
	Name    string
	Extract func(v any) (string, bool)
}

// DefaultExtractors lists the supported response shapes in priority order.
var DefaultExtractors = []Extractor{
	{Name: "array-output", Extract: firstOutput},
	{Name: "reply", Extract: field("reply")},
	{Name: "response", Extract: field("response")},
	{Name: "message", Extract: field("message")},
	{Name: "text", Extract: field("text")},
	{Name: "string", Extract: bareString},
	{Name: "content", Extract: field("content")},
}

// Normalize returns the first match from extractors, or FallbackReply.
func Normalize(v any, extractors []Extractor) (text string, matched string) {
	for _, ex := range extractors {
		if s, ok := ex.Extract(v); ok {
			return s, ex.Name
		}
	}
	return FallbackReply, ""
}

// decodeValue turns a JSON body into generic values.
func decodeValue(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func firstOutput(v any) (string, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return "", false
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmpty(first["output"])
}

func field(name string) func(any) (string, bool) {
	return func(v any) (string, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		return nonEmpty(obj[name])
	}
}

func bareString(v any) (string, bool) {
	return nonEmpty(v)
}

func nonEmpty(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
