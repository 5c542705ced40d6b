// Package parser extracts a JSON object from unstructured model output.
package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

// ErrParse indicates the raw text contains no decodable JSON object. It is
// terminal for the invocation; retrying the upstream AI call is the caller's
// decision.
var ErrParse = eris.New("parser: no decodable JSON object in response")

// Parse locates the first {...} span (greedy, first '{' to last '}') and
// decodes it; when that fails it attempts to decode the entire text. No
// schema is enforced — any JSON object is accepted.
func Parse(raw string) (model.RawExtraction, error) {
	if span, ok := braceSpan(raw); ok {
		if m, err := decodeObject(span); err == nil {
			return m, nil
		}
	}
	if m, err := decodeObject(raw); err == nil {
		return m, nil
	}
	return nil, ErrParse
}

// braceSpan returns the substring from the first '{' to the last '}'.
func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeObject(s string) (model.RawExtraction, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, eris.Wrap(err, "parser: decode")
	}

	out := make(model.RawExtraction, len(m))
	for k, v := range m {
		out[k] = model.FromAny(v)
	}
	return out, nil
}
