package wordware

import (
	"encoding/json"
	"errors"
	"iter"
	"strings"
)

// DefaultOutputField is the generation node whose value carries the final
// answer. It is named by the upstream app, not derived.
const DefaultOutputField = "gen_Pn6h2m62tQOJZ3Af"

// ErrExtractionFailed is returned when no line of a response carries the
// expected output.
var ErrExtractionFailed = errors.New("failed to extract output from response")

// Chunk is one newline-delimited JSON object of a streamed response
type Chunk struct {
	Type  string `json:"type"`
	Value struct {
		Type   string                     `json:"type"`
		Values map[string]json.RawMessage `json:"values"`
	} `json:"value"`
}

// Output returns the string stored under field when the chunk is an outputs
// chunk carrying it.
func (c Chunk) Output(field string) (string, bool) {
	if c.Type != "chunk" || c.Value.Type != "outputs" {
		return "", false
	}
	raw, ok := c.Value.Values[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Chunks yields every line of text that parses as a JSON object, in order.
// Lines that do not parse are skipped.
func Chunks(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for line := range strings.Lines(text) {
			line = strings.TrimSpace(line)
			if line == "" || line[0] != '{' {
				continue
			}
			var c Chunk
			if err := json.Unmarshal([]byte(line), &c); err != nil {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// ExtractOutput returns the JSON answer from the first chunk carrying field.
// Markdown fences around the answer are removed. A candidate whose answer is
// not valid JSON is skipped like any other noise line.
func ExtractOutput(text, field string) (json.RawMessage, error) {
	for c := range Chunks(text) {
		out, ok := c.Output(field)
		if !ok {
			continue
		}
		answer := StripCodeFence(out)
		if !json.Valid([]byte(answer)) {
			continue
		}
		return json.RawMessage(answer), nil
	}
	return nil, ErrExtractionFailed
}

// StripCodeFence removes a leading ```json or ``` marker and a trailing ```
// marker, then trims whitespace.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
