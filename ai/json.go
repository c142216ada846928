package ai

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// CleanJSON strips markdown code fences and repairs common key-quoting
// mistakes in model output.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return RepairJSON(s)
}

// DecodeObject decodes a JSON object from model output into out. If the
// reply has prose around the object, the outermost braces are tried.
func DecodeObject(text string, out any) error {
	cleaned := CleanJSON(text)
	err := json.Unmarshal([]byte(cleaned), out)
	if err == nil {
		return nil
	}
	if inner, ok := between(cleaned, '{', '}'); ok {
		if json.Unmarshal([]byte(inner), out) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

// arrayKeys are tried first when a model wraps an array in an object.
var arrayKeys = []string{"evaluations", "results", "articles", "items", "data"}

// DecodeArray extracts a JSON array from model output. A bare array is
// accepted, as is an object whose only or well-known field is an array
// (JSON mode forces object replies on some servers).
func DecodeArray(text string) ([]json.RawMessage, error) {
	cleaned := CleanJSON(text)

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		for _, key := range arrayKeys {
			if raw, ok := obj[key]; ok && json.Unmarshal(raw, &arr) == nil {
				return arr, nil
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if json.Unmarshal(obj[k], &arr) == nil {
				return arr, nil
			}
		}
	}

	if inner, ok := between(cleaned, '[', ']'); ok {
		if json.Unmarshal([]byte(inner), &arr) == nil {
			return arr, nil
		}
	}
	return nil, ErrMalformedResponse
}

func between(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// RepairJSON attempts to fix common JSON formatting issues from LLM responses.
// It handles missing opening quotes before keys in JSON objects,
// e.g. `, impact":` becomes `, "impact":`.
func RepairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	i := 0
	for i < len(src) {
		ch := src[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++
		for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t' || src[i] == '\r') {
			fixed = append(fixed, src[i])
			i++
		}
		if i >= len(src) || src[i] == '"' || !isLetter(src[i]) {
			continue
		}

		keyStart := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_') {
			i++
		}
		fixed = append(fixed, src[keyStart:i]...)
		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			// insert the missing opening quote in front of the key
			pos := len(fixed) - (i - keyStart)
			fixed = slices.Insert(fixed, pos, '"')
		}
	}

	return string(fixed)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
