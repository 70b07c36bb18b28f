// Package jsonx extracts JSON payloads from free-form completion output.
//
// Completion providers return prose-wrapped JSON more often than bare JSON.
// Extract accepts, in priority order: a fenced ```json block, any bare
// fenced block, or the outermost brace/bracket-delimited substring, and
// fails explicitly when none of them match.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when the text contains no recognizable JSON payload.
var ErrNoJSON = errors.New("no JSON payload found")

// Extract returns the JSON substring of text per the priority above.
func Extract(text string) (string, error) {
	if s, ok := fencedBlock(text, "```json"); ok {
		return s, nil
	}
	if s, ok := fencedBlock(text, "```"); ok {
		return s, nil
	}
	if s, ok := delimited(text, '{', '}'); ok {
		return s, nil
	}
	if s, ok := delimited(text, '[', ']'); ok {
		return s, nil
	}
	return "", ErrNoJSON
}

// Unmarshal extracts the JSON payload of text and decodes it into v.
func Unmarshal(text string, v interface{}) error {
	payload, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("decode extracted JSON failed, err: %w", err)
	}
	return nil
}

func fencedBlock(text, fence string) (string, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	body := strings.TrimSpace(rest[:end])
	if body == "" {
		return "", false
	}
	return body, true
}

// delimited returns the substring between the first open and the last close
// delimiter. The last-close heuristic tolerates trailing commentary after
// the payload.
func delimited(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}
