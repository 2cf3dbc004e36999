// Package response recovers a JSON value from raw backend output and checks
// that it has the shape of an extraction result.
//
// Only syntax is handled here. Field-level validation belongs to the
// normalizer.
package response

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohit-sws/timetable/internal/timetable"
)

// Parse strips code fences and surrounding prose from backend output and
// decodes the JSON inside. Failures wrap timetable.ErrMalformedResponse.
func Parse(raw string) (any, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty output", timetable.ErrMalformedResponse)
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	for _, extracted := range extractJSONCandidates(content) {
		if extracted != content {
			candidates = append(candidates, extracted)
		}
	}

	var lastErr error
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}

	return nil, fmt.Errorf("%w: %v", timetable.ErrMalformedResponse, lastErr)
}

// stripCodeFences removes a surrounding ``` or ```json fence. It handles both
// the multi-line form and a fence on a single line.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	body := strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "JSON", or nothing).
		if tag := strings.TrimSpace(body[:nl]); !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// extractJSONCandidates returns the object span (first "{" to last "}") and
// the array span (first "[" to last "]"), whichever starts first leading.
// Both are returned so a bracketed aside in the prose ("[3] blocks") cannot
// hide the envelope that follows it.
func extractJSONCandidates(content string) []string {
	trimmed := strings.TrimSpace(content)
	object, objectAt := between(trimmed, "{", "}")
	array, arrayAt := between(trimmed, "[", "]")

	var out []string
	if arrayAt >= 0 && (objectAt < 0 || arrayAt < objectAt) {
		out = append(out, array)
		array = ""
	}
	if object != "" {
		out = append(out, object)
	}
	if array != "" {
		out = append(out, array)
	}
	return out
}

// between returns s from the first open to the last closer, and where it
// starts (-1 when there is no such span).
func between(s, open, closer string) (string, int) {
	start := strings.Index(s, open)
	if start < 0 {
		return "", -1
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return "", -1
	}
	return s[start : end+1], start
}
