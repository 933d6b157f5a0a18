// Package jsonutil provides utilities for extracting and parsing JSON from
// LLM responses that may be wrapped in markdown code fences, embedded in
// prose, or mildly malformed (missing commas, stray control characters).
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := len(lines) - 1

	// Find the closing ```
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// ExtractJSON finds and returns the first complete JSON object in text that
// may contain surrounding non-JSON content. Brace counting picks out the first
// object even when the model appends a second one or trailing commentary.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	// Unbalanced braces: fall back to the last closing brace.
	end := strings.LastIndex(text, "}")
	if end <= start {
		return "", fmt.Errorf("no closing } found")
	}
	return text[start : end+1], nil
}

var (
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	missingCommaRe = regexp.MustCompile(`("\s*:\s*"(?:[^"\\]|\\.)*")\s*("[\w]+"\s*:)`)
	trailingObjRe  = regexp.MustCompile(`,\s*}`)
	trailingArrRe  = regexp.MustCompile(`,\s*]`)
)

// Repair fixes the malformations most often seen in model output: stray
// control characters, a missing comma between two key-value pairs, and
// trailing commas before a closing brace or bracket. It leaves valid JSON
// untouched.
func Repair(jsonStr string) string {
	jsonStr = controlCharsRe.ReplaceAllString(jsonStr, "")
	jsonStr = missingCommaRe.ReplaceAllString(jsonStr, "$1,$2")
	jsonStr = trailingObjRe.ReplaceAllString(jsonStr, "}")
	jsonStr = trailingArrRe.ReplaceAllString(jsonStr, "]")
	return strings.TrimSpace(jsonStr)
}

// ParseJSON strips markdown fences from raw LLM response text, extracts the
// first JSON object, repairs common formatting slips, and unmarshals it into
// the provided type T.
//
// This consolidates the parsing pattern shared by the RCA and lifecycle
// analysis stages, whose Bedrock responses may be fenced, preceded by prose,
// or missing a comma between fields.
func ParseJSON[T any](raw string) (T, error) {
	text := StripMarkdownFences(raw)
	jsonStr, err := ExtractJSON(text)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
		return result, nil
	}

	// One retry after repair; a second failure is final.
	repaired := Repair(jsonStr)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		var zero T
		preview := repaired
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}
