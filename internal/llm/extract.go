// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONArray returns the first JSON array embedded in free model
// text. Models wrap structured output unpredictably: bare, inside
// prose, or fenced in a ```json block. A bracket scan that respects
// string literals finds the matching close even when the surrounding
// prose contains brackets of its own.
func ExtractJSONArray(text string) (string, error) {
	// Prefer a fenced code block when present.
	if fenced, ok := extractFenced(text); ok {
		text = fenced
	}

	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", fmt.Errorf("no JSON array in model response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON array in model response")
}

// extractFenced returns the body of the first ``` fenced block.
func extractFenced(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	// Skip the language tag on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
