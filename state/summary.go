package state

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxInputSummaryLen  = 120
	maxResultSummaryLen = 200
)

// fileMutationTools are the tool kinds whose raw input is retained on the
// timeline so a diff view can be rendered later.
var fileMutationTools = map[string]struct{}{
	"Edit":         {},
	"Write":        {},
	"MultiEdit":    {},
	"NotebookEdit": {},
}

func isFileMutationTool(name string) bool {
	_, ok := fileMutationTools[name]
	return ok
}

// summarizeInput produces the one-line input description shown on the
// tool timeline.
func summarizeInput(name string, input map[string]interface{}) string {
	if len(input) == 0 {
		return ""
	}

	// Well-known tools have one field that identifies the invocation.
	for _, key := range []string{"file_path", "command", "pattern", "url", "description", "prompt", "query"} {
		if v, ok := input[key].(string); ok && v != "" {
			return clip(v, maxInputSummaryLen)
		}
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, input[k]))
	}
	return clip(strings.Join(parts, " "), maxInputSummaryLen)
}

// summarizeResult produces the one-line outcome description for a tool
// result, whatever shape its content takes.
func summarizeResult(content interface{}) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return clip(strings.TrimSpace(v), maxResultSummaryLen)
	case []interface{}:
		var parts []string
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}
		return clip(strings.TrimSpace(strings.Join(parts, "\n")), maxResultSummaryLen)
	default:
		return clip(fmt.Sprintf("%v", v), maxResultSummaryLen)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
