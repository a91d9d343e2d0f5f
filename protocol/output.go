package protocol

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// maxErrorMessageLen bounds error text scraped from process output before
// it reaches the UI.
const maxErrorMessageLen = 320

// ExtractResultText recovers the assistant's final text from a one-shot
// transport payload. Upstream error payloads are not guaranteed to be
// well-formed JSON, so the tiers degrade deliberately:
//
//  1. a top-level "result" or "output" string field,
//  2. a "content" array whose {type:"text"} parts are joined by newlines,
//  3. the raw payload, trimmed.
func ExtractResultText(payload []byte) string {
	body := string(payload)

	if gjson.Valid(body) {
		if r := gjson.Get(body, "result"); r.Type == gjson.String {
			return r.String()
		}
		if r := gjson.Get(body, "output"); r.Type == gjson.String {
			return r.String()
		}
		if content := gjson.Get(body, "content"); content.IsArray() {
			var parts []string
			content.ForEach(func(_, part gjson.Result) bool {
				if part.Get("type").String() == "text" {
					parts = append(parts, part.Get("text").String())
				}
				return true
			})
			if len(parts) > 0 {
				return strings.Join(parts, "\n")
			}
		}
	}

	return strings.TrimSpace(body)
}

var (
	resultFieldRe = regexp.MustCompile(`"result"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	textFieldRe   = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// ExtractErrorMessage recovers a human-readable error from combined
// stdout/stderr of a failed process. Tiers: structured JSON field, regex
// field scrape, truncated raw text, and finally a generic exit-code
// message when nothing else is available.
func ExtractErrorMessage(output []byte, exitCode int) string {
	body := strings.TrimSpace(string(output))

	if gjson.Valid(body) {
		if r := gjson.Get(body, "result"); r.Type == gjson.String && r.String() != "" {
			return truncate(r.String())
		}
		if r := gjson.Get(body, "error.message"); r.Type == gjson.String && r.String() != "" {
			return truncate(r.String())
		}
		if r := gjson.Get(body, "message"); r.Type == gjson.String && r.String() != "" {
			return truncate(r.String())
		}
	}

	// Error payloads often carry truncated or interleaved JSON that the
	// structured tier rejects wholesale.
	if m := resultFieldRe.FindStringSubmatch(body); m != nil && m[1] != "" {
		return truncate(unescapeJSONString(m[1]))
	}
	if m := textFieldRe.FindStringSubmatch(body); m != nil && m[1] != "" {
		return truncate(unescapeJSONString(m[1]))
	}

	if body != "" {
		return truncate(body)
	}

	return fmt.Sprintf("agent process exited with code %d", exitCode)
}

func truncate(s string) string {
	if len(s) <= maxErrorMessageLen {
		return s
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func unescapeJSONString(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}

var (
	sessionIDTokenRe = regexp.MustCompile(`(?i)session id`)
	sessionGoneRe    = regexp.MustCompile(`(?i)not found|does not exist|invalid|expired|cannot`)
)

// IsRecoverableSessionError classifies error text that means the stored
// external session id is no longer resumable. Callers clear the id so the
// next turn starts a fresh agent session instead of failing to resume a
// dead one repeatedly.
func IsRecoverableSessionError(msg string) bool {
	return sessionIDTokenRe.MatchString(msg) && sessionGoneRe.MatchString(msg)
}
