package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// LimitHint is a rate-limit warning scraped from free-text system chatter.
// The transport has no structured message for these; they arrive as prose
// like "You have used 80% of your weekly limit. Resets Thursday at 9am."
type LimitHint struct {
	Message     string
	UsedPercent int
	ResetsAt    string
}

var (
	limitPercentRe = regexp.MustCompile(`(\d{1,3})\s*%`)
	limitResetRe   = regexp.MustCompile(`(?i)resets?\s+(.+?)(?:\.|$)`)
)

var limitKeywords = []string{"rate limit", "usage limit", "weekly limit", "session limit"}

// ParseLimitHint extracts a limit warning from a free-text system message.
// Returns false when the text carries no limit keyword.
func ParseLimitHint(text string) (LimitHint, bool) {
	lower := strings.ToLower(text)
	matched := false
	for _, kw := range limitKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return LimitHint{}, false
	}

	hint := LimitHint{Message: strings.TrimSpace(text)}

	if m := limitPercentRe.FindStringSubmatch(text); m != nil {
		pct, err := strconv.Atoi(m[1])
		if err == nil && pct >= 0 && pct <= 100 {
			hint.UsedPercent = pct
		}
	}
	if m := limitResetRe.FindStringSubmatch(text); m != nil {
		hint.ResetsAt = strings.TrimSpace(m[1])
	}

	return hint, true
}
