package event

import "math"

// ContextUsage tracks per-call token counts and the derived context-window
// occupancy. Counts come from the most recent call boundary inside the
// turn, never from the cumulative totals on the terminal message; the
// cumulative field double-counts across multi-call turns.
type ContextUsage struct {
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	ContextWindow       int
}

// Percent returns the context-window occupancy as a whole percentage in
// [0,100]. Output tokens are excluded: they do not occupy the input
// window. Negative or non-finite inputs count as zero.
func (u ContextUsage) Percent() int {
	window := clampNonNegative(u.ContextWindow)
	if window == 0 {
		return 0
	}
	used := clampNonNegative(u.InputTokens) +
		clampNonNegative(u.CacheReadTokens) +
		clampNonNegative(u.CacheCreationTokens)

	pct := int(math.Round(100 * float64(used) / float64(window)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
