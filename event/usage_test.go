package event

import "testing"

func TestContextUsage_Percent(t *testing.T) {
	tests := []struct {
		name  string
		usage ContextUsage
		want  int
	}{
		{"zero window", ContextUsage{InputTokens: 500}, 0},
		{"half", ContextUsage{InputTokens: 100000, ContextWindow: 200000}, 50},
		{"cache counts toward window", ContextUsage{InputTokens: 1000, CacheReadTokens: 50000, CacheCreationTokens: 49000, ContextWindow: 200000}, 50},
		{"output excluded", ContextUsage{InputTokens: 1000, OutputTokens: 199000, ContextWindow: 200000}, 1},
		{"rounds", ContextUsage{InputTokens: 333, ContextWindow: 1000}, 33},
		{"rounds up", ContextUsage{InputTokens: 335, ContextWindow: 1000}, 34},
		{"clamps above 100", ContextUsage{InputTokens: 500000, ContextWindow: 200000}, 100},
		{"negative input treated as zero", ContextUsage{InputTokens: -50, ContextWindow: 200000}, 0},
		{"negative window treated as zero", ContextUsage{InputTokens: 100, ContextWindow: -1}, 0},
		{"all negative", ContextUsage{InputTokens: -1, CacheReadTokens: -1, CacheCreationTokens: -1, ContextWindow: -1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usage.Percent(); got != tt.want {
				t.Errorf("Percent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContextUsage_PercentAlwaysInRange(t *testing.T) {
	// Exhaustive-ish sweep over sign combinations.
	values := []int{-1000000, -1, 0, 1, 999, 200000, 1 << 40}
	for _, in := range values {
		for _, cr := range values {
			for _, cw := range values {
				for _, win := range values {
					u := ContextUsage{InputTokens: in, CacheReadTokens: cr, CacheCreationTokens: cw, ContextWindow: win}
					pct := u.Percent()
					if pct < 0 || pct > 100 {
						t.Fatalf("Percent() = %d out of range for %+v", pct, u)
					}
				}
			}
		}
	}
}
