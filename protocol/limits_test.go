package protocol

import "testing"

func TestParseLimitHint_WeeklyLimit(t *testing.T) {
	hint, ok := ParseLimitHint("You have used 80% of your weekly limit. Resets Thursday at 9am.")
	if !ok {
		t.Fatal("expected a limit hint")
	}
	if hint.UsedPercent != 80 {
		t.Errorf("expected 80%%, got %d", hint.UsedPercent)
	}
	if hint.ResetsAt != "Thursday at 9am" {
		t.Errorf("unexpected reset text: %q", hint.ResetsAt)
	}
}

func TestParseLimitHint_RateLimitNoPercent(t *testing.T) {
	hint, ok := ParseLimitHint("Approaching rate limit for your account")
	if !ok {
		t.Fatal("expected a limit hint")
	}
	if hint.UsedPercent != 0 {
		t.Errorf("expected 0%% when no percentage present, got %d", hint.UsedPercent)
	}
}

func TestParseLimitHint_NoKeyword(t *testing.T) {
	if _, ok := ParseLimitHint("Compacted 45% of the conversation"); ok {
		t.Error("percentage without a limit keyword should not produce a hint")
	}
}

func TestParseLimitHint_OutOfRangePercentIgnored(t *testing.T) {
	hint, ok := ParseLimitHint("usage limit at 999% (corrupted counter)")
	if !ok {
		t.Fatal("expected a limit hint")
	}
	if hint.UsedPercent != 0 {
		t.Errorf("out-of-range percent should be dropped, got %d", hint.UsedPercent)
	}
}
