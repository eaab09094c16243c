package forge

import "testing"

func TestQuickForgeReductionTiers(t *testing.T) {
	t.Parallel()
	for tier := 1; tier <= 19; tier++ {
		want := 10.5 + 0.5*float64(tier-1)
		if got := QuickForgeReduction(tier); got != want {
			t.Fatalf("tier %d: got %v, want %v", tier, got, want)
		}
	}
	for _, tier := range []int{20, 21, 50} {
		if got := QuickForgeReduction(tier); got != MaxReduction {
			t.Fatalf("tier %d: got %v, want cap %v", tier, got, MaxReduction)
		}
	}
	for _, tier := range []int{0, -1, TierAbsent, -100} {
		if got := QuickForgeReduction(tier); got != 0.0 {
			t.Fatalf("tier %d: got %v, want 0.0", tier, got)
		}
	}
}

func TestAdjustedEndTime(t *testing.T) {
	t.Parallel()
	const twoHours = 7_200_000
	const clock = 3_600_000

	// Quick Forge only: 2h at 10.5% -> 6,444,000ms.
	if got := AdjustedEndTime(0, twoHours, 10.5, false, clock); got != 6_444_000 {
		t.Fatalf("percent only: got %d, want 6444000", got)
	}

	// Quick Forge plus clock: flat hour comes off the reduced duration.
	if got := AdjustedEndTime(0, twoHours, 10.5, true, clock); got != 2_844_000 {
		t.Fatalf("percent+clock: got %d, want 2844000", got)
	}

	// Flat subtraction floors at zero remaining, never before start.
	if got := AdjustedEndTime(1000, 600_000, 0, true, clock); got != 1000 {
		t.Fatalf("floor: got %d, want start 1000", got)
	}

	// Order matters: percent first, then flat. With both active on a short
	// item the result differs from flat-first math.
	got := AdjustedEndTime(0, 4_000_000, 25.0, true, clock)
	if got != 0 {
		// 4,000,000 * 0.75 = 3,000,000 < clock -> floored.
		t.Fatalf("percent-first ordering: got %d, want 0", got)
	}
}
