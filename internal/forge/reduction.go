// Package forge holds the pure forge-time math: the Quick Forge perk
// reduction table and the adjusted end-time calculation, plus the static
// item catalog.
package forge

// TierAbsent marks a missing Quick Forge perk level in API data.
const TierAbsent = -1

// Quick Forge reduction percentages for tiers 1..19. Tier 20 and above
// caps at MaxReduction.
var tierPercentages = [19]float64{
	10.5, 11.0, 11.5, 12.0, 12.5, 13.0, 13.5, 14.0, 14.5, 15.0,
	15.5, 16.0, 16.5, 17.0, 17.5, 18.0, 18.5, 19.0, 19.5,
}

const MaxReduction = 30.0

// QuickForgeReduction maps a perk tier to its duration reduction percent.
// Absent (<1) tiers reduce nothing; tier 20+ caps at MaxReduction.
func QuickForgeReduction(tier int) float64 {
	if tier < 1 {
		return 0.0
	}
	if tier >= 20 {
		return MaxReduction
	}
	return tierPercentages[tier-1]
}

// AdjustedEndTime computes when an item finishes under both buffs.
//
// The percent reduction applies to the base duration first; the flat clock
// amount is then subtracted from the reduced duration, floored at zero so
// the end time never precedes the start time. The order matters: applying
// the flat amount before the percent changes the result.
func AdjustedEndTime(startMS, baseDurationMS int64, reductionPct float64, clockActive bool, clockMS int64) int64 {
	effective := float64(baseDurationMS) * (1 - reductionPct/100)
	if clockActive {
		effective -= float64(clockMS)
		if effective < 0 {
			effective = 0
		}
	}
	return startMS + int64(effective)
}
