// Package returns models expected pre-event return distributions at fixed
// look-back intervals before a catalyst. Everything here is a pure function of
// (tier, approval probability); pricing is deliberately kept out.
package returns

import "catalyst-trader/internal/models"

// z10 is the z-score for the 10th/90th percentile under a normal
// approximation.
const z10 = 1.28

// Profile returns the expected-return distribution for all six intervals,
// ordered furthest to nearest the event.
func Profile(tier models.RiskTier, approvalProbability float64) []models.CatalystIntervalReturn {
	table, ok := historicalTable[tier]
	if !ok {
		table = historicalTable[models.TierModerate]
	}

	// Lower approval odds carry a larger speculative-return premium.
	adjust := 1 + 0.4*(0.5-approvalProbability)

	out := make([]models.CatalystIntervalReturn, 0, len(Intervals))
	for _, iv := range Intervals {
		stats := table[iv.Tag]
		mean := stats.MeanPct * adjust
		median := stats.MedianPct * adjust
		sd := stats.StdDevPct * adjust

		out = append(out, models.CatalystIntervalReturn{
			Interval:           iv.Tag,
			DaysBeforeCatalyst: iv.Days,
			ExpectedReturnPct:  mean,
			MedianReturnPct:    median,
			StdDeviation:       sd,
			P10:                mean - z10*sd,
			P90:                mean + z10*sd,
			SampleSize:         stats.SampleSize,
			ConfidenceLevel:    confidenceLevel(stats.SampleSize),
		})
	}
	return out
}

// OptimalEntry returns the interval maximizing expected return per unit of
// risk. Ties resolve to the interval appearing first in the canonical
// furthest-to-nearest ordering.
func OptimalEntry(tier models.RiskTier, approvalProbability float64) models.CatalystIntervalReturn {
	profile := Profile(tier, approvalProbability)

	best := profile[0]
	bestRatio := sharpe(best)
	for _, r := range profile[1:] {
		if ratio := sharpe(r); ratio > bestRatio {
			best = r
			bestRatio = ratio
		}
	}
	return best
}

func sharpe(r models.CatalystIntervalReturn) float64 {
	if r.StdDeviation == 0 {
		return 0
	}
	return r.ExpectedReturnPct / r.StdDeviation
}

func confidenceLevel(sampleSize int) string {
	switch {
	case sampleSize >= 150:
		return "HIGH"
	case sampleSize >= 80:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
