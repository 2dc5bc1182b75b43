// Package volatility derives synthetic implied volatility from catalyst risk
// context and computes historical volatility from price series.
package volatility

import (
	"math"

	"github.com/montanaflynn/stats"

	"catalyst-trader/internal/models"
)

// Clamp bounds for the synthetic IV.
const (
	MinIV = 0.15
	MaxIV = 2.00
)

// BaseIV is the starting synthetic volatility before adjustments.
const BaseIV = 0.50

// NeutralIV is returned when no usable price history exists.
const NeutralIV = 0.50

// TradingDaysPerYear annualizes daily log returns.
const TradingDaysPerYear = 252

// tierOffsets shifts the base IV by catalyst risk tier. Empirical constants,
// lowest-uncertainty tier dampens, highest inflates.
var tierOffsets = map[models.RiskTier]float64{
	models.TierLow:         -0.08,
	models.TierModerate:    0.00,
	models.TierElevated:    0.07,
	models.TierSpeculative: 0.15,
}

// Implied returns the synthetic implied volatility for a catalyst context,
// clamped to [MinIV, MaxIV]. Deterministic for identical inputs.
func Implied(tier models.RiskTier, approvalProbability float64, daysUntilEvent int) float64 {
	iv := BaseIV

	if offset, ok := tierOffsets[tier]; ok {
		iv += offset
	}

	// Anticipation volatility rises as the binary event approaches.
	iv *= proximityMultiplier(daysUntilEvent)

	// Certainty dampener: the further the market is from a coin flip, the
	// less uncertainty is left to price.
	iv *= 1 - 0.2*math.Abs(approvalProbability-0.5)

	if iv < MinIV {
		iv = MinIV
	}
	if iv > MaxIV {
		iv = MaxIV
	}
	return iv
}

// proximityMultiplier is a step function of days remaining until the event.
func proximityMultiplier(days int) float64 {
	switch {
	case days <= 3:
		return 2.0
	case days <= 7:
		return 1.7
	case days <= 14:
		return 1.5
	case days <= 30:
		return 1.3
	case days <= 45:
		return 1.15
	default:
		return 1.0
	}
}

// Historical computes annualized volatility from a closing-price series via
// the standard deviation of consecutive log returns. Series shorter than two
// points return NeutralIV.
func Historical(prices []float64) float64 {
	if len(prices) < 2 {
		return NeutralIV
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) == 0 {
		return NeutralIV
	}

	sd, err := stats.StandardDeviationPopulation(stats.Float64Data(returns))
	if err != nil {
		return NeutralIV
	}
	return sd * math.Sqrt(TradingDaysPerYear)
}
