// Package chain builds synthetic priced option chains around a catalyst event.
package chain

import (
	"math"
	"time"

	"catalyst-trader/internal/models"
	"catalyst-trader/internal/pricing"
	"catalyst-trader/internal/volatility"
)

// Strike ladder spans roughly +/-30% of spot.
const strikeRange = 0.30

// Generator produces option chains for catalyst tickers. It holds no mutable
// state; identical inputs always produce identical chains.
type Generator struct {
	riskFreeRate float64
}

// NewGenerator creates a chain generator with the given risk-free rate.
func NewGenerator(riskFreeRate float64) *Generator {
	return &Generator{riskFreeRate: riskFreeRate}
}

// Generate builds the priced call/put ladder for a ticker ahead of its
// catalyst. The expiration is the catalyst event date and days-to-expiration
// are measured from now.
func (g *Generator) Generate(ticker string, spot float64, catalyst models.Catalyst, now time.Time) models.OptionsChain {
	days := catalyst.DaysUntil(now)
	if days < 0 {
		days = 0
	}
	iv := volatility.Implied(catalyst.RiskTier, catalyst.ApprovalProbability, days)
	timeToExpiry := float64(maxInt(days, 1)) / 365.0

	strikes := buildStrikes(spot)
	chain := models.OptionsChain{
		Ticker:     ticker,
		SpotPrice:  spot,
		Expiration: catalyst.EventDate,
		Calls:      make([]models.OptionContract, 0, len(strikes)),
		Puts:       make([]models.OptionContract, 0, len(strikes)),
	}

	for _, strike := range strikes {
		chain.Calls = append(chain.Calls, g.contract(ticker, models.OptionTypeCall, spot, strike, timeToExpiry, iv, catalyst.EventDate, days))
		chain.Puts = append(chain.Puts, g.contract(ticker, models.OptionTypePut, spot, strike, timeToExpiry, iv, catalyst.EventDate, days))
	}
	return chain
}

func (g *Generator) contract(ticker string, typ models.OptionType, spot, strike, timeToExpiry, iv float64, expiration time.Time, days int) models.OptionContract {
	res := pricing.Price(pricing.Input{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: timeToExpiry,
		RiskFreeRate: g.riskFreeRate,
		Volatility:   iv,
		Type:         typ,
	})
	return models.OptionContract{
		Ticker:            ticker,
		Type:              typ,
		Strike:            strike,
		Expiration:        expiration,
		Premium:           res.Price,
		ImpliedVolatility: iv,
		DaysToExpiration:  days,
		Greeks:            res.Greeks,
	}
}

// StrikeIncrement picks the ladder increment by spot-price bracket.
func StrikeIncrement(spot float64) float64 {
	switch {
	case spot < 20:
		return 1
	case spot < 50:
		return 2.5
	default:
		return 5
	}
}

// buildStrikes returns the ascending strike ladder around spot, each strike
// rounded to the increment.
func buildStrikes(spot float64) []float64 {
	inc := StrikeIncrement(spot)
	low := roundToIncrement(spot*(1-strikeRange), inc)
	high := roundToIncrement(spot*(1+strikeRange), inc)
	if low < inc {
		low = inc
	}

	var strikes []float64
	for s := low; s <= high+inc/2; s += inc {
		strikes = append(strikes, roundToIncrement(s, inc))
	}
	return strikes
}

func roundToIncrement(value, inc float64) float64 {
	return math.Round(value/inc) * inc
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
