package chain

import (
	"math"

	"github.com/google/uuid"

	"catalyst-trader/internal/errors"
	"catalyst-trader/internal/models"
)

// Strategy tags used on option positions.
const (
	StrategyLongCall     = "LONG_CALL"
	StrategyLongPut      = "LONG_PUT"
	StrategyLongStraddle = "LONG_STRADDLE"
	StrategyLongStrangle = "LONG_STRANGLE"
)

// BuildSingleLeg constructs a one-leg long option position from a chain
// contract.
func BuildSingleLeg(contract models.OptionContract, contracts int) (models.OptionPosition, error) {
	if contracts <= 0 {
		return models.OptionPosition{}, errors.NewValidationError("contracts", contracts, "must be positive")
	}

	strategy := StrategyLongCall
	if contract.Type == models.OptionTypePut {
		strategy = StrategyLongPut
	}

	legs := []models.OptionLeg{legFrom(contract, contracts)}
	return assemble(contract.Ticker, strategy, legs), nil
}

// BuildStraddle constructs a long straddle (call + put at the strike nearest
// spot) from a generated chain.
func BuildStraddle(c models.OptionsChain, contracts int) (models.OptionPosition, error) {
	if contracts <= 0 {
		return models.OptionPosition{}, errors.NewValidationError("contracts", contracts, "must be positive")
	}
	if len(c.Calls) == 0 || len(c.Puts) == 0 {
		return models.OptionPosition{}, errors.NewValidationError("chain", c.Ticker, "empty chain")
	}

	atm := nearestStrikeIndex(c.Calls, c.SpotPrice)
	legs := []models.OptionLeg{
		legFrom(c.Calls[atm], contracts),
		legFrom(c.Puts[atm], contracts),
	}
	return assemble(c.Ticker, StrategyLongStraddle, legs), nil
}

// BuildStrangle constructs a long strangle: the nearest OTM call above spot
// and the nearest OTM put below spot.
func BuildStrangle(c models.OptionsChain, contracts int) (models.OptionPosition, error) {
	if contracts <= 0 {
		return models.OptionPosition{}, errors.NewValidationError("contracts", contracts, "must be positive")
	}

	callIdx, putIdx := -1, -1
	for i, contract := range c.Calls {
		if contract.Strike > c.SpotPrice {
			callIdx = i
			break
		}
	}
	for i := len(c.Puts) - 1; i >= 0; i-- {
		if c.Puts[i].Strike < c.SpotPrice {
			putIdx = i
			break
		}
	}
	if callIdx < 0 || putIdx < 0 {
		return models.OptionPosition{}, errors.NewValidationError("chain", c.Ticker, "no OTM strikes around spot")
	}

	legs := []models.OptionLeg{
		legFrom(c.Calls[callIdx], contracts),
		legFrom(c.Puts[putIdx], contracts),
	}
	return assemble(c.Ticker, StrategyLongStrangle, legs), nil
}

// NetCost computes the net debit of a set of legs with the contract
// multiplier applied: long legs paid, short legs collected.
func NetCost(legs []models.OptionLeg) float64 {
	var cost float64
	for _, leg := range legs {
		legCost := leg.PremiumPerContract * float64(leg.Contracts) * models.ContractMultiplier
		if leg.Side == models.OptionSideShort {
			legCost = -legCost
		}
		cost += legCost
	}
	return cost
}

// MarkValue computes the current mark of a set of legs from their current
// premiums, multiplier applied.
func MarkValue(legs []models.OptionLeg) float64 {
	var value float64
	for _, leg := range legs {
		legValue := leg.CurrentPremium * float64(leg.Contracts) * models.ContractMultiplier
		if leg.Side == models.OptionSideShort {
			legValue = -legValue
		}
		value += legValue
	}
	return value
}

func legFrom(contract models.OptionContract, contracts int) models.OptionLeg {
	return models.OptionLeg{
		Type:               contract.Type,
		Strike:             contract.Strike,
		Expiration:         contract.Expiration,
		Side:               models.OptionSideLong,
		Contracts:          contracts,
		PremiumPerContract: contract.Premium,
		CurrentPremium:     contract.Premium,
		Greeks:             contract.Greeks,
	}
}

func assemble(ticker, strategy string, legs []models.OptionLeg) models.OptionPosition {
	cost := NetCost(legs)
	return models.OptionPosition{
		ID:           uuid.NewString(),
		Ticker:       ticker,
		Strategy:     strategy,
		Legs:         legs,
		TotalCost:    cost,
		CurrentValue: cost,
	}
}

func nearestStrikeIndex(contracts []models.OptionContract, spot float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range contracts {
		if d := math.Abs(c.Strike - spot); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
