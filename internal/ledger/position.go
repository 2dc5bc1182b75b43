package ledger

import "catalyst-trader/internal/models"

// applyBuy folds a fill into a stock position using weighted-average cost.
// A zero-value position is a fresh open.
func applyBuy(pos models.Position, ticker string, qty int, price float64, catalystID string) models.Position {
	cost := float64(qty) * price

	pos.Ticker = ticker
	pos.Quantity += qty
	pos.TotalCost += cost
	pos.AverageEntryPrice = pos.TotalCost / float64(pos.Quantity)
	if catalystID != "" {
		pos.CatalystID = catalystID
	}
	return markPosition(pos, price)
}

// applySell reduces a stock position by qty sold, shrinking cost basis
// proportionally. The average entry price is unaffected. Returns the updated
// position and the realized P&L of the sold shares.
func applySell(pos models.Position, qty int, price float64) (models.Position, float64) {
	realized := float64(qty) * (price - pos.AverageEntryPrice)

	pos.Quantity -= qty
	pos.TotalCost -= float64(qty) * pos.AverageEntryPrice
	if pos.Quantity == 0 {
		pos.TotalCost = 0
	}
	return markPosition(pos, price), realized
}

// markPosition recomputes the derived mark-to-market fields at price.
func markPosition(pos models.Position, price float64) models.Position {
	pos.CurrentPrice = price
	pos.CurrentValue = float64(pos.Quantity) * price
	pos.UnrealizedPnL = pos.CurrentValue - pos.TotalCost
	if pos.TotalCost > 0 {
		pos.UnrealizedPnLPct = pos.UnrealizedPnL / pos.TotalCost * 100
	} else {
		pos.UnrealizedPnLPct = 0
	}
	return pos
}

// markOptionPosition recomputes an option position's value from its legs'
// current premiums.
func markOptionPosition(pos models.OptionPosition) models.OptionPosition {
	var value float64
	for _, leg := range pos.Legs {
		legValue := leg.CurrentPremium * float64(leg.Contracts) * models.ContractMultiplier
		if leg.Side == models.OptionSideShort {
			legValue = -legValue
		}
		value += legValue
	}
	pos.CurrentValue = value
	pos.UnrealizedPnL = value - pos.TotalCost
	return pos
}

// legContracts sums the contract counts across legs.
func legContracts(legs []models.OptionLeg) int {
	var total int
	for _, leg := range legs {
		total += leg.Contracts
	}
	return total
}
