package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalyst-trader/internal/models"
)

func testCatalyst(now time.Time, days int) models.Catalyst {
	return models.Catalyst{
		ID:                  "cat-1",
		Ticker:              "ACME",
		EventDate:           now.AddDate(0, 0, days),
		RiskTier:            models.TierModerate,
		ApprovalProbability: 0.65,
	}
}

func TestStrikeIncrementBrackets(t *testing.T) {
	assert.Equal(t, 1.0, StrikeIncrement(8))
	assert.Equal(t, 1.0, StrikeIncrement(19.99))
	assert.Equal(t, 2.5, StrikeIncrement(20))
	assert.Equal(t, 2.5, StrikeIncrement(49.99))
	assert.Equal(t, 5.0, StrikeIncrement(50))
	assert.Equal(t, 5.0, StrikeIncrement(400))
}

func TestGenerateLadderShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)

	c := g.Generate("ACME", 50, testCatalyst(now, 30), now)

	require.NotEmpty(t, c.Calls)
	require.Equal(t, len(c.Calls), len(c.Puts))

	// Ladder spans roughly +/-30% of spot at the bracket increment, ascending.
	assert.Equal(t, 35.0, c.Calls[0].Strike)
	assert.Equal(t, 65.0, c.Calls[len(c.Calls)-1].Strike)
	for i := 1; i < len(c.Calls); i++ {
		assert.Equal(t, 5.0, c.Calls[i].Strike-c.Calls[i-1].Strike)
	}
	for i := range c.Calls {
		assert.Equal(t, c.Calls[i].Strike, c.Puts[i].Strike)
	}
}

func TestGenerateContractFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)

	c := g.Generate("ACME", 50, testCatalyst(now, 30), now)

	for i := range c.Calls {
		call, put := c.Calls[i], c.Puts[i]
		assert.Equal(t, models.OptionTypeCall, call.Type)
		assert.Equal(t, models.OptionTypePut, put.Type)
		assert.GreaterOrEqual(t, call.Premium, 0.01)
		assert.GreaterOrEqual(t, put.Premium, 0.01)
		assert.Equal(t, 30, call.DaysToExpiration)
		assert.Equal(t, call.ImpliedVolatility, put.ImpliedVolatility)
		assert.GreaterOrEqual(t, call.Greeks.Delta, 0.0)
		assert.LessOrEqual(t, put.Greeks.Delta, 0.0)
	}

	// ITM call premiums dominate OTM ones.
	assert.Greater(t, c.Calls[0].Premium, c.Calls[len(c.Calls)-1].Premium)
}

func TestGenerateDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)
	cat := testCatalyst(now, 21)

	a := g.Generate("ACME", 37.40, cat, now)
	b := g.Generate("ACME", 37.40, cat, now)
	assert.Equal(t, a, b)
}

func TestGenerateEventTodayUsesOneDayFloor(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)

	c := g.Generate("ACME", 50, testCatalyst(now, 0), now)
	require.NotEmpty(t, c.Calls)
	assert.Equal(t, 0, c.Calls[0].DaysToExpiration)
	// Pricing still uses a one-day floor: ATM premium is above intrinsic.
	atm := c.Calls[3]
	assert.Equal(t, 50.0, atm.Strike)
	assert.Greater(t, atm.Premium, 0.01)
}

func TestBuildStraddleNetCost(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)
	c := g.Generate("ACME", 50, testCatalyst(now, 30), now)

	pos, err := BuildStraddle(c, 2)
	require.NoError(t, err)

	require.Len(t, pos.Legs, 2)
	assert.Equal(t, StrategyLongStraddle, pos.Strategy)
	assert.Equal(t, 50.0, pos.Legs[0].Strike)
	assert.Equal(t, pos.Legs[0].Strike, pos.Legs[1].Strike)

	want := (pos.Legs[0].PremiumPerContract + pos.Legs[1].PremiumPerContract) * 2 * models.ContractMultiplier
	assert.InDelta(t, want, pos.TotalCost, 1e-9)
	assert.Equal(t, pos.TotalCost, pos.CurrentValue)
}

func TestBuildStrangleLegsAreOTM(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)
	c := g.Generate("ACME", 52, testCatalyst(now, 30), now)

	pos, err := BuildStrangle(c, 1)
	require.NoError(t, err)

	require.Len(t, pos.Legs, 2)
	call, put := pos.Legs[0], pos.Legs[1]
	assert.Equal(t, models.OptionTypeCall, call.Type)
	assert.Equal(t, models.OptionTypePut, put.Type)
	assert.Greater(t, call.Strike, 52.0)
	assert.Less(t, put.Strike, 52.0)
}

func TestBuildRejectsNonPositiveContracts(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(0.05)
	c := g.Generate("ACME", 50, testCatalyst(now, 30), now)

	_, err := BuildStraddle(c, 0)
	assert.Error(t, err)
	_, err = BuildStrangle(c, -1)
	assert.Error(t, err)
	_, err = BuildSingleLeg(c.Calls[0], 0)
	assert.Error(t, err)
}

func TestNetCostShortLegsCredit(t *testing.T) {
	legs := []models.OptionLeg{
		{Side: models.OptionSideLong, Contracts: 1, PremiumPerContract: 3.00},
		{Side: models.OptionSideShort, Contracts: 1, PremiumPerContract: 1.25},
	}
	assert.InDelta(t, (3.00-1.25)*models.ContractMultiplier, NetCost(legs), 1e-9)
}
