package scan

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalyst-trader/internal/models"
)

var scanNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func entry(ticker string, spot float64, daysOut int, tier string, prob float64) WatchlistEntry {
	return WatchlistEntry{
		Ticker:      ticker,
		Spot:        spot,
		EventDate:   scanNow.AddDate(0, 0, daysOut).Format("2006-01-02"),
		Tier:        tier,
		Probability: prob,
	}
}

func TestLoadWatchlist(t *testing.T) {
	csv := strings.Join([]string{
		"ticker,spot,event_date,tier,probability",
		"ACME,50,2026-04-15,MODERATE,0.6",
		"BETA,18.5,2026-03-10,SPECULATIVE,0.35",
	}, "\n")

	entries, err := LoadWatchlist(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ACME", entries[0].Ticker)
	assert.InDelta(t, 18.5, entries[1].Spot, 1e-9)
	assert.Equal(t, "SPECULATIVE", entries[1].Tier)
}

func TestScanEvaluatesEntries(t *testing.T) {
	scanner := NewScanner(0.05, 2, zerolog.Nop())
	entries := []WatchlistEntry{
		entry("ACME", 50, 30, "MODERATE", 0.5),
		entry("BETA", 20, 5, "SPECULATIVE", 0.4),
	}

	results := scanner.Scan(context.Background(), entries, scanNow)
	require.Len(t, results, 2)

	// Sorted soonest-first.
	assert.Equal(t, "BETA", results[0].Catalyst.Ticker)
	assert.Equal(t, "ACME", results[1].Catalyst.Ticker)

	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Greater(t, r.StraddleCost, 0.0)
		assert.Greater(t, r.BreakevenPct, 0.0)
		assert.GreaterOrEqual(t, r.ImpliedVol, 0.15)
		assert.LessOrEqual(t, r.ImpliedVol, 2.0)
		assert.NotZero(t, r.OptimalEntry.DaysBeforeCatalyst)
	}

	// Closer event with a more uncertain tier prices richer vol.
	assert.Greater(t, results[0].ImpliedVol, results[1].ImpliedVol)
}

func TestScanInvalidEntriesSortLast(t *testing.T) {
	scanner := NewScanner(0.05, 1, zerolog.Nop())
	bad := WatchlistEntry{Ticker: "BAD", Spot: -1, EventDate: "2026-04-01", Tier: "LOW", Probability: 0.5}
	entries := []WatchlistEntry{bad, entry("ACME", 50, 10, "LOW", 0.5)}

	results := scanner.Scan(context.Background(), entries, scanNow)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "ACME", results[0].Catalyst.Ticker)
	assert.Error(t, results[1].Err)
}

func TestScanDeterministic(t *testing.T) {
	scanner := NewScanner(0.05, 4, zerolog.Nop())
	entries := []WatchlistEntry{
		entry("ACME", 50, 30, "MODERATE", 0.5),
		entry("BETA", 20, 5, "SPECULATIVE", 0.4),
		entry("GAMA", 120, 45, "LOW", 0.8),
	}

	first := scanner.Scan(context.Background(), entries, scanNow)
	second := scanner.Scan(context.Background(), entries, scanNow)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Catalyst.Ticker, second[i].Catalyst.Ticker)
		assert.InDelta(t, first[i].StraddleCost, second[i].StraddleCost, 1e-9)
		assert.InDelta(t, first[i].ImpliedVol, second[i].ImpliedVol, 1e-9)
	}
}

func TestScanCancelledContext(t *testing.T) {
	scanner := NewScanner(0.05, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := scanner.Scan(ctx, []WatchlistEntry{entry("ACME", 50, 30, "MODERATE", 0.5)}, scanNow)
	// Scan returns without hanging; unprocessed entries stay zero-valued.
	require.Len(t, results, 1)
}

func TestWatchlistEntryValidation(t *testing.T) {
	cases := []WatchlistEntry{
		{Ticker: "", Spot: 50, EventDate: "2026-04-01", Tier: "LOW", Probability: 0.5},
		{Ticker: "A", Spot: 0, EventDate: "2026-04-01", Tier: "LOW", Probability: 0.5},
		{Ticker: "A", Spot: 50, EventDate: "April 1", Tier: "LOW", Probability: 0.5},
		{Ticker: "A", Spot: 50, EventDate: "2026-04-01", Tier: "NOPE", Probability: 0.5},
		{Ticker: "A", Spot: 50, EventDate: "2026-04-01", Tier: "LOW", Probability: 1.5},
	}
	for _, c := range cases {
		_, err := c.toCatalyst()
		assert.Error(t, err, "entry: %+v", c)
	}

	catalyst, err := entry("ACME", 50, 30, "elevated", 0.7).toCatalyst()
	require.NoError(t, err)
	assert.Equal(t, models.TierElevated, catalyst.RiskTier)
}
