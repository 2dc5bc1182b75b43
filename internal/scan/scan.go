// Package scan evaluates a watchlist of upcoming catalysts concurrently.
package scan

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"catalyst-trader/internal/chain"
	"catalyst-trader/internal/logging"
	"catalyst-trader/internal/models"
	"catalyst-trader/internal/returns"
	"catalyst-trader/internal/volatility"
)

// WatchlistEntry is one row of a catalyst watchlist CSV.
type WatchlistEntry struct {
	Ticker      string  `csv:"ticker"`
	Spot        float64 `csv:"spot"`
	EventDate   string  `csv:"event_date"`
	Tier        string  `csv:"tier"`
	Probability float64 `csv:"probability"`
}

// LoadWatchlist reads watchlist entries from CSV.
func LoadWatchlist(r io.Reader) ([]WatchlistEntry, error) {
	var entries []WatchlistEntry
	if err := gocsv.Unmarshal(r, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist: %w", err)
	}
	return entries, nil
}

// Result is the evaluation of one watchlist entry.
type Result struct {
	Catalyst     models.Catalyst
	Spot         float64
	DaysUntil    int
	ImpliedVol   float64
	StraddleCost float64
	// BreakevenPct is the straddle cost as a percent of the underlying
	// notional, i.e. the move needed to break even at expiry.
	BreakevenPct float64
	OptimalEntry models.CatalystIntervalReturn
	Err          error
}

// Scanner prices watchlist entries across a bounded pool of workers.
type Scanner struct {
	riskFreeRate float64
	workers      int
	logger       zerolog.Logger
}

// NewScanner creates a scanner. If workers is 0, it defaults to
// runtime.NumCPU().
func NewScanner(riskFreeRate float64, workers int, logger zerolog.Logger) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{
		riskFreeRate: riskFreeRate,
		workers:      workers,
		logger:       logger,
	}
}

// Scan evaluates every entry and returns results sorted by days until the
// event, soonest first. Entries that fail validation carry their error in the
// result rather than aborting the scan.
func (s *Scanner) Scan(ctx context.Context, entries []WatchlistEntry, now time.Time) []Result {
	results := make([]Result, len(entries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					results[i] = s.evaluate(entries[i], now)
				}
			}
		}()
	}

	for i := range entries {
		select {
		case <-ctx.Done():
		case jobs <- i:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Err != nil || results[b].Err != nil {
			return results[b].Err != nil && results[a].Err == nil
		}
		return results[a].DaysUntil < results[b].DaysUntil
	})
	return results
}

func (s *Scanner) evaluate(entry WatchlistEntry, now time.Time) Result {
	logger := logging.WithTicker(s.logger, entry.Ticker)

	catalyst, err := entry.toCatalyst()
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping invalid watchlist entry")
		return Result{Catalyst: catalyst, Spot: entry.Spot, Err: err}
	}

	days := catalyst.DaysUntil(now)
	iv := volatility.Implied(catalyst.RiskTier, catalyst.ApprovalProbability, days)

	generator := chain.NewGenerator(s.riskFreeRate)
	optionChain := generator.Generate(catalyst.Ticker, entry.Spot, catalyst, now)

	result := Result{
		Catalyst:     catalyst,
		Spot:         entry.Spot,
		DaysUntil:    days,
		ImpliedVol:   iv,
		OptimalEntry: returns.OptimalEntry(catalyst.RiskTier, catalyst.ApprovalProbability),
	}

	straddle, err := chain.BuildStraddle(optionChain, 1)
	if err != nil {
		result.Err = err
		return result
	}
	result.StraddleCost = straddle.TotalCost
	result.BreakevenPct = straddle.TotalCost / (entry.Spot * models.ContractMultiplier) * 100
	return result
}

func (e WatchlistEntry) toCatalyst() (models.Catalyst, error) {
	if e.Ticker == "" {
		return models.Catalyst{}, fmt.Errorf("missing ticker")
	}
	if e.Spot <= 0 {
		return models.Catalyst{}, fmt.Errorf("%s: spot must be positive, got %.2f", e.Ticker, e.Spot)
	}
	eventDate, err := time.Parse("2006-01-02", e.EventDate)
	if err != nil {
		return models.Catalyst{}, fmt.Errorf("%s: invalid event date %q: %w", e.Ticker, e.EventDate, err)
	}
	tier, err := models.ParseRiskTier(e.Tier)
	if err != nil {
		return models.Catalyst{}, fmt.Errorf("%s: %w", e.Ticker, err)
	}
	if e.Probability < 0 || e.Probability > 1 {
		return models.Catalyst{}, fmt.Errorf("%s: probability %.2f out of range [0, 1]", e.Ticker, e.Probability)
	}
	return models.Catalyst{
		ID:                  fmt.Sprintf("%s-%s", e.Ticker, e.EventDate),
		Ticker:              e.Ticker,
		EventDate:           eventDate,
		RiskTier:            tier,
		ApprovalProbability: e.Probability,
	}, nil
}
