package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	traderrors "catalyst-trader/internal/errors"
	"catalyst-trader/internal/models"
	"catalyst-trader/internal/notify"
)

func newTestLedger(opts ...func(*Config)) *Ledger {
	cfg := Config{
		AccountID:       "test-account",
		StartingBalance: 100000,
		Logger:          zerolog.Nop(),
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// recordingNotifier captures dispatched events.
type recordingNotifier struct {
	events []notify.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func straddleFixture(id string, cost float64) models.OptionPosition {
	half := cost / 2 / models.ContractMultiplier
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return models.OptionPosition{
		ID:       id,
		Ticker:   "ACME",
		Strategy: "LONG_STRADDLE",
		Legs: []models.OptionLeg{
			{Type: models.OptionTypeCall, Strike: 50, Expiration: exp, Side: models.OptionSideLong, Contracts: 1, PremiumPerContract: half, CurrentPremium: half},
			{Type: models.OptionTypePut, Strike: 50, Expiration: exp, Side: models.OptionSideLong, Contracts: 1, PremiumPerContract: half, CurrentPremium: half},
		},
		TotalCost: cost,
	}
}

func TestBuyStockOpensPosition(t *testing.T) {
	l := newTestLedger()

	trade, err := l.BuyStock("ACME", 100, 50, "cat-1")
	require.NoError(t, err)

	assert.Equal(t, models.OrderSideBuy, trade.Side)
	assert.Equal(t, models.InstrumentStock, trade.Instrument)
	assert.Equal(t, 5000.0, trade.TotalValue)
	assert.False(t, trade.Closed())

	assert.Equal(t, 95000.0, l.Account().Balance)

	pos, ok := l.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, 100, pos.Quantity)
	assert.Equal(t, 50.0, pos.AverageEntryPrice)
	assert.Equal(t, 5000.0, pos.TotalCost)
	assert.Equal(t, 5000.0, pos.CurrentValue)
	assert.Zero(t, pos.UnrealizedPnL)
	assert.Equal(t, "cat-1", pos.CatalystID)
}

func TestBuyStockWeightedAverage(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)
	_, err = l.BuyStock("ACME", 100, 60, "")
	require.NoError(t, err)

	pos, ok := l.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, 200, pos.Quantity)
	assert.Equal(t, 55.0, pos.AverageEntryPrice)
	assert.Equal(t, 11000.0, pos.TotalCost)
	// Marked at the last trade price.
	assert.Equal(t, 60.0, pos.CurrentPrice)
	assert.Equal(t, 12000.0, pos.CurrentValue)
	assert.Equal(t, 1000.0, pos.UnrealizedPnL)
}

func TestBuyStockInsufficientFunds(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 3000, 50, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrInsufficientFunds))

	// No partial effect.
	assert.Equal(t, 100000.0, l.Account().Balance)
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.TradeHistory())
}

func TestBuyStockValidation(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("", 10, 50, "")
	assert.Error(t, err)
	_, err = l.BuyStock("ACME", 0, 50, "")
	assert.Error(t, err)
	_, err = l.BuyStock("ACME", 10, -1, "")
	assert.Error(t, err)

	var verr *traderrors.ValidationError
	_, err = l.BuyStock("ACME", -5, 50, "")
	assert.True(t, errors.As(err, &verr))

	assert.Equal(t, 100000.0, l.Account().Balance)
	assert.Empty(t, l.TradeHistory())
}

func TestSellStockRoundTrip(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)

	trade, err := l.SellStock("ACME", 100, 50)
	require.NoError(t, err)

	// Buying then immediately selling at the same price is a wash.
	assert.Equal(t, 100000.0, l.Account().Balance)
	require.True(t, trade.Closed())
	assert.Zero(t, *trade.RealizedPnL)
	assert.Zero(t, *trade.RealizedPct)

	_, ok := l.Position("ACME")
	assert.False(t, ok, "fully sold position is removed")
}

func TestSellStockPartial(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)

	trade, err := l.SellStock("ACME", 40, 55)
	require.NoError(t, err)

	require.True(t, trade.Closed())
	assert.InDelta(t, 200.0, *trade.RealizedPnL, 1e-9)
	assert.InDelta(t, 10.0, *trade.RealizedPct, 1e-9)

	pos, ok := l.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, 60, pos.Quantity)
	// Sells never move the average entry price; cost shrinks proportionally.
	assert.Equal(t, 50.0, pos.AverageEntryPrice)
	assert.InDelta(t, 3000.0, pos.TotalCost, 1e-9)
}

func TestSellStockOversellRejected(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)
	balance := l.Account().Balance

	_, err = l.SellStock("ACME", 101, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrInsufficientShares))

	assert.Equal(t, balance, l.Account().Balance)
	pos, _ := l.Position("ACME")
	assert.Equal(t, 100, pos.Quantity)
	assert.Len(t, l.TradeHistory(), 1)
}

func TestSellStockUnknownTicker(t *testing.T) {
	l := newTestLedger()

	_, err := l.SellStock("NOPE", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrInsufficientShares))
}

func TestBuyOptionAtomic(t *testing.T) {
	l := newTestLedger()

	pos := straddleFixture("opt-1", 700)
	trade, err := l.BuyOption(pos)
	require.NoError(t, err)

	assert.Equal(t, models.InstrumentOption, trade.Instrument)
	assert.Equal(t, 2, trade.Quantity, "aggregate trade sums all legs' contracts")
	assert.Equal(t, 700.0, trade.TotalValue)
	assert.InDelta(t, 3.5, trade.ExecutedPrice, 1e-9)

	assert.Equal(t, 99300.0, l.Account().Balance)
	require.Len(t, l.OptionPositions(), 1)
	assert.Equal(t, 700.0, l.OptionPositions()[0].CurrentValue)
}

func TestBuyOptionInsufficientFunds(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyOption(straddleFixture("opt-1", 200000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrInsufficientFunds))

	assert.Equal(t, 100000.0, l.Account().Balance)
	assert.Empty(t, l.OptionPositions())
	assert.Empty(t, l.TradeHistory())
}

func TestBuyOptionValidation(t *testing.T) {
	l := newTestLedger()

	pos := straddleFixture("opt-1", 700)
	pos.Legs = nil
	_, err := l.BuyOption(pos)
	assert.Error(t, err)

	pos = straddleFixture("opt-2", 700)
	pos.Legs[0].Contracts = 0
	_, err = l.BuyOption(pos)
	assert.Error(t, err)

	pos = straddleFixture("opt-3", 700)
	pos.Legs[0].Side = "INVALID"
	_, err = l.BuyOption(pos)
	assert.Error(t, err)

	assert.Empty(t, l.OptionPositions())
}

func TestBuyOptionDuplicateID(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyOption(straddleFixture("opt-1", 700))
	require.NoError(t, err)
	_, err = l.BuyOption(straddleFixture("opt-1", 700))
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrDuplicatePosition))
	assert.Len(t, l.OptionPositions(), 1)
}

func TestSellOptionRealizesPnL(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyOption(straddleFixture("opt-1", 700))
	require.NoError(t, err)

	trade, err := l.SellOption("opt-1", 1050)
	require.NoError(t, err)

	require.True(t, trade.Closed())
	assert.InDelta(t, 350.0, *trade.RealizedPnL, 1e-9)
	assert.InDelta(t, 50.0, *trade.RealizedPct, 1e-9)

	assert.Equal(t, 100350.0, l.Account().Balance)
	assert.Empty(t, l.OptionPositions())
}

func TestSellOptionUnknownID(t *testing.T) {
	l := newTestLedger()

	_, err := l.SellOption("missing", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, traderrors.ErrPositionNotFound))
}

func TestUpdatePricesRefreshesMarks(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)
	_, err = l.BuyStock("BETA", 10, 20, "")
	require.NoError(t, err)

	l.UpdatePrices(map[string]float64{"ACME": 56, "GHOST": 12})

	acme, _ := l.Position("ACME")
	assert.Equal(t, 56.0, acme.CurrentPrice)
	assert.Equal(t, 5600.0, acme.CurrentValue)
	assert.InDelta(t, 600.0, acme.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 12.0, acme.UnrealizedPnLPct, 1e-9)

	// Tickers absent from the snapshot keep their previous marks.
	beta, _ := l.Position("BETA")
	assert.Equal(t, 20.0, beta.CurrentPrice)
}

func TestUpdatePricesIgnoresNonPositive(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)

	l.UpdatePrices(map[string]float64{"ACME": 0})
	pos, _ := l.Position("ACME")
	assert.Equal(t, 50.0, pos.CurrentPrice)
}

func TestNotifierFailureDoesNotFailTrade(t *testing.T) {
	n := &recordingNotifier{err: errors.New("sink down")}
	l := newTestLedger(func(cfg *Config) { cfg.Notifier = n })

	_, err := l.BuyStock("ACME", 10, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 99500.0, l.Account().Balance)
	require.Len(t, n.events, 1)
	assert.Equal(t, notify.EventTrade, n.events[0].Type)
}

func TestMoveAlertFiresOncePerCrossing(t *testing.T) {
	n := &recordingNotifier{}
	l := newTestLedger(func(cfg *Config) {
		cfg.Notifier = n
		cfg.MoveThresholdPct = 10
	})

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)
	n.events = nil

	l.UpdatePrices(map[string]float64{"ACME": 56}) // +12%, crosses
	l.UpdatePrices(map[string]float64{"ACME": 57}) // still above, no refire
	l.UpdatePrices(map[string]float64{"ACME": 51}) // back under, re-arms
	l.UpdatePrices(map[string]float64{"ACME": 44}) // -12%, crosses again

	var moves int
	for _, e := range n.events {
		if e.Type == notify.EventPositionMove {
			moves++
		}
	}
	assert.Equal(t, 2, moves)
}

func TestPortfolioAlertFiresPerBoundary(t *testing.T) {
	n := &recordingNotifier{}
	l := newTestLedger(func(cfg *Config) {
		cfg.Notifier = n
		cfg.PortfolioStep = 1000
	})

	_, err := l.BuyStock("ACME", 1000, 50, "")
	require.NoError(t, err)
	n.events = nil

	l.UpdatePrices(map[string]float64{"ACME": 50.5}) // +500, same bucket
	l.UpdatePrices(map[string]float64{"ACME": 51.5}) // +1500, crosses 1k
	l.UpdatePrices(map[string]float64{"ACME": 51.6}) // +1600, same bucket
	l.UpdatePrices(map[string]float64{"ACME": 55})   // +5000, jumps several boundaries

	var portfolio int
	for _, e := range n.events {
		if e.Type == notify.EventPortfolioMove {
			portfolio++
		}
	}
	assert.Equal(t, 2, portfolio)
}

func TestMetrics(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)
	_, err = l.SellStock("ACME", 100, 60) // +1000 win
	require.NoError(t, err)
	_, err = l.BuyStock("BETA", 100, 40, "")
	require.NoError(t, err)
	_, err = l.SellStock("BETA", 100, 36) // -400 loss
	require.NoError(t, err)

	m := l.Metrics()
	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.ClosedTrades)
	assert.Equal(t, 0.5, m.WinRate)
	assert.Equal(t, 1000.0, m.LargestWin)
	assert.Equal(t, -400.0, m.LargestLoss)
	assert.InDelta(t, 100600.0, m.TotalValue, 1e-9)
	assert.InDelta(t, 600.0, m.TotalGain, 1e-9)
}

func TestMetricsEmptyAccount(t *testing.T) {
	l := newTestLedger()

	m := l.Metrics()
	assert.Equal(t, 100000.0, m.TotalValue)
	assert.Zero(t, m.TotalGain)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.LargestWin)
	assert.Zero(t, m.LargestLoss)
}

func TestTradeHistoryNewestFirst(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("AAA", 1, 10, "")
	require.NoError(t, err)
	_, err = l.BuyStock("BBB", 1, 10, "")
	require.NoError(t, err)
	_, err = l.BuyStock("CCC", 1, 10, "")
	require.NoError(t, err)

	history := l.TradeHistory()
	require.Len(t, history, 3)
	assert.Equal(t, "CCC", history[0].Ticker)
	assert.Equal(t, "AAA", history[2].Ticker)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l := newTestLedger()

	_, err := l.BuyStock("ACME", 100, 50, "cat-1")
	require.NoError(t, err)
	_, err = l.BuyOption(straddleFixture("opt-1", 700))
	require.NoError(t, err)
	_, err = l.SellStock("ACME", 40, 55)
	require.NoError(t, err)

	state := l.Snapshot()

	restored := newTestLedger()
	restored.Restore(state)

	assert.Equal(t, l.Account(), restored.Account())
	assert.Equal(t, l.Positions(), restored.Positions())
	assert.Equal(t, l.OptionPositions(), restored.OptionPositions())
	assert.Equal(t, l.TradeHistory(), restored.TradeHistory())
	assert.Equal(t, state, restored.Snapshot())
}

// syncBuffer guards writes so zerolog output can be read across goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTradesAndAlertsAreLogged(t *testing.T) {
	var buf syncBuffer
	l := newTestLedger(func(cfg *Config) {
		cfg.Logger = zerolog.New(&buf)
		cfg.MoveThresholdPct = 10
	})

	_, err := l.BuyStock("ACME", 100, 50, "")
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, `"event":"trade"`)
	assert.Contains(t, logged, `"ticker":"ACME"`)
	assert.Contains(t, logged, "Trade executed")

	l.UpdatePrices(map[string]float64{"ACME": 60})

	logged = buf.String()
	assert.Contains(t, logged, `"event":"alert"`)
	assert.Contains(t, logged, `"kind":"position_move"`)
	assert.Equal(t, 1, strings.Count(logged, "Alert triggered"))
}

// blockingNotifier parks every Notify call until released.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) Notify(_ context.Context, _ notify.Event) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestSlowNotifierDoesNotBlockLedger(t *testing.T) {
	blocker := &blockingNotifier{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	l := newTestLedger(func(cfg *Config) {
		cfg.Notifier = blocker
	})

	buyDone := make(chan struct{})
	go func() {
		_, err := l.BuyStock("ACME", 100, 50, "")
		assert.NoError(t, err)
		close(buyDone)
	}()
	<-blocker.entered // trade notification parked inside the notifier

	// The mutation boundary is already released: reads and further
	// mutations must proceed while the notification is still in flight.
	progress := make(chan models.PaperAccount, 1)
	go func() {
		l.UpdatePrices(map[string]float64{"ACME": 80})
		progress <- l.Account()
	}()

	select {
	case account := <-progress:
		assert.InDelta(t, 95000, account.Balance, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("ledger blocked behind a slow notifier")
	}

	close(blocker.release)
	select {
	case <-buyDone:
	case <-time.After(2 * time.Second):
		t.Fatal("buy never finished")
	}
}
