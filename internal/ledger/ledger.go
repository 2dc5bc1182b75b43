// Package ledger implements the paper-trading account: cash balance, stock
// positions, multi-leg option positions, immutable trade history and derived
// portfolio metrics.
//
// The ledger is the only stateful component of the simulator. Every public
// mutating operation is an atomic, serialized transaction behind one mutex:
// validation and mutation happen together, and a rejected operation leaves no
// partial state. The ledger never blocks on I/O; prices and catalyst context
// arrive as already-fetched values.
package ledger

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"catalyst-trader/internal/errors"
	"catalyst-trader/internal/logging"
	"catalyst-trader/internal/models"
	"catalyst-trader/internal/notify"
)

// Config holds ledger construction parameters.
type Config struct {
	AccountID       string
	StartingBalance float64
	Notifier        notify.Notifier
	Logger          zerolog.Logger
	// MoveThresholdPct fires a position alert when |unrealized P&L %|
	// crosses it. Zero disables position alerts.
	MoveThresholdPct float64
	// PortfolioStep fires a portfolio alert once per this dollar boundary
	// crossed by aggregate P&L. Zero disables portfolio alerts.
	PortfolioStep float64
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Ledger is the paper-trading account aggregate.
type Ledger struct {
	mu sync.Mutex

	account         models.PaperAccount
	positions       map[string]*models.Position
	optionPositions map[string]*models.OptionPosition
	trades          []models.Trade

	notifier         notify.Notifier
	logger           zerolog.Logger
	moveThresholdPct float64
	portfolioStep    float64
	clock            func() time.Time

	// Alert edge tracking.
	moveAlerted     map[string]bool
	portfolioBucket int64
}

// New creates a ledger with a fresh account.
func New(cfg Config) *Ledger {
	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = 100000
	}
	if cfg.AccountID == "" {
		cfg.AccountID = uuid.NewString()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Ledger{
		account: models.PaperAccount{
			AccountID:       cfg.AccountID,
			Balance:         cfg.StartingBalance,
			StartingBalance: cfg.StartingBalance,
			CreatedAt:       cfg.Clock(),
		},
		positions:        make(map[string]*models.Position),
		optionPositions:  make(map[string]*models.OptionPosition),
		notifier:         cfg.Notifier,
		logger:           cfg.Logger,
		moveThresholdPct: cfg.MoveThresholdPct,
		portfolioStep:    cfg.PortfolioStep,
		clock:            cfg.Clock,
		moveAlerted:      make(map[string]bool),
	}
}

// BuyStock executes a simulated stock purchase. The full cost must be covered
// by the cash balance; otherwise ErrInsufficientFunds is returned and nothing
// changes.
func (l *Ledger) BuyStock(ticker string, qty int, price float64, catalystID string) (models.Trade, error) {
	if err := validateStockOrder(ticker, qty, price); err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	trade, err := l.buyStockLocked(ticker, qty, price, catalystID)
	l.mu.Unlock()
	if err != nil {
		return models.Trade{}, err
	}
	l.afterTrade(trade)
	return trade, nil
}

func (l *Ledger) buyStockLocked(ticker string, qty int, price float64, catalystID string) (models.Trade, error) {
	cost := float64(qty) * price
	if cost > l.account.Balance {
		return models.Trade{}, errors.NewTradeError(ticker, "BUY", "cost exceeds balance", errors.ErrInsufficientFunds)
	}

	l.account.Balance -= cost

	pos := models.Position{}
	if existing, ok := l.positions[ticker]; ok {
		pos = *existing
	}
	pos = applyBuy(pos, ticker, qty, price, catalystID)
	l.positions[ticker] = &pos

	trade := l.appendTrade(models.Trade{
		Ticker:        ticker,
		Side:          models.OrderSideBuy,
		Instrument:    models.InstrumentStock,
		Quantity:      qty,
		ExecutedPrice: price,
		TotalValue:    cost,
	})
	return trade, nil
}

// SellStock executes a simulated stock sale. Selling more than the held
// quantity returns ErrInsufficientShares and changes nothing. Selling the
// whole position removes it.
func (l *Ledger) SellStock(ticker string, qty int, price float64) (models.Trade, error) {
	if err := validateStockOrder(ticker, qty, price); err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	trade, err := l.sellStockLocked(ticker, qty, price)
	l.mu.Unlock()
	if err != nil {
		return models.Trade{}, err
	}
	l.afterTrade(trade)
	return trade, nil
}

func (l *Ledger) sellStockLocked(ticker string, qty int, price float64) (models.Trade, error) {
	existing, ok := l.positions[ticker]
	if !ok {
		return models.Trade{}, errors.NewTradeError(ticker, "SELL", "no open position", errors.ErrInsufficientShares)
	}
	if qty > existing.Quantity {
		return models.Trade{}, errors.NewTradeError(ticker, "SELL", "quantity exceeds held shares", errors.ErrInsufficientShares)
	}

	proceeds := float64(qty) * price
	costBasis := float64(qty) * existing.AverageEntryPrice

	updated, realized := applySell(*existing, qty, price)
	l.account.Balance += proceeds
	if updated.Quantity == 0 {
		delete(l.positions, ticker)
		delete(l.moveAlerted, ticker)
	} else {
		l.positions[ticker] = &updated
	}

	realizedPct := 0.0
	if costBasis > 0 {
		realizedPct = realized / costBasis * 100
	}
	trade := l.appendTrade(models.Trade{
		Ticker:        ticker,
		Side:          models.OrderSideSell,
		Instrument:    models.InstrumentStock,
		Quantity:      qty,
		ExecutedPrice: price,
		TotalValue:    proceeds,
		RealizedPnL:   &realized,
		RealizedPct:   &realizedPct,
	})
	return trade, nil
}

// BuyOption opens a fully-formed multi-leg option position atomically: either
// the whole position is recorded or none of it. The position's TotalCost is
// the net debit across legs with the contract multiplier already applied.
func (l *Ledger) BuyOption(pos models.OptionPosition) (models.Trade, error) {
	if err := validateOptionPosition(pos); err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	trade, err := l.buyOptionLocked(pos)
	l.mu.Unlock()
	if err != nil {
		return models.Trade{}, err
	}
	l.afterTrade(trade)
	return trade, nil
}

func (l *Ledger) buyOptionLocked(pos models.OptionPosition) (models.Trade, error) {
	if pos.TotalCost > l.account.Balance {
		return models.Trade{}, errors.NewTradeError(pos.Ticker, "BUY", "net cost exceeds balance", errors.ErrInsufficientFunds)
	}
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}
	if _, exists := l.optionPositions[pos.ID]; exists {
		return models.Trade{}, errors.NewTradeError(pos.Ticker, "BUY", "option position id already open", errors.ErrDuplicatePosition)
	}

	l.account.Balance -= pos.TotalCost
	stored := markOptionPosition(pos)
	l.optionPositions[pos.ID] = &stored

	qty := legContracts(pos.Legs)
	trade := l.appendTrade(models.Trade{
		Ticker:        pos.Ticker,
		Side:          models.OrderSideBuy,
		Instrument:    models.InstrumentOption,
		Quantity:      qty,
		ExecutedPrice: perContractPrice(pos.TotalCost, qty),
		TotalValue:    pos.TotalCost,
		Strategy:      pos.Strategy,
	})
	return trade, nil
}

// SellOption closes an open option position at the supplied mark value,
// crediting the proceeds and realizing the P&L against the position's cost.
func (l *Ledger) SellOption(id string, currentMarkValue float64) (models.Trade, error) {
	l.mu.Lock()
	trade, err := l.sellOptionLocked(id, currentMarkValue)
	l.mu.Unlock()
	if err != nil {
		return models.Trade{}, err
	}
	l.afterTrade(trade)
	return trade, nil
}

func (l *Ledger) sellOptionLocked(id string, currentMarkValue float64) (models.Trade, error) {
	pos, ok := l.optionPositions[id]
	if !ok {
		return models.Trade{}, errors.NewTradeError(id, "SELL", "unknown option position", errors.ErrPositionNotFound)
	}

	realized := currentMarkValue - pos.TotalCost
	realizedPct := 0.0
	if pos.TotalCost != 0 {
		realizedPct = realized / math.Abs(pos.TotalCost) * 100
	}

	l.account.Balance += currentMarkValue
	delete(l.optionPositions, id)

	qty := legContracts(pos.Legs)
	trade := l.appendTrade(models.Trade{
		Ticker:        pos.Ticker,
		Side:          models.OrderSideSell,
		Instrument:    models.InstrumentOption,
		Quantity:      qty,
		ExecutedPrice: perContractPrice(currentMarkValue, qty),
		TotalValue:    currentMarkValue,
		RealizedPnL:   &realized,
		RealizedPct:   &realizedPct,
		Strategy:      pos.Strategy,
	})
	return trade, nil
}

// UpdatePrices refreshes marks for every open stock position present in the
// snapshot. Tickers absent from the snapshot keep their previous marks. This
// never fails; alert dispatch errors are swallowed.
func (l *Ledger) UpdatePrices(prices map[string]float64) {
	l.mu.Lock()
	var events []notify.Event
	for ticker, pos := range l.positions {
		price, ok := prices[ticker]
		if !ok || price <= 0 {
			continue
		}
		updated := markPosition(*pos, price)
		l.positions[ticker] = &updated

		if e, fired := l.checkMoveAlert(updated); fired {
			events = append(events, e)
		}
	}

	if e, fired := l.checkPortfolioAlert(); fired {
		events = append(events, e)
	}
	l.mu.Unlock()

	// Alerts go out after the mutation boundary; a slow channel must not
	// serialize ledger operations behind it.
	for _, e := range events {
		logging.LogAlert(l.logger, string(e.Type), e.Ticker, e.Value)
		l.dispatch(e)
	}
}

// checkMoveAlert fires when a position's |P&L %| first crosses the move
// threshold, re-arming once it falls back under.
func (l *Ledger) checkMoveAlert(pos models.Position) (notify.Event, bool) {
	if l.moveThresholdPct <= 0 {
		return notify.Event{}, false
	}

	above := math.Abs(pos.UnrealizedPnLPct) >= l.moveThresholdPct
	wasAbove := l.moveAlerted[pos.Ticker]
	l.moveAlerted[pos.Ticker] = above

	if above && !wasAbove {
		return notify.PositionMoveEvent(pos), true
	}
	return notify.Event{}, false
}

// checkPortfolioAlert fires once per portfolio-step boundary crossed by
// aggregate P&L, regardless of how many boundaries one update jumps.
func (l *Ledger) checkPortfolioAlert() (notify.Event, bool) {
	if l.portfolioStep <= 0 {
		return notify.Event{}, false
	}

	totalPnL := l.totalValueLocked() - l.account.StartingBalance
	bucket := int64(totalPnL / l.portfolioStep)
	if bucket == l.portfolioBucket {
		return notify.Event{}, false
	}
	l.portfolioBucket = bucket
	return notify.PortfolioMoveEvent(totalPnL), true
}

// Metrics derives portfolio performance from current state. Pure read.
func (l *Ledger) Metrics() models.PortfolioMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := models.PortfolioMetrics{
		TotalValue:  l.totalValueLocked(),
		TotalTrades: len(l.trades),
	}
	m.TotalGain = m.TotalValue - l.account.StartingBalance
	if l.account.StartingBalance > 0 {
		m.TotalGainPct = m.TotalGain / l.account.StartingBalance * 100
	}

	var wins int
	for _, t := range l.trades {
		if !t.Closed() {
			continue
		}
		m.ClosedTrades++
		pnl := *t.RealizedPnL
		if pnl > 0 {
			wins++
			if pnl > m.LargestWin {
				m.LargestWin = pnl
			}
		}
		if pnl < m.LargestLoss {
			m.LargestLoss = pnl
		}
	}
	if m.ClosedTrades > 0 {
		m.WinRate = float64(wins) / float64(m.ClosedTrades)
	}
	return m
}

// Account returns a copy of the paper account.
func (l *Ledger) Account() models.PaperAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account
}

// Positions returns the open stock positions sorted by ticker.
func (l *Ledger) Positions() []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Position returns the open position for ticker, if any.
func (l *Ledger) Position(ticker string) (models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[ticker]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// OptionPositions returns the open option positions sorted by id.
func (l *Ledger) OptionPositions() []models.OptionPosition {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.OptionPosition, 0, len(l.optionPositions))
	for _, pos := range l.optionPositions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TradeHistory returns all trades ordered most recent first.
func (l *Ledger) TradeHistory() []models.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Trade, len(l.trades))
	for i, t := range l.trades {
		out[len(l.trades)-1-i] = t
	}
	return out
}

// Snapshot exports the full ledger state for the persistence layer.
func (l *Ledger) Snapshot() models.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := models.LedgerState{
		Account:         l.account,
		Positions:       make(map[string]models.Position, len(l.positions)),
		OptionPositions: make(map[string]models.OptionPosition, len(l.optionPositions)),
		Trades:          append([]models.Trade(nil), l.trades...),
	}
	for ticker, pos := range l.positions {
		state.Positions[ticker] = *pos
	}
	for id, pos := range l.optionPositions {
		state.OptionPositions[id] = *pos
	}
	return state
}

// Restore replaces the ledger state with a previously exported snapshot.
func (l *Ledger) Restore(state models.LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.account = state.Account
	l.positions = make(map[string]*models.Position, len(state.Positions))
	for ticker := range state.Positions {
		pos := state.Positions[ticker]
		l.positions[ticker] = &pos
	}
	l.optionPositions = make(map[string]*models.OptionPosition, len(state.OptionPositions))
	for id := range state.OptionPositions {
		pos := state.OptionPositions[id]
		l.optionPositions[id] = &pos
	}
	l.trades = append([]models.Trade(nil), state.Trades...)
	l.moveAlerted = make(map[string]bool)
	if l.portfolioStep > 0 {
		l.portfolioBucket = int64((l.totalValueLocked() - l.account.StartingBalance) / l.portfolioStep)
	}
}

// totalValueLocked computes cash + stock marks + option marks. Callers hold
// the mutex.
func (l *Ledger) totalValueLocked() float64 {
	total := l.account.Balance
	for _, pos := range l.positions {
		total += pos.CurrentValue
	}
	for _, pos := range l.optionPositions {
		total += pos.CurrentValue
	}
	return total
}

func (l *Ledger) appendTrade(trade models.Trade) models.Trade {
	trade.ID = uuid.NewString()
	trade.ExecutedAt = l.clock()
	l.trades = append(l.trades, trade)
	l.account.LastTradeDate = trade.ExecutedAt
	return trade
}

// dispatch sends a notification, swallowing any failure. Collaborator errors
// must never surface as trade failures.
func (l *Ledger) dispatch(e notify.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn().Interface("panic", r).Msg("notifier panicked")
		}
	}()
	if err := l.notifier.Notify(context.Background(), e); err != nil {
		l.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("notification failed")
	}
}

// afterTrade reports an executed trade. Runs outside the mutation boundary so
// a slow notification channel cannot serialize ledger operations.
func (l *Ledger) afterTrade(trade models.Trade) {
	logging.LogTrade(l.logger, trade.Ticker, string(trade.Side), string(trade.Instrument),
		trade.Quantity, trade.ExecutedPrice)
	l.dispatch(notify.TradeEvent(trade))
}

func validateStockOrder(ticker string, qty int, price float64) error {
	if ticker == "" {
		return errors.NewValidationError("ticker", ticker, "must not be empty")
	}
	if qty <= 0 {
		return errors.NewValidationError("quantity", qty, "must be positive")
	}
	if price <= 0 {
		return errors.NewValidationError("price", price, "must be positive")
	}
	return nil
}

func validateOptionPosition(pos models.OptionPosition) error {
	if pos.Ticker == "" {
		return errors.NewValidationError("ticker", pos.Ticker, "must not be empty")
	}
	if len(pos.Legs) == 0 {
		return errors.NewValidationError("legs", len(pos.Legs), "must not be empty")
	}
	for _, leg := range pos.Legs {
		if leg.Contracts <= 0 {
			return errors.NewValidationError("legs.contracts", leg.Contracts, "must be positive")
		}
		if leg.Type != models.OptionTypeCall && leg.Type != models.OptionTypePut {
			return errors.NewValidationError("legs.type", string(leg.Type), "unknown option type")
		}
		if leg.Side != models.OptionSideLong && leg.Side != models.OptionSideShort {
			return errors.NewValidationError("legs.side", string(leg.Side), "unknown leg side")
		}
	}
	return nil
}

func perContractPrice(total float64, contracts int) float64 {
	if contracts <= 0 {
		return 0
	}
	return total / (float64(contracts) * models.ContractMultiplier)
}
