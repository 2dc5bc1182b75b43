package models

import "time"

// Trade represents an executed simulated trade. Trades are append-only and
// immutable once recorded.
type Trade struct {
	ID            string
	Ticker        string
	Side          OrderSide
	Instrument    Instrument
	Quantity      int
	ExecutedPrice float64
	ExecutedAt    time.Time
	TotalValue    float64
	RealizedPnL   *float64
	RealizedPct   *float64
	Strategy      string
}

// Closed reports whether this trade closed a position and carries realized P&L.
func (t *Trade) Closed() bool {
	return t.RealizedPnL != nil
}

// LedgerState is the full serializable state of a ledger, consumed by the
// persistence layer and restored verbatim on restart.
type LedgerState struct {
	Account         PaperAccount
	Positions       map[string]Position
	OptionPositions map[string]OptionPosition
	Trades          []Trade
}
