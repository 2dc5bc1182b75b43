// Package models provides domain models for the catalyst trading simulator.
package models

import (
	"time"
)

// OrderSide represents the side of a trade.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Instrument represents the kind of instrument a trade touched.
type Instrument string

const (
	InstrumentStock  Instrument = "STOCK"
	InstrumentOption Instrument = "OPTION"
)

// PaperAccount represents the simulated cash account.
type PaperAccount struct {
	AccountID       string
	Balance         float64
	StartingBalance float64
	CreatedAt       time.Time
	LastTradeDate   time.Time
}

// Position represents an open stock position.
type Position struct {
	Ticker            string
	Quantity          int
	AverageEntryPrice float64
	CurrentPrice      float64
	TotalCost         float64
	CurrentValue      float64
	UnrealizedPnL     float64
	UnrealizedPnLPct  float64
	CatalystID        string
}

// PortfolioMetrics is a derived snapshot of account performance.
type PortfolioMetrics struct {
	TotalValue   float64
	TotalGain    float64
	TotalGainPct float64
	WinRate      float64
	TotalTrades  int
	ClosedTrades int
	LargestWin   float64
	LargestLoss  float64
}
