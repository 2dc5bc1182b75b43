// Package notify provides fire-and-forget notification channels for trade and
// P&L events. The ledger swallows channel failures; nothing here may affect
// trade execution.
package notify

import (
	"context"
	"fmt"
	"time"

	"catalyst-trader/internal/models"
)

// EventType represents the type of notification event.
type EventType string

const (
	EventTrade         EventType = "trade"
	EventPositionMove  EventType = "position_move"
	EventPortfolioMove EventType = "portfolio_move"
)

// Event is a single notification payload.
type Event struct {
	Type      EventType
	Ticker    string
	Title     string
	Message   string
	Value     float64
	Timestamp time.Time
}

// Notifier is the sink the ledger reports to.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Channel is a named, toggleable notification backend.
type Channel interface {
	Notifier
	Name() string
	IsEnabled() bool
}

// TradeEvent builds the event for an executed trade.
func TradeEvent(trade models.Trade) Event {
	title := fmt.Sprintf("%s %s", trade.Side, trade.Ticker)
	msg := fmt.Sprintf("%s %d %s @ %.2f (%.2f total)",
		trade.Side, trade.Quantity, trade.Ticker, trade.ExecutedPrice, trade.TotalValue)
	if trade.Closed() {
		msg = fmt.Sprintf("%s, realized %+.2f", msg, *trade.RealizedPnL)
	}
	return Event{
		Type:      EventTrade,
		Ticker:    trade.Ticker,
		Title:     title,
		Message:   msg,
		Value:     trade.TotalValue,
		Timestamp: trade.ExecutedAt,
	}
}

// PositionMoveEvent builds the event for a position P&L threshold crossing.
func PositionMoveEvent(pos models.Position) Event {
	direction := "up"
	if pos.UnrealizedPnLPct < 0 {
		direction = "down"
	}
	return Event{
		Type:      EventPositionMove,
		Ticker:    pos.Ticker,
		Title:     fmt.Sprintf("%s moved %s", pos.Ticker, direction),
		Message:   fmt.Sprintf("%s is %+.1f%% (%+.2f unrealized)", pos.Ticker, pos.UnrealizedPnLPct, pos.UnrealizedPnL),
		Value:     pos.UnrealizedPnLPct,
		Timestamp: time.Now(),
	}
}

// PortfolioMoveEvent builds the event for an aggregate P&L boundary crossing.
func PortfolioMoveEvent(totalPnL float64) Event {
	direction := "gain"
	if totalPnL < 0 {
		direction = "loss"
	}
	return Event{
		Type:      EventPortfolioMove,
		Title:     fmt.Sprintf("Portfolio %s", direction),
		Message:   fmt.Sprintf("Aggregate P&L is %+.2f", totalPnL),
		Value:     totalPnL,
		Timestamp: time.Now(),
	}
}

// MultiNotifier fans an event out to every enabled channel, returning the
// first error after all channels have been attempted.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier creates a notifier over the given channels.
func NewMultiNotifier(channels ...Channel) *MultiNotifier {
	return &MultiNotifier{channels: channels}
}

// Notify sends the event to all enabled channels.
func (m *MultiNotifier) Notify(ctx context.Context, e Event) error {
	var firstErr error
	for _, ch := range m.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Notify(ctx, e); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		}
	}
	return firstErr
}

// Noop is a Notifier that discards everything.
type Noop struct{}

// Notify discards the event.
func (Noop) Notify(context.Context, Event) error { return nil }
