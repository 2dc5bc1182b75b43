package models

import (
	"fmt"
	"strings"
	"time"
)

// RiskTier is the ordinal risk classification of a catalyst outcome, from
// lowest to highest uncertainty.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierElevated
	TierSpeculative
)

// String returns the display name of the tier.
func (t RiskTier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierModerate:
		return "MODERATE"
	case TierElevated:
		return "ELEVATED"
	case TierSpeculative:
		return "SPECULATIVE"
	default:
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
}

// ParseRiskTier parses a tier name, case-insensitively.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return TierLow, nil
	case "MODERATE":
		return TierModerate, nil
	case "ELEVATED":
		return TierElevated, nil
	case "SPECULATIVE":
		return TierSpeculative, nil
	default:
		return TierLow, fmt.Errorf("unknown risk tier: %q", s)
	}
}

// Catalyst represents a scheduled binary regulatory event for a ticker, as
// supplied by the catalyst record source.
type Catalyst struct {
	ID                  string
	Ticker              string
	EventDate           time.Time
	RiskTier            RiskTier
	ApprovalProbability float64
}

// DaysUntil returns the whole days remaining until the event from now.
func (c *Catalyst) DaysUntil(now time.Time) int {
	return int(c.EventDate.Sub(now).Hours() / 24)
}

// ReturnInterval tags one fixed pre-event look-back interval.
type ReturnInterval string

const (
	Interval60D ReturnInterval = "60D"
	Interval45D ReturnInterval = "45D"
	Interval30D ReturnInterval = "30D"
	Interval14D ReturnInterval = "14D"
	Interval7D  ReturnInterval = "7D"
	Interval1D  ReturnInterval = "1D"
)

// CatalystIntervalReturn is the expected-return distribution for one pre-event
// interval. Pure derived value, never persisted.
type CatalystIntervalReturn struct {
	Interval           ReturnInterval
	DaysBeforeCatalyst int
	ExpectedReturnPct  float64
	MedianReturnPct    float64
	StdDeviation       float64
	P10                float64
	P90                float64
	SampleSize         int
	ConfidenceLevel    string
}
