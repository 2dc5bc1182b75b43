package models

import "time"

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// OptionSide represents the side of an option leg.
type OptionSide string

const (
	OptionSideLong  OptionSide = "LONG"
	OptionSideShort OptionSide = "SHORT"
)

// ContractMultiplier is the number of shares one option contract controls.
const ContractMultiplier = 100

// OptionGreeks represents option price sensitivities.
type OptionGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// OptionContract represents a single priced option contract.
type OptionContract struct {
	Ticker            string
	Type              OptionType
	Strike            float64
	Expiration        time.Time
	Premium           float64
	ImpliedVolatility float64
	DaysToExpiration  int
	Greeks            OptionGreeks
}

// OptionsChain represents the priced call/put ladder for one expiration.
type OptionsChain struct {
	Ticker     string
	SpotPrice  float64
	Expiration time.Time
	Calls      []OptionContract
	Puts       []OptionContract
}

// OptionLeg represents one leg of an option position.
type OptionLeg struct {
	Type               OptionType
	Strike             float64
	Expiration         time.Time
	Side               OptionSide
	Contracts          int
	PremiumPerContract float64
	CurrentPremium     float64
	Greeks             OptionGreeks
}

// OptionPosition represents an open multi-leg option position.
type OptionPosition struct {
	ID            string
	Ticker        string
	Strategy      string
	Legs          []OptionLeg
	TotalCost     float64
	CurrentValue  float64
	UnrealizedPnL float64
}
