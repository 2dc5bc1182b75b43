// Package pricing provides closed-form Black-Scholes option pricing and Greeks.
//
// All functions are pure and safe for concurrent use. Degenerate inputs
// (zero time to expiry, zero volatility) resolve to defined closed-form
// fallbacks rather than errors; validating spot and strike is the caller's
// responsibility.
package pricing

import (
	"math"

	"catalyst-trader/internal/models"
)

// MinTick is the minimum premium a priced contract can carry.
const MinTick = 0.01

// Input holds the parameters for a single contract valuation.
type Input struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	RiskFreeRate float64
	Volatility   float64
	Type         models.OptionType
}

// Result is a theoretical price with its Greeks.
type Result struct {
	Price  float64
	Greeks models.OptionGreeks
}

// Price values an option contract under Black-Scholes.
//
// T <= 0 returns exact intrinsic value; sigma <= 0 with T > 0 returns
// discounted intrinsic value. Both degenerate branches carry limiting Greeks
// (delta 0 or +/-1 by moneyness, everything else 0). The regular branch floors
// the price at MinTick.
func Price(in Input) Result {
	if in.TimeToExpiry <= 0 {
		return intrinsicResult(in.Spot, in.Strike, in.Type)
	}
	if in.Volatility <= 0 {
		discounted := in.Strike * math.Exp(-in.RiskFreeRate*in.TimeToExpiry)
		return intrinsicResult(in.Spot, discounted, in.Type)
	}

	sqrtT := math.Sqrt(in.TimeToExpiry)
	d1 := (math.Log(in.Spot/in.Strike) + (in.RiskFreeRate+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry) / (in.Volatility * sqrtT)
	d2 := d1 - in.Volatility*sqrtT

	discount := math.Exp(-in.RiskFreeRate * in.TimeToExpiry)
	pdfD1 := NormPDF(d1)

	var price, delta, theta float64
	if in.Type == models.OptionTypeCall {
		price = in.Spot*NormCDF(d1) - in.Strike*discount*NormCDF(d2)
		delta = NormCDF(d1)
		theta = (-in.Spot*pdfD1*in.Volatility/(2*sqrtT) - in.RiskFreeRate*in.Strike*discount*NormCDF(d2)) / 365
	} else {
		price = in.Strike*discount*NormCDF(-d2) - in.Spot*NormCDF(-d1)
		delta = NormCDF(d1) - 1
		theta = (-in.Spot*pdfD1*in.Volatility/(2*sqrtT) + in.RiskFreeRate*in.Strike*discount*NormCDF(-d2)) / 365
	}

	if price < MinTick {
		price = MinTick
	}

	return Result{
		Price: price,
		Greeks: models.OptionGreeks{
			Delta: delta,
			Gamma: pdfD1 / (in.Spot * in.Volatility * sqrtT),
			Theta: theta,
			// Per 1-percentage-point change in volatility.
			Vega: in.Spot * pdfD1 * sqrtT / 100,
		},
	}
}

// intrinsicResult values a contract at (possibly discounted) intrinsic value
// with limiting Greeks.
func intrinsicResult(spot, strike float64, typ models.OptionType) Result {
	var price, delta float64
	if typ == models.OptionTypeCall {
		price = math.Max(spot-strike, 0)
		if spot > strike {
			delta = 1
		}
	} else {
		price = math.Max(strike-spot, 0)
		if spot < strike {
			delta = -1
		}
	}
	return Result{Price: price, Greeks: models.OptionGreeks{Delta: delta}}
}

// Abramowitz-Stegun 26.2.17 coefficients. Max absolute error 7.5e-8.
var asCoeff = [5]float64{0.319381530, -0.356563782, 1.781477937, -1.821255978, 1.330274429}

const asGamma = 0.2316419

// NormCDF evaluates the standard normal cumulative distribution function
// using the Abramowitz-Stegun rational approximation.
func NormCDF(x float64) float64 {
	if x < 0 {
		return 1 - NormCDF(-x)
	}
	t := 1 / (1 + asGamma*x)
	poly := t * (asCoeff[0] + t*(asCoeff[1]+t*(asCoeff[2]+t*(asCoeff[3]+t*asCoeff[4]))))
	return 1 - NormPDF(x)*poly
}

// NormPDF evaluates the standard normal probability density function.
func NormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
