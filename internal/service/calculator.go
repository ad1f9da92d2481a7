package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// MaxSpreadBps is the exclusive upper bound for a spread; at 10000 bps the buy price reaches zero.
	MaxSpreadBps = 10000

	pricePlaces = 6
)

var bpsDivisor = decimal.NewFromInt(10000)

// Calculate applies a symmetric spread, in basis points, around mid and
// returns the sell and buy prices rounded half away from zero to 6 places.
func Calculate(mid, spreadBps float64) (sell, buy float64, err error) {
	if math.IsNaN(mid) || math.IsInf(mid, 0) || mid <= 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRate, mid)
	}
	if err := ValidateSpread(spreadBps); err != nil {
		return 0, 0, err
	}

	m := decimal.NewFromFloat(mid)
	spread := decimal.NewFromFloat(spreadBps).Div(bpsDivisor)
	one := decimal.NewFromInt(1)

	sell, _ = m.Mul(one.Add(spread)).Round(pricePlaces).Float64()
	buy, _ = m.Mul(one.Sub(spread)).Round(pricePlaces).Float64()
	return sell, buy, nil
}

// ValidateSpread checks that spreadBps is finite and in [0, MaxSpreadBps).
func ValidateSpread(spreadBps float64) error {
	if math.IsNaN(spreadBps) || math.IsInf(spreadBps, 0) || spreadBps < 0 || spreadBps >= MaxSpreadBps {
		return fmt.Errorf("%w: %v bps", ErrInvalidSpread, spreadBps)
	}
	return nil
}
