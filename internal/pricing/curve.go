// Package pricing holds the pure cost curve of the market engine.
//
// All quantities are unsigned 64-bit micro units. The curve issues
//
//	shares = floor(amount * b / (b + q_outcome))
//
// so the effective price per share starts at 1 on an empty market and rises
// strictly with the quantity already issued for that outcome. Flooring rounds
// in the ledger's favor, and shares <= amount always holds, which is what
// keeps aggregate payouts within the collateral collected. All arithmetic is
// checked; nothing here touches floating point.
package pricing

import (
	"errors"
	"math/bits"

	"github.com/shopspring/decimal"

	"predictionmarket/internal/models"
)

var (
	ErrZeroLiquidity = errors.New("pricing: liquidity parameter is zero")
	ErrOverflow      = errors.New("pricing: fixed-point overflow")
)

// SharesOut computes the outcome shares issued for amountIn collateral
// against the current accumulators. Pure; no state.
func SharesOut(qYes, qNo, b uint64, outcome string, amountIn uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrZeroLiquidity
	}
	q := qNo
	if outcome == models.OutcomeYes {
		q = qYes
	}
	denom, carry := bits.Add64(b, q, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return mulDiv(amountIn, b, denom)
}

// mulDiv returns floor(a*m/div) using a 128-bit intermediate.
func mulDiv(a, m, div uint64) (uint64, error) {
	if div == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, m)
	if hi >= div {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, div)
	return quo, nil
}

// CheckedAdd guards accumulator updates.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

var half = decimal.New(5, -1)

// Probability is the read-side YES probability: the simple ratio of issued
// quantities, 0.5 for an empty market. Display-grade only; settlement math
// never consumes it.
func Probability(qYes, qNo uint64) decimal.Decimal {
	yes := decimal.NewFromUint64(qYes)
	total := yes.Add(decimal.NewFromUint64(qNo))
	if total.IsZero() {
		return half
	}
	return yes.Div(total).Round(6)
}

// Prices returns the YES/NO probability pair; the two always sum to 1.
func Prices(qYes, qNo uint64) (decimal.Decimal, decimal.Decimal) {
	yes := Probability(qYes, qNo)
	return yes, decimal.New(1, 0).Sub(yes)
}
