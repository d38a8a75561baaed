package costing

import "github.com/shopspring/decimal"

// Rounding scales for persisted and reported values
const (
	MoneyScale  int32 = 4
	RateScale   int32 = 6
	MarginScale int32 = 4
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds a monetary amount or unit count
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundRate rounds a cost-per-unit rate
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// Margin returns profit as a percentage of revenue, or zero when revenue is zero
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(MarginScale)
}
