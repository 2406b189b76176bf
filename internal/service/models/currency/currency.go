package currency

import "github.com/shopspring/decimal"

// Symbol is the display symbol of the single currency orders are priced in.
const Symbol = "$"

// Format renders an amount with two decimals, e.g. "$11.50".
func Format(amount decimal.Decimal) string {
	return Symbol + amount.StringFixed(2)
}

// Cents rounds an amount to two decimals for comparisons.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
