package domain

import "github.com/shopspring/decimal"

// Truncate cuts value down to the given number of fractional digits. It never
// rounds: Truncate(1.23456, 3) == 1.234.
func Truncate(value decimal.Decimal, places int32) decimal.Decimal {
	return value.Truncate(places)
}

// FormatTruncated renders value truncated to places fractional digits,
// zero-padded: FormatTruncated(1.2, 3) == "1.200", FormatTruncated(5, 0) == "5".
func FormatTruncated(value decimal.Decimal, places int32) string {
	if places <= 0 {
		return value.Truncate(0).StringFixed(0)
	}
	return value.Truncate(places).StringFixed(places)
}

// RateKey canonicalizes a percentage rate for map lookups. Rates compare
// equal when their 3dp-truncated values match.
func RateKey(rate decimal.Decimal) string {
	return rate.Truncate(3).StringFixed(3)
}
