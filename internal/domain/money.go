package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The admin front end reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineTotal is price*quantity minus the line discount.
func LineTotal(price decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
}

// SameMethod compares payment method labels case-insensitively.
func SameMethod(a string, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
