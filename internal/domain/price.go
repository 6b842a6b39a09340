package domain

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PricePlaces is the number of fraction digits prices are stored and shown with
const PricePlaces = 2

var pricePrinter = message.NewPrinter(language.BrazilianPortuguese)

// ParsePrice parses a price typed by an admin.
//
// Both "2.999,99" and "2999.99" are accepted: whichever of ',' and '.' appears
// rightmost is the decimal separator and every other separator is dropped as
// digit grouping. The result is rounded to two decimal places.
func ParsePrice(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if s == "" {
		return decimal.Zero, NewValidationError("price", "price is required")
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart := s, ""
	if i := strings.LastIndexAny(s, ",."); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)

	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return decimal.Zero, NewValidationError("price", "price must be a number")
	}

	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}

	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, NewValidationError("price", "price must be a number")
	}
	if negative && !price.IsZero() {
		return decimal.Zero, NewValidationError("price", "price must not be negative")
	}

	return price.Round(PricePlaces), nil
}

// FormatPrice renders a price with exactly two decimals in pt-BR notation,
// e.g. 2999.99 -> "2.999,99".
func FormatPrice(price decimal.Decimal) string {
	return pricePrinter.Sprintf("%.2f", price.Round(PricePlaces).InexactFloat64())
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
