// Package currencyutils cleans the free-form amount cells of an expense export.
package currencyutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned when nothing numeric is left after cleaning.
var ErrEmptyAmount = errors.New("empty amount")

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// StandardizeAmount strips every character that is not an ASCII digit or a
// dot. Currency symbols, whitespace, signs and thousands commas all go.
//
// With decimalComma set the cell is read as "1.234,50": dots are dropped as
// thousands separators and the comma becomes the decimal point first.
func StandardizeAmount(amountStr string, decimalComma bool) string {
	if decimalComma {
		amountStr = strings.ReplaceAll(amountStr, ".", "")
		amountStr = strings.ReplaceAll(amountStr, ",", ".")
	}
	return nonNumeric.ReplaceAllString(amountStr, "")
}

// ParseAmount cleans a cell and parses it as a non-negative decimal.
func ParseAmount(amountStr string, decimalComma bool) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr, decimalComma)
	if standardized == "" || standardized == "." {
		return decimal.Zero, ErrEmptyAmount
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	return amount.Abs(), nil
}
