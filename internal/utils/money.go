package utils

import (
	"fmt"
	"strings"
)

var currencySymbols = map[string]string{
	"GBP": "£",
	"EUR": "€",
	"USD": "$",
}

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatPrice renders amount with the currency symbol when one is known,
// otherwise with the ISO code.
func FormatPrice(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if sym, ok := currencySymbols[code]; ok {
		return sign + sym + FormatMoney(amount)
	}
	if code == "" {
		return sign + FormatMoney(amount)
	}
	return sign + code + " " + FormatMoney(amount)
}

// RoundPrice rounds to whole pence/cents.
func RoundPrice(amount float64) float64 {
	if amount < 0 {
		return -RoundPrice(-amount)
	}
	return float64(int64(amount*100+0.5)) / 100
}
