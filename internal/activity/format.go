package activity

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var fiatSymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

var fiatPrinter = message.NewPrinter(language.English)

// FormatFiat renders amount in currency with two decimals and grouping ("$1,234.50")
func FormatFiat(amount decimal.Decimal, currency string) string {
	code := strings.ToLower(currency)
	prefix, ok := fiatSymbols[code]
	if !ok {
		prefix = strings.ToUpper(code) + " "
	}

	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	whole, cents, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")
	return prefix + sign + groupThousands(whole) + "." + cents
}

// groupThousands inserts a comma every three digits of an unsigned integer string
func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return fiatPrinter.Sprintf("%d", n)
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
