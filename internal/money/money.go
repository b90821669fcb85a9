// Package money holds the decimal helpers shared by the installment and
// statement engines. Amounts are shopspring decimals with two fraction digits.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// Cents truncates d toward zero to whole cents.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(places)
}

// Round rounds d to whole cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// HasAtMostCents reports whether d has no more than two fraction digits.
func HasAtMostCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Truncate(0))
}

// Parse reads an amount written with either '.' or ',' as the decimal
// separator. Thousands separators are not accepted.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

type style struct {
	symbol   string
	thousand string
	decimal  string
	space    bool
}

var styles = map[string]style{
	"BRL": {symbol: "R$", thousand: ".", decimal: ",", space: true},
	"USD": {symbol: "$", thousand: ",", decimal: "."},
	"EUR": {symbol: "€", thousand: ".", decimal: ","},
}

// Format renders d rounded to cents for display in the given currency.
// Unknown currency codes are shown as "XYZ 1,234.56".
func Format(d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(currency)
	st, ok := styles[currency]
	if !ok {
		st = style{symbol: currency, thousand: ",", decimal: ".", space: true}
	}

	neg := d.IsNegative()
	fixed := Round(d.Abs()).StringFixed(places)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(st.symbol)
	if st.space {
		b.WriteByte(' ')
	}
	b.WriteString(group(intPart, st.thousand))
	b.WriteString(st.decimal)
	b.WriteString(frac)
	return b.String()
}

func group(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, sep)
}
