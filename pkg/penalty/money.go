package penalty

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Conversion bounds
var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

func newPrinter() (printer *message.Printer) {
	printer = message.NewPrinter(language.English)
	return printer
}

// usd formats whole dollars with grouping, e.g. $1,182,251.
func usd(printer *message.Printer, amount int64) (s string) {
	s = printer.Sprintf("$%d", amount)
	return s
}

// usdDecimal formats an amount that may carry cents.
func usdDecimal(printer *message.Printer, amount decimal.Decimal) (s string) {
	if amount.IsInteger() && !amount.GreaterThan(maxInt64) && !amount.LessThan(minInt64) {
		s = usd(printer, amount.IntPart())
		return s
	}

	f, _ := amount.Float64()
	s = printer.Sprintf("$%.2f", f)
	return s
}

// toInt64 converts a rounded amount back to whole dollars.
func toInt64(amount decimal.Decimal) (value int64, err error) {
	rounded := amount.Round(0)
	if rounded.GreaterThan(maxInt64) || rounded.LessThan(minInt64) {
		err = errors.Wrapf(ErrAmountOverflow, "amount %s", amount.String())
		return value, err
	}

	value = rounded.IntPart()
	return value, err
}

// finite guards decimal.NewFromFloat, which panics on NaN and infinities.
func finite(f float64) (ok bool) {
	ok = !math.IsNaN(f) && !math.IsInf(f, 0)
	return ok
}
