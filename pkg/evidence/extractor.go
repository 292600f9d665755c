package evidence

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Extractor pulls numeric features out of free-text evidence quotes.
type Extractor interface {
	// UnderstatedAmount finds a dollar figure reported as understated.
	UnderstatedAmount(quote string) (amount decimal.Decimal, found bool)
}

//nolint:gochecknoglobals // Compiled once
var understatedPattern = regexp.MustCompile(
	`(?i)\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)\s+(?:understated|understatement|underreported|under-reported|unreported|undisclosed)\b`,
)

// RegexExtractor matches "$<amount> <understatement token>". Only the first
// match in the quote counts; figures written in words are not recognized.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() (extractor *RegexExtractor) {
	extractor = &RegexExtractor{}
	return extractor
}

// UnderstatedAmount implements Extractor.
func (e *RegexExtractor) UnderstatedAmount(quote string) (amount decimal.Decimal, found bool) {
	match := understatedPattern.FindStringSubmatch(quote)
	if match == nil {
		return amount, found
	}

	parsed, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return amount, found
	}

	amount = parsed
	found = true
	return amount, found
}
