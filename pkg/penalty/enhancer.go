package penalty

import (
	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
)

// Enhancement is the outcome of applying at most one enhancement rule to a
// base penalty.
type Enhancement struct {
	BasePenalty            int64
	EnhancedPenalty        int64
	Factor                 float64
	Rule                   string
	Justification          string
	EvidenceQualityScore   float64
	LocationPrecisionScore float64
	FinancialDataScore     float64
}

// Applied reports whether an enhancing rule fired.
func (e Enhancement) Applied() (applied bool) {
	applied = e.Rule != RuleNone
	return applied
}

// Enhancer computes non-stacking penalty enhancements.
type Enhancer struct {
	extractor evidence.Extractor
	printer   *message.Printer
}

// NewEnhancer creates an enhancer. A nil extractor selects the regex one.
func NewEnhancer(extractor evidence.Extractor) (enhancer *Enhancer) {
	if extractor == nil {
		extractor = evidence.NewRegexExtractor()
	}

	enhancer = &Enhancer{
		extractor: extractor,
		printer:   newPrinter(),
	}

	return enhancer
}

// Enhance applies exactly one of, in priority order: the insider trading
// profit rule, the compensation understatement rule, the high confidence
// rule, or nothing.
func (e *Enhancer) Enhance(basePenalty int64, violationType string, items []evidence.Item, profitAmount *float64) (result Enhancement, err error) {
	if profitAmount != nil && !finite(*profitAmount) {
		err = errors.Wrapf(ErrNonFiniteInput, "profit amount %v", *profitAmount)
		return result, err
	}

	result, err = e.scores(items)
	if err != nil {
		return result, err
	}

	base := decimal.NewFromInt(basePenalty)
	enhanced := base
	factor := decimal.NewFromInt(1)
	result.BasePenalty = basePenalty
	result.Rule = RuleNone

	switch {
	case violationType == TypeInsiderTrading && profitAmount != nil && *profitAmount > 0:
		profit := decimal.NewFromFloat(*profitAmount)
		multiple := profit.Mul(decimal.NewFromInt(InsiderProfitMultiple))
		enhanced = decimal.Max(base, multiple).Add(profit).Round(0)
		if !base.IsZero() {
			factor = enhanced.Div(base)
		}
		result.Rule = RuleInsiderTrading
		result.Justification = e.printer.Sprintf(
			"Insider trading: max(base %s, %d x profit %s = %s) + disgorgement %s",
			usd(e.printer, basePenalty), InsiderProfitMultiple, usdDecimal(e.printer, profit),
			usdDecimal(e.printer, multiple), usdDecimal(e.printer, profit))

	case violationType == TypeCompensationMisrepresentation:
		// The rule claims the violation even when no material figure is found.
		if len(items) == 0 {
			break
		}
		amount, found := e.extractor.UnderstatedAmount(items[0].ExactQuote)
		if !found || !amount.GreaterThan(decimal.NewFromInt(CompensationMaterialityFloor)) {
			break
		}
		factor = decimal.Min(decimal.NewFromFloat(CompensationMaxFactor), amount.Div(decimal.NewFromInt(CompensationDivisor)))
		enhanced = base.Mul(factor).Round(0)
		result.Rule = RuleCompensation
		result.Justification = e.printer.Sprintf(
			"Compensation understated by %s (materiality floor %s): factor min(%.1f, %s / %s) = %s",
			usdDecimal(e.printer, amount), usd(e.printer, CompensationMaterialityFloor), CompensationMaxFactor,
			usdDecimal(e.printer, amount), usd(e.printer, CompensationDivisor), factor.StringFixed(2))

	case decimal.NewFromFloat(result.EvidenceQualityScore).GreaterThanOrEqual(decimal.NewFromFloat(HighConfidenceThreshold)):
		factor = decimal.NewFromFloat(HighConfidenceFactor)
		enhanced = base.Mul(factor).Round(0)
		result.Rule = RuleHighConfidence
		result.Justification = e.printer.Sprintf(
			"High-confidence evidence (mean confidence %.3f >= %.2f): flat %.1fx",
			result.EvidenceQualityScore, HighConfidenceThreshold, HighConfidenceFactor)
	}

	result.EnhancedPenalty, err = toInt64(enhanced)
	if err != nil {
		return result, err
	}

	if base.IsZero() {
		factor = decimal.Zero
	}
	result.Factor, _ = factor.Float64()

	return result, err
}

// scores computes the audit-only evidence scores. Means are taken in decimal
// so that, for example, three items at 0.95 average to exactly 0.95.
func (e *Enhancer) scores(items []evidence.Item) (result Enhancement, err error) {
	result.EvidenceQualityScore = DefaultEvidenceQuality
	result.LocationPrecisionScore = DefaultLocationPrecision
	result.FinancialDataScore = DefaultFinancialData

	if len(items) == 0 {
		return result, err
	}

	var confidence, location, financial decimal.Decimal
	for _, item := range items {
		if !finite(item.ConfidenceLevel) {
			err = errors.Wrapf(ErrNonFiniteInput, "confidence level of evidence %s", item.ID)
			return result, err
		}
		confidence = confidence.Add(decimal.NewFromFloat(item.ConfidenceLevel))

		precision := DefaultLocationPrecision
		if item.LocationPrecision != nil {
			precision = *item.LocationPrecision
		}
		present := DefaultFinancialData
		if item.FinancialDataPresent != nil {
			present = *item.FinancialDataPresent
		}
		if !finite(precision) || !finite(present) {
			err = errors.Wrapf(ErrNonFiniteInput, "quality scores of evidence %s", item.ID)
			return result, err
		}
		location = location.Add(decimal.NewFromFloat(precision))
		financial = financial.Add(decimal.NewFromFloat(present))
	}

	n := decimal.NewFromInt(int64(len(items)))
	result.EvidenceQualityScore, _ = confidence.Div(n).Float64()
	result.LocationPrecisionScore, _ = location.Div(n).Float64()
	result.FinancialDataScore, _ = financial.Div(n).Float64()

	return result, err
}
