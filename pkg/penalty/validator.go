package penalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Verdict is the outcome of validating one calculation. Every failed
// invariant is listed, not only the first.
type Verdict struct {
	Accepted bool
	Reasons  []string
	Warnings []string
}

// Validate checks a proposed calculation against the structural and numeric
// invariants. It has no side effects.
func Validate(calc Calculation) (verdict Verdict) {
	if calc.Document == "" {
		verdict.Reasons = append(verdict.Reasons, "missing document")
	}

	if calc.ViolationFlag == "" {
		verdict.Reasons = append(verdict.Reasons, "missing violation flag")
	}

	if calc.ActorType == "" {
		verdict.Reasons = append(verdict.Reasons, "missing actor type")
	}

	if calc.Count <= 0 || calc.Count > MaxCount {
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("count %d outside 1..%d", calc.Count, MaxCount))
	}

	if calc.UnitPenalty != nil && (*calc.UnitPenalty <= 0 || *calc.UnitPenalty > MaxUnitPenalty) {
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("unit penalty %d outside 1..%d", *calc.UnitPenalty, MaxUnitPenalty))
	}

	if calc.UnitPenalty != nil && calc.Subtotal == nil {
		verdict.Reasons = append(verdict.Reasons, "unit penalty present without subtotal")
	}

	if calc.Subtotal != nil {
		switch {
		case calc.UnitPenalty == nil:
			verdict.Reasons = append(verdict.Reasons, "subtotal present without unit penalty")
		default:
			expected := decimal.NewFromInt(*calc.UnitPenalty).Mul(decimal.NewFromInt(int64(calc.Count))).Round(0)
			if !expected.Equal(decimal.NewFromInt(*calc.Subtotal)) {
				verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("subtotal %d != unit penalty x count %s", *calc.Subtotal, expected.String()))
			}
		}
	}

	if calc.EnhancementApplied && (calc.EnhancementJustification == nil || *calc.EnhancementJustification == "") {
		verdict.Reasons = append(verdict.Reasons, "enhancement applied without justification")
	}

	if calc.EvidenceBased && calc.Citation == nil {
		verdict.Warnings = append(verdict.Warnings, "evidence-based calculation has no citation")
	}

	if expected, ok := ExpectedActors[calc.ViolationFlag]; ok && calc.ActorType != "" && calc.ActorType != expected {
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("actor type %s unusual for %s (expected %s)", calc.ActorType, calc.ViolationFlag, expected))
	}

	verdict.Accepted = len(verdict.Reasons) == 0

	return verdict
}
