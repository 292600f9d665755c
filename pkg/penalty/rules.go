package penalty

import "github.com/nikogura/penalty-matrix/pkg/evidence"

// Violation types with dedicated enhancement rules.
const (
	TypeInsiderTrading                = "insider_trading"
	TypeCompensationMisrepresentation = "compensation_misrepresentation"
)

// Enhancement rule names, as reported in metrics and audit lines.
const (
	RuleInsiderTrading = "insider_trading"
	RuleCompensation   = "compensation"
	RuleHighConfidence = "high_confidence"
	RuleNone           = "none"
)

// Enhancement parameters.
const (
	InsiderProfitMultiple        = 3
	CompensationMaterialityFloor = 50000
	CompensationDivisor          = 100000
	CompensationMaxFactor        = 3.0
	HighConfidenceThreshold      = 0.95
	HighConfidenceFactor         = 1.2
)

// Audit score defaults for missing evidence attributes.
const (
	DefaultEvidenceQuality   = 0.7
	DefaultLocationPrecision = 0.7
	DefaultFinancialData     = 0.5
)

// Validation bounds.
const (
	MaxCount                     = 100
	MaxUnitPenalty         int64 = 10000000
	ManualReviewConfidence       = 0.92
)

// ExpectedActors lists violation types conventionally committed by one kind
// of actor. A mismatch is a warning, never a rejection.
//
//nolint:gochecknoglobals // Validation configuration constants
var ExpectedActors = map[string]evidence.ActorType{
	TypeInsiderTrading:      evidence.ActorNaturalPerson,
	"certification_failure": evidence.ActorNaturalPerson,
}
