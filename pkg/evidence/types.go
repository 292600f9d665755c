// Package evidence defines the violation records handed to the penalty engine
// by an evidence collector, and the helpers that load or synthesize them.
package evidence

// ActorType distinguishes natural persons from corporate and other actors.
type ActorType string

const (
	ActorNaturalPerson ActorType = "naturalPerson"
	ActorOtherPerson   ActorType = "otherPerson"
)

// FalsePositiveRisk is the collector's estimate that a detection is wrong.
type FalsePositiveRisk string

const (
	RiskLow    FalsePositiveRisk = "low"
	RiskMedium FalsePositiveRisk = "medium"
	RiskHigh   FalsePositiveRisk = "high"
)

// FinancialImpact is the collector's own view of the money involved.
type FinancialImpact struct {
	ProfitAmount          float64 `json:"profitAmount"`
	PenaltyBase           float64 `json:"penaltyBase"`
	EnhancementMultiplier float64 `json:"enhancementMultiplier"`
	TotalExposure         float64 `json:"totalExposure"`
}

// Item is a single piece of supporting evidence.
type Item struct {
	ID                      string           `json:"id"`
	ViolationType           string           `json:"violationType"`
	ExactQuote              string           `json:"exactQuote"`
	SourceFile              string           `json:"sourceFile,omitempty"`
	PageNumber              *int             `json:"pageNumber,omitempty"`
	SectionReference        string           `json:"sectionReference,omitempty"`
	ContextBefore           string           `json:"contextBefore"`
	ContextAfter            string           `json:"contextAfter"`
	RuleViolated            string           `json:"ruleViolated"`
	LegalStandard           string           `json:"legalStandard"`
	MaterialityThresholdMet bool             `json:"materialityThresholdMet"`
	CorroboratingEvidence   []string         `json:"corroboratingEvidence"`
	ConfidenceLevel         float64          `json:"confidenceLevel"` // 0-1
	ManualReviewRequired    bool             `json:"manualReviewRequired"`
	FinancialImpact         *FinancialImpact `json:"financialImpact,omitempty"`
	LocationPrecision       *float64         `json:"locationPrecision,omitempty"`    // 0-1
	FinancialDataPresent    *float64         `json:"financialDataPresent,omitempty"` // 0-1
}

// Detection is one alleged violation, the unit of work of the engine.
type Detection struct {
	Document          string            `json:"document"`
	ViolationFlag     string            `json:"violationFlag"`
	ActorType         ActorType         `json:"actorType"`
	Count             int               `json:"count"`
	ProfitAmount      *float64          `json:"profitAmount,omitempty"`
	Evidence          []Item            `json:"evidence"`
	StatutoryBasis    string            `json:"statutoryBasis"`
	ConfidenceScore   float64           `json:"confidenceScore"`
	FalsePositiveRisk FalsePositiveRisk `json:"falsePositiveRisk"`
}
