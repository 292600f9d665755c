package penalty

import (
	"sort"
	"time"

	"github.com/nikogura/penalty-matrix/pkg/evidence"
)

// Calculation is one accepted penalty line.
type Calculation struct {
	Document                 string             `json:"document"`
	ViolationFlag            string             `json:"violationFlag"`
	ActorType                evidence.ActorType `json:"actorType"`
	Count                    int                `json:"count"`
	UnitPenalty              *int64             `json:"unitPenalty"`
	Subtotal                 *int64             `json:"subtotal"`
	StatuteUsed              *string            `json:"statuteUsed"`
	Citation                 *string            `json:"citation"`
	EvidenceBased            bool               `json:"evidenceBased"`
	EnhancementApplied       bool               `json:"enhancementApplied"`
	EnhancementJustification *string            `json:"enhancementJustification"`
	BasePenaltyReason        string             `json:"basePenaltyReason"`
	ManualReviewFlagged      bool               `json:"manualReviewFlagged"`
}

// Matrix is the aggregate result of one ComputeMatrix call.
type Matrix struct {
	Documents              map[string][]Calculation `json:"documents"`
	GrandTotal             int64                    `json:"grandTotal"`
	MissingStatuteMappings []string                 `json:"missingStatuteMappings"`
	TotalViolations        int                      `json:"totalViolations"`
	ValidatedCount         int                      `json:"validatedCount"`
	RejectedCount          int                      `json:"rejectedCount"`
	CalculationTimestamp   time.Time                `json:"calculationTimestamp"`
	ScheduleVersion        string                   `json:"scheduleVersion"`
	Note                   string                   `json:"note"`
}

// DocumentNames returns the matrix documents in sorted order.
func (m *Matrix) DocumentNames() (names []string) {
	names = make([]string, 0, len(m.Documents))
	for name := range m.Documents {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Calculations flattens the matrix, documents sorted, lines in input order.
func (m *Matrix) Calculations() (calcs []Calculation) {
	for _, name := range m.DocumentNames() {
		calcs = append(calcs, m.Documents[name]...)
	}

	return calcs
}
