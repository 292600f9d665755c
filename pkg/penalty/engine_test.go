package penalty

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/nikogura/penalty-matrix/pkg/metrics"
	"github.com/nikogura/penalty-matrix/pkg/statute"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func defaultEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	registry, err := statute.Default()
	require.NoError(t, err)

	engine, err := NewEngine(registry, append([]Option{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)

	return engine
}

func customEngine(t *testing.T, statutes []statute.Entry, mappings map[string][]string) *Engine {
	t.Helper()

	registry, err := statute.New(statute.Schedule{
		Version:        "test",
		DefaultStatute: "DEFAULT",
		Statutes:       statutes,
		Mappings:       mappings,
	})
	require.NoError(t, err)

	engine, err := NewEngine(registry, WithClock(fixedClock))
	require.NoError(t, err)

	return engine
}

func insiderDetection() evidence.Detection {
	return evidence.Detection{
		Document:          "form4.pdf",
		ViolationFlag:     TypeInsiderTrading,
		ActorType:         evidence.ActorNaturalPerson,
		Count:             1,
		ProfitAmount:      floatPtr(200000),
		Evidence:          items(0.95),
		ConfidenceScore:   0.95,
		FalsePositiveRisk: evidence.RiskLow,
	}
}

func detection(document, flag string, actor evidence.ActorType, count int) evidence.Detection {
	return evidence.Detection{
		Document:          document,
		ViolationFlag:     flag,
		ActorType:         actor,
		Count:             count,
		Evidence:          items(0.8),
		ConfidenceScore:   0.8,
		FalsePositiveRisk: evidence.RiskMedium,
	}
}

func collect(lines *[]string) AuditSink {
	return func(line string) {
		*lines = append(*lines, line)
	}
}

func TestNewEngineRequiresRegistry(t *testing.T) {
	_, err := NewEngine(nil)
	require.ErrorIs(t, err, ErrRegistryMissing)
}

func TestInsiderTradingScenario(t *testing.T) {
	engine := defaultEngine(t)

	matrix, err := engine.ComputeMatrix([]evidence.Detection{insiderDetection()}, nil)
	require.NoError(t, err)

	require.Len(t, matrix.Documents["form4.pdf"], 1)
	calc := matrix.Documents["form4.pdf"][0]
	require.NotNil(t, calc.UnitPenalty)
	require.NotNil(t, calc.Subtotal)
	assert.Equal(t, int64(800000), *calc.UnitPenalty)
	assert.Equal(t, int64(800000), *calc.Subtotal)
	assert.True(t, calc.EnhancementApplied)
	require.NotNil(t, calc.EnhancementJustification)
	assert.Contains(t, *calc.EnhancementJustification, "disgorgement")
	assert.True(t, calc.EvidenceBased)
	assert.False(t, calc.ManualReviewFlagged)

	// 78j(b) and 78u-1 both reach 800,000; the later candidate wins the tie
	require.NotNil(t, calc.StatuteUsed)
	assert.Equal(t, "15 U.S.C. 78u-1", *calc.StatuteUsed)
	assert.Equal(t, "15 U.S.C. 78u-1: Civil penalties for insider trading", *calc.Citation)

	assert.Equal(t, int64(800000), matrix.GrandTotal)
	assert.Equal(t, 1, matrix.TotalViolations)
	assert.Equal(t, 1, matrix.ValidatedCount)
	assert.Equal(t, 0, matrix.RejectedCount)
	assert.Empty(t, matrix.MissingStatuteMappings)
	assert.Equal(t, "2024.1", matrix.ScheduleVersion)
	assert.Equal(t, fixedClock(), matrix.CalculationTimestamp)
	assert.NotEmpty(t, matrix.Note)
}

func TestTieBreakLastCandidateWins(t *testing.T) {
	engine := customEngine(t,
		[]statute.Entry{
			{Citation: "FIRST", NaturalPersonPenalty: 5000, OtherPersonPenalty: 9000},
			{Citation: "SECOND", NaturalPersonPenalty: 5000, OtherPersonPenalty: 8000},
			{Citation: "DEFAULT", NaturalPersonPenalty: 1, OtherPersonPenalty: 1},
		},
		map[string][]string{"tie": {"FIRST", "SECOND"}},
	)

	matrix, err := engine.ComputeMatrix([]evidence.Detection{
		detection("a.pdf", "tie", evidence.ActorNaturalPerson, 1),
		detection("b.pdf", "tie", evidence.ActorOtherPerson, 1),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "SECOND", *matrix.Documents["a.pdf"][0].StatuteUsed)
	// strictly greater earlier candidate is kept
	assert.Equal(t, "FIRST", *matrix.Documents["b.pdf"][0].StatuteUsed)
}

func TestSelectorTracksEveryCandidate(t *testing.T) {
	registry, err := statute.Default()
	require.NoError(t, err)
	selector := NewSelector(registry, nil)

	result, err := selector.Select(insiderDetection(), []string{"15 U.S.C. 78u-1", "NOT A STATUTE", "15 U.S.C. 78j(b)"})
	require.NoError(t, err)

	require.Len(t, result.Evaluated, 2)
	assert.Equal(t, int64(185000), result.Evaluated[0].BasePenalty)
	assert.Equal(t, int64(236451), result.Evaluated[1].BasePenalty)
	assert.Equal(t, []string{"NOT A STATUTE"}, result.Missing)
	require.NotNil(t, result.Best)
	assert.Equal(t, "15 U.S.C. 78j(b)", result.Best.Citation)
}

func TestFallbackMapping(t *testing.T) {
	engine := defaultEngine(t)

	unmapped := detection("8k.pdf", "mystery_violation", evidence.ActorOtherPerson, 1)
	matrix, err := engine.ComputeMatrix([]evidence.Detection{unmapped}, nil)
	require.NoError(t, err)

	require.Len(t, matrix.Documents["8k.pdf"], 1)
	calc := matrix.Documents["8k.pdf"][0]
	assert.Equal(t, "15 U.S.C. 78u(d)(3)", *calc.StatuteUsed)
	assert.Equal(t, int64(1182251), *calc.UnitPenalty)
	assert.Contains(t, matrix.MissingStatuteMappings, "mystery_violation (unmapped violation type)")
	assert.Equal(t, 0, matrix.RejectedCount)
}

func TestBoundaryRejections(t *testing.T) {
	engine := customEngine(t,
		[]statute.Entry{
			{Citation: "ZERO", NaturalPersonPenalty: 0, OtherPersonPenalty: 0},
			{Citation: "HUGE", NaturalPersonPenalty: 10000001, OtherPersonPenalty: 10000001},
			{Citation: "DEFAULT", NaturalPersonPenalty: 1000, OtherPersonPenalty: 2000},
		},
		map[string][]string{
			"zero": {"ZERO"},
			"huge": {"HUGE"},
		},
	)

	detections := []evidence.Detection{
		detection("a.pdf", "late_filing", evidence.ActorOtherPerson, 0),
		detection("a.pdf", "late_filing", evidence.ActorOtherPerson, 101),
		detection("a.pdf", "zero", evidence.ActorOtherPerson, 1),
		detection("a.pdf", "huge", evidence.ActorOtherPerson, 1),
		detection("a.pdf", "late_filing", evidence.ActorOtherPerson, 100),
	}

	var lines []string
	matrix, err := engine.ComputeMatrix(detections, collect(&lines))
	require.NoError(t, err)

	assert.Equal(t, 5, matrix.TotalViolations)
	assert.Equal(t, 4, matrix.RejectedCount)
	assert.Equal(t, 1, matrix.ValidatedCount)
	require.Len(t, matrix.Documents["a.pdf"], 1)
	assert.Equal(t, 100, matrix.Documents["a.pdf"][0].Count)
	assert.Equal(t, int64(200000), matrix.GrandTotal)

	assert.Contains(t, matrix.MissingStatuteMappings, "late_filing (validation failed)")
	assert.Contains(t, matrix.MissingStatuteMappings, "zero (validation failed)")
	assert.Contains(t, matrix.MissingStatuteMappings, "huge (validation failed)")

	rejected := 0
	for _, line := range lines {
		if strings.Contains(line, "REJECTED") {
			rejected++
		}
	}
	assert.Equal(t, 4, rejected)
}

func TestUnrepresentableSubtotalRejected(t *testing.T) {
	engine := defaultEngine(t)

	huge := detection("10k.pdf", "disclosure_failure", evidence.ActorOtherPerson, 20000000000000)
	var lines []string
	matrix, err := engine.ComputeMatrix([]evidence.Detection{
		detection("10k.pdf", "disclosure_failure", evidence.ActorOtherPerson, 1),
		huge,
	}, collect(&lines))
	require.NoError(t, err)
	require.NotNil(t, matrix)

	assert.Equal(t, 2, matrix.TotalViolations)
	assert.Equal(t, 1, matrix.ValidatedCount)
	assert.Equal(t, 1, matrix.RejectedCount)
	require.Len(t, matrix.Documents["10k.pdf"], 1)
	assert.Equal(t, 1, matrix.Documents["10k.pdf"][0].Count)
	assert.Equal(t, *matrix.Documents["10k.pdf"][0].Subtotal, matrix.GrandTotal)
	assert.Contains(t, matrix.MissingStatuteMappings, "disclosure_failure (validation failed)")

	var rejection string
	for _, line := range lines {
		if strings.Contains(line, "REJECTED") {
			rejection = line
		}
	}
	assert.Contains(t, rejection, "count 20000000000000 outside 1..100")
	assert.Contains(t, rejection, "unit penalty present without subtotal")
}

func TestMissingStatutesRecorded(t *testing.T) {
	engine := customEngine(t,
		[]statute.Entry{
			{Citation: "KNOWN", NaturalPersonPenalty: 1000, OtherPersonPenalty: 2000, ContextLine: "Known statute"},
			{Citation: "DEFAULT", NaturalPersonPenalty: 1, OtherPersonPenalty: 1},
		},
		map[string][]string{
			"partial": {"GONE", "KNOWN"},
			"orphan":  {"GONE", "ALSO GONE"},
		},
	)

	matrix, err := engine.ComputeMatrix([]evidence.Detection{
		detection("a.pdf", "partial", evidence.ActorOtherPerson, 3),
		detection("b.pdf", "orphan", evidence.ActorOtherPerson, 2),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ALSO GONE", "GONE"}, matrix.MissingStatuteMappings)

	partial := matrix.Documents["a.pdf"][0]
	assert.Equal(t, "KNOWN", *partial.StatuteUsed)
	assert.Equal(t, int64(6000), *partial.Subtotal)

	orphan := matrix.Documents["b.pdf"][0]
	assert.Nil(t, orphan.UnitPenalty)
	assert.Nil(t, orphan.Subtotal)
	assert.Nil(t, orphan.StatuteUsed)
	assert.Nil(t, orphan.Citation)
	assert.NotEmpty(t, orphan.BasePenaltyReason)

	assert.Equal(t, int64(6000), matrix.GrandTotal)
	assert.Equal(t, 2, matrix.ValidatedCount)
}

func mixedBatch() []evidence.Detection {
	compensation := detection("proxy.pdf", TypeCompensationMisrepresentation, evidence.ActorNaturalPerson, 2)
	compensation.Evidence = quoted("Bonus of $250,000 understated in the summary table.", 0.9)

	highConfidence := detection("10k.pdf", "disclosure_failure", evidence.ActorOtherPerson, 3)
	highConfidence.Evidence = items(0.97, 0.96)
	highConfidence.ConfidenceScore = 0.97
	highConfidence.FalsePositiveRisk = evidence.RiskLow

	return []evidence.Detection{
		insiderDetection(),
		compensation,
		highConfidence,
		detection("10k.pdf", "late_filing", evidence.ActorNaturalPerson, 4),
		detection("", "late_filing", evidence.ActorNaturalPerson, 1),
		detection("10q.pdf", "unknown_thing", evidence.ActorOtherPerson, 1),
	}
}

func TestGrandTotalEqualsAcceptedSubtotals(t *testing.T) {
	engine := defaultEngine(t)

	matrix, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)

	var sum int64
	for _, calc := range matrix.Calculations() {
		require.NotNil(t, calc.Subtotal)
		require.NotNil(t, calc.UnitPenalty)
		assert.Equal(t, *calc.UnitPenalty*int64(calc.Count), *calc.Subtotal)
		if calc.EnhancementApplied {
			assert.NotNil(t, calc.EnhancementJustification)
		}
		sum += *calc.Subtotal
	}
	assert.Equal(t, sum, matrix.GrandTotal)

	// proxy: 229.402 at 118,225 x 2.5 = 295,563 per violation, two violations
	proxy := matrix.Documents["proxy.pdf"][0]
	assert.Equal(t, "17 CFR 229.402", *proxy.StatuteUsed)
	assert.Equal(t, int64(591126), *proxy.Subtotal)

	// 10-K disclosure: 78u(d)(3) other person 1,182,251 x 1.2 = 1,418,701
	disclosure := matrix.Documents["10k.pdf"][0]
	assert.Equal(t, int64(1418701), *disclosure.UnitPenalty)
	assert.False(t, disclosure.ManualReviewFlagged)

	assert.Equal(t, 6, matrix.TotalViolations)
	assert.Equal(t, 5, matrix.ValidatedCount)
	assert.Equal(t, 1, matrix.RejectedCount)
	assert.Equal(t, matrix.TotalViolations, matrix.ValidatedCount+matrix.RejectedCount)
	assert.Equal(t, []string{"late_filing (validation failed)", "unknown_thing (unmapped violation type)"}, matrix.MissingStatuteMappings)
}

func TestComputeMatrixDeterministic(t *testing.T) {
	engine := defaultEngine(t)

	first, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)
	second, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComputeMatrixConcurrent(t *testing.T) {
	engine := defaultEngine(t)

	want, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Matrix, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = engine.ComputeMatrix(mixedBatch(), nil)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestManualReviewFlag(t *testing.T) {
	engine := defaultEngine(t)

	lowConfidence := insiderDetection()
	lowConfidence.Document = "low.pdf"
	lowConfidence.ConfidenceScore = 0.91

	riskyButConfident := insiderDetection()
	riskyButConfident.Document = "risky.pdf"
	riskyButConfident.FalsePositiveRisk = evidence.RiskMedium

	matrix, err := engine.ComputeMatrix([]evidence.Detection{insiderDetection(), lowConfidence, riskyButConfident}, nil)
	require.NoError(t, err)

	assert.False(t, matrix.Documents["form4.pdf"][0].ManualReviewFlagged)
	assert.True(t, matrix.Documents["low.pdf"][0].ManualReviewFlagged)
	assert.True(t, matrix.Documents["risky.pdf"][0].ManualReviewFlagged)
}

func TestFatalNonFiniteInput(t *testing.T) {
	engine := defaultEngine(t)

	bad := insiderDetection()
	bad.Document = "bad.pdf"
	bad.ProfitAmount = floatPtr(math.Inf(1))

	var lines []string
	matrix, err := engine.ComputeMatrix([]evidence.Detection{insiderDetection(), bad}, collect(&lines))
	require.Error(t, err)
	assert.Nil(t, matrix)
	assert.ErrorIs(t, err, ErrNonFiniteInput)

	var calcErr *CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, 1, calcErr.Index)
	assert.Equal(t, "bad.pdf", calcErr.Document)
	assert.Equal(t, TypeInsiderTrading, calcErr.ViolationFlag)

	nanScore := insiderDetection()
	nanScore.ConfidenceScore = math.NaN()
	_, err = engine.ComputeMatrix([]evidence.Detection{nanScore}, nil)
	assert.ErrorIs(t, err, ErrNonFiniteInput)
}

func TestSubtotalOverflowIsNotFatal(t *testing.T) {
	engine := customEngine(t,
		[]statute.Entry{
			{Citation: "DEFAULT", NaturalPersonPenalty: 9000000000000000000, OtherPersonPenalty: 9000000000000000000},
		},
		nil,
	)

	matrix, err := engine.ComputeMatrix([]evidence.Detection{
		detection("a.pdf", "anything", evidence.ActorOtherPerson, 2),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, matrix.RejectedCount)
	assert.Equal(t, int64(0), matrix.GrandTotal)
}

func TestFatalUnitOverflow(t *testing.T) {
	engine := defaultEngine(t)

	insider := insiderDetection()
	insider.ProfitAmount = floatPtr(1e30)
	_, err := engine.ComputeMatrix([]evidence.Detection{insider}, nil)
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestAuditLines(t *testing.T) {
	engine := defaultEngine(t)

	otherActor := insiderDetection()
	otherActor.Document = "corp.pdf"
	otherActor.ActorType = evidence.ActorOtherPerson

	var lines []string
	_, err := engine.ComputeMatrix([]evidence.Detection{insiderDetection(), otherActor, detection("", "", "", 0)}, collect(&lines))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "3 violations")
	assert.Contains(t, lines[1], "[1/3] form4.pdf insider_trading")
	assert.Contains(t, lines[1], "$800,000")
	assert.Contains(t, strings.Join(lines, "\n"), "warning: actor type otherPerson unusual for insider_trading")
	assert.Contains(t, strings.Join(lines, "\n"), "<empty>")
	assert.Contains(t, lines[len(lines)-1], "Grand total")
}

func TestEngineLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine := defaultEngine(t, WithLogger(zap.New(core)))

	_, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)

	summary := logs.FilterMessage("penalty matrix computed").All()
	require.Len(t, summary, 1)
	fields := summary[0].ContextMap()
	assert.Equal(t, int64(6), fields["violations"])
	assert.Equal(t, int64(5), fields["accepted"])
	assert.Equal(t, int64(1), fields["rejected"])

	assert.Equal(t, 5, logs.FilterMessage("calculation accepted").Len())
	assert.Equal(t, 1, logs.FilterMessage("calculation rejected").Len())
}

func TestEngineMetrics(t *testing.T) {
	m := metrics.New()
	engine := defaultEngine(t, WithMetrics(m))

	matrix, err := engine.ComputeMatrix(mixedBatch(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 5, testutil.ToFloat64(m.Violations.WithLabelValues(metrics.OutcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Violations.WithLabelValues(metrics.OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Enhancements.WithLabelValues(RuleInsiderTrading)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Enhancements.WithLabelValues(RuleCompensation)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Enhancements.WithLabelValues(RuleHighConfidence)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Enhancements.WithLabelValues(RuleNone)), 0)
	assert.InDelta(t, float64(matrix.GrandTotal), testutil.ToFloat64(m.GrandTotal), 0)
}
