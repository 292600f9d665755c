package penalty

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/nikogura/penalty-matrix/pkg/metrics"
	"github.com/nikogura/penalty-matrix/pkg/statute"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/message"
)

// Markers recorded in MissingStatuteMappings for non-statute gaps.
const (
	MarkerUnmapped   = "(unmapped violation type)"
	MarkerRejected   = "(validation failed)"
	emptyFlagDisplay = "<empty>"
)

// AuditSink receives human-readable audit lines, synchronously and in order.
type AuditSink func(line string)

// Engine computes penalty matrices against a read-only statute registry.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	registry  *statute.Registry
	selector  *Selector
	extractor evidence.Extractor
	logger    *zap.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
	printer   *message.Printer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records batch outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithExtractor replaces the compensation figure extractor.
func WithExtractor(extractor evidence.Extractor) Option {
	return func(e *Engine) {
		e.extractor = extractor
	}
}

// NewEngine creates an engine over registry.
func NewEngine(registry *statute.Registry, opts ...Option) (engine *Engine, err error) {
	if registry == nil {
		err = ErrRegistryMissing
		return engine, err
	}

	engine = &Engine{
		registry: registry,
		logger:   zap.NewNop(),
		clock:    time.Now,
		printer:  newPrinter(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.selector = NewSelector(registry, NewEnhancer(engine.extractor))

	return engine, err
}

// ComputeMatrix prices every detection and aggregates the accepted lines.
// Rejected lines are dropped and recorded; a fatal error aborts the whole
// batch and no matrix is returned.
func (e *Engine) ComputeMatrix(detections []evidence.Detection, sink AuditSink) (matrix *Matrix, err error) {
	start := time.Now()
	emit := func(format string, args ...interface{}) {
		if sink != nil {
			sink(e.printer.Sprintf(format, args...))
		}
	}

	result := &Matrix{
		Documents:       make(map[string][]Calculation),
		TotalViolations: len(detections),
		ScheduleVersion: e.registry.Version(),
	}
	missing := make(map[string]struct{})
	grandTotal := decimal.Zero

	emit("Computing penalties for %d violations against schedule %s", len(detections), result.ScheduleVersion)

	for i, detection := range detections {
		fail := func(cause error) (*Matrix, error) {
			e.logger.Error("penalty calculation aborted",
				zap.Int("index", i),
				zap.String("document", detection.Document),
				zap.String("violation", detection.ViolationFlag),
				zap.Error(cause))
			return nil, &CalculationError{
				Index:         i,
				Document:      detection.Document,
				ViolationFlag: detection.ViolationFlag,
				Err:           cause,
			}
		}

		if !finite(detection.ConfidenceScore) {
			return fail(errors.Wrap(ErrNonFiniteInput, "confidence score"))
		}

		prefix := fmt.Sprintf("[%d/%d] %s %s", i+1, len(detections), detection.Document, displayFlag(detection.ViolationFlag))

		candidates, mapped := e.registry.ResolveStatutes(detection.ViolationFlag)
		if !mapped {
			missing[displayFlag(detection.ViolationFlag)+" "+MarkerUnmapped] = struct{}{}
			emit("%s: unmapped violation type, using default statute %s", prefix, candidates[0])
		}

		selection, selErr := e.selector.Select(detection, candidates)
		if selErr != nil {
			return fail(selErr)
		}

		for _, citation := range selection.Missing {
			missing[citation] = struct{}{}
			emit("%s: statute %s not in registry, skipped", prefix, citation)
		}

		calc := e.buildCalculation(detection, selection)

		verdict := Validate(calc)
		for _, warning := range verdict.Warnings {
			emit("%s: warning: %s", prefix, warning)
			e.logger.Warn("calculation warning",
				zap.String("document", detection.Document),
				zap.String("violation", detection.ViolationFlag),
				zap.String("warning", warning))
		}

		if !verdict.Accepted {
			result.RejectedCount++
			missing[displayFlag(detection.ViolationFlag)+" "+MarkerRejected] = struct{}{}
			e.metrics.IncrementOutcome(metrics.OutcomeRejected)
			emit("%s: REJECTED (%s)", prefix, strings.Join(verdict.Reasons, "; "))
			e.logger.Debug("calculation rejected",
				zap.String("document", detection.Document),
				zap.String("violation", detection.ViolationFlag),
				zap.Strings("reasons", verdict.Reasons))
			continue
		}

		if calc.Subtotal != nil {
			grandTotal = grandTotal.Add(decimal.NewFromInt(*calc.Subtotal))
			if _, overflow := toInt64(grandTotal); overflow != nil {
				return fail(errors.Wrap(overflow, "grand total"))
			}
		}

		result.ValidatedCount++
		result.Documents[calc.Document] = append(result.Documents[calc.Document], calc)

		rule := RuleNone
		if selection.Best != nil {
			rule = selection.Best.Enhancement.Rule
		}
		e.metrics.IncrementOutcome(metrics.OutcomeAccepted)
		e.metrics.IncrementEnhancement(rule)

		emit("%s", e.acceptedLine(prefix, calc))
		e.logger.Debug("calculation accepted",
			zap.String("document", calc.Document),
			zap.String("violation", calc.ViolationFlag),
			zap.Stringp("statute", calc.StatuteUsed),
			zap.Int64p("subtotal", calc.Subtotal),
			zap.String("rule", rule))
	}

	result.GrandTotal = grandTotal.IntPart()
	result.MissingStatuteMappings = make([]string, 0, len(missing))
	for marker := range missing {
		result.MissingStatuteMappings = append(result.MissingStatuteMappings, marker)
	}
	sort.Strings(result.MissingStatuteMappings)

	result.Note = e.printer.Sprintf(
		"Statutory maximum exposure under schedule %s: %d of %d violations accepted, %d rejected. Enhancements do not stack; figures are not a legal determination.",
		result.ScheduleVersion, result.ValidatedCount, result.TotalViolations, result.RejectedCount)
	result.CalculationTimestamp = e.clock().UTC()

	emit("Grand total %s across %d accepted calculations (%d rejected)",
		usd(e.printer, result.GrandTotal), result.ValidatedCount, result.RejectedCount)

	e.metrics.SetGrandTotal(result.GrandTotal)
	e.metrics.ObserveComputeDuration(time.Since(start))
	e.logger.Info("penalty matrix computed",
		zap.Int("violations", result.TotalViolations),
		zap.Int("accepted", result.ValidatedCount),
		zap.Int("rejected", result.RejectedCount),
		zap.Int64("grand_total", result.GrandTotal),
		zap.Int("missing_mappings", len(result.MissingStatuteMappings)))

	matrix = result

	return matrix, err
}

func (e *Engine) buildCalculation(detection evidence.Detection, selection SelectionResult) (calc Calculation) {
	calc = Calculation{
		Document:            detection.Document,
		ViolationFlag:       detection.ViolationFlag,
		ActorType:           detection.ActorType,
		Count:               detection.Count,
		EvidenceBased:       len(detection.Evidence) > 0,
		ManualReviewFlagged: detection.ConfidenceScore < ManualReviewConfidence || detection.FalsePositiveRisk != evidence.RiskLow,
	}

	best := selection.Best
	if best == nil {
		calc.BasePenaltyReason = fmt.Sprintf("no candidate statute for %s found in schedule %s", displayFlag(detection.ViolationFlag), e.registry.Version())
		return calc
	}

	unit := best.Enhancement.EnhancedPenalty
	calc.UnitPenalty = &unit

	// An unrepresentable subtotal is left nil for Validate to reject; it
	// only arises from a count or unit penalty already out of bounds.
	subtotal, overflow := toInt64(decimal.NewFromInt(unit).Mul(decimal.NewFromInt(int64(detection.Count))))
	if overflow == nil {
		calc.Subtotal = &subtotal
	}

	statuteUsed := best.Citation
	citation := best.Citation
	if best.Entry.ContextLine != "" {
		citation = best.Citation + ": " + best.Entry.ContextLine
	}

	calc.StatuteUsed = &statuteUsed
	calc.Citation = &citation
	calc.EnhancementApplied = best.Enhancement.Applied()
	if calc.EnhancementApplied {
		justification := best.Enhancement.Justification
		calc.EnhancementJustification = &justification
	}
	calc.BasePenaltyReason = e.printer.Sprintf("%s per-violation maximum for %s: %s",
		best.Citation, actorLabel(detection.ActorType), usd(e.printer, best.BasePenalty))

	return calc
}

func (e *Engine) acceptedLine(prefix string, calc Calculation) (line string) {
	if calc.UnitPenalty == nil {
		line = prefix + ": no statute available, recorded without amount"
		return line
	}

	line = e.printer.Sprintf("%s: %s %s x %d = %s", prefix, *calc.StatuteUsed,
		usd(e.printer, *calc.UnitPenalty), calc.Count, usd(e.printer, *calc.Subtotal))
	if calc.EnhancementApplied {
		line += " [" + *calc.EnhancementJustification + "]"
	}
	if calc.ManualReviewFlagged {
		line += " (manual review)"
	}

	return line
}

func displayFlag(flag string) (display string) {
	display = flag
	if display == "" {
		display = emptyFlagDisplay
	}

	return display
}

func actorLabel(actor evidence.ActorType) (label string) {
	switch actor {
	case evidence.ActorNaturalPerson:
		label = "a natural person"
	case evidence.ActorOtherPerson:
		label = "an other person"
	default:
		label = "an unspecified actor"
	}

	return label
}
