package export

import (
	"io"
	"strings"

	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteMarkdown writes a human-readable summary of the matrix.
func WriteMarkdown(w io.Writer, matrix *penalty.Matrix) (err error) {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("# Penalty Matrix\n\n")
	p.Fprintf(&b, "- Schedule version: %s\n", matrix.ScheduleVersion)
	p.Fprintf(&b, "- Calculated: %s\n", matrix.CalculationTimestamp.Format("2006-01-02 15:04:05 MST"))
	p.Fprintf(&b, "- Violations: %d total, %d accepted, %d rejected\n", matrix.TotalViolations, matrix.ValidatedCount, matrix.RejectedCount)
	p.Fprintf(&b, "- **Grand total: $%d**\n\n", matrix.GrandTotal)

	for _, document := range matrix.DocumentNames() {
		p.Fprintf(&b, "## %s\n\n", escape(document))
		b.WriteString("| Violation | Actor | Count | Unit penalty | Subtotal | Statute | Review |\n")
		b.WriteString("|---|---|---:|---:|---:|---|---|\n")

		for _, calc := range matrix.Documents[document] {
			review := ""
			if calc.ManualReviewFlagged {
				review = "manual"
			}
			p.Fprintf(&b, "| %s | %s | %d | %s | %s | %s | %s |\n",
				escape(calc.ViolationFlag), calc.ActorType, calc.Count,
				dollars(p, calc.UnitPenalty), dollars(p, calc.Subtotal),
				escape(optionalString(calc.StatuteUsed)), review)
		}
		b.WriteString("\n")

		for _, calc := range matrix.Documents[document] {
			if calc.EnhancementJustification != nil {
				p.Fprintf(&b, "- %s: %s\n", escape(calc.ViolationFlag), escape(*calc.EnhancementJustification))
			}
		}
		b.WriteString("\n")
	}

	if len(matrix.MissingStatuteMappings) > 0 {
		b.WriteString("## Missing statute mappings\n\n")
		for _, missing := range matrix.MissingStatuteMappings {
			p.Fprintf(&b, "- %s\n", escape(missing))
		}
		b.WriteString("\n")
	}

	if matrix.Note != "" {
		p.Fprintf(&b, "_%s_\n", matrix.Note)
	}

	_, err = io.WriteString(w, b.String())
	if err != nil {
		err = errors.Wrap(err, "failed to write markdown")
		return err
	}

	return err
}

func dollars(p *message.Printer, v *int64) (s string) {
	if v == nil {
		s = "-"
		return s
	}

	s = p.Sprintf("$%d", *v)
	return s
}

// escape keeps table cells intact.
func escape(s string) (out string) {
	out = strings.ReplaceAll(s, "|", `\|`)
	return out
}
