package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/pkg/errors"
)

// CSVHeader is the column order of the flat table.
func CSVHeader() (header []string) {
	header = []string{"document", "violation", "actorType", "count", "unitPenalty", "subtotal", "citation"}
	return header
}

// WriteCSV writes one row per accepted calculation. Documents are sorted,
// calculations keep input order, and null values are empty cells.
func WriteCSV(w io.Writer, matrix *penalty.Matrix) (err error) {
	writer := csv.NewWriter(w)

	err = writer.Write(CSVHeader())
	if err != nil {
		err = errors.Wrap(err, "failed to write csv header")
		return err
	}

	for _, calc := range matrix.Calculations() {
		row := []string{
			calc.Document,
			calc.ViolationFlag,
			string(calc.ActorType),
			strconv.Itoa(calc.Count),
			optionalInt(calc.UnitPenalty),
			optionalInt(calc.Subtotal),
			optionalString(calc.Citation),
		}

		err = writer.Write(row)
		if err != nil {
			err = errors.Wrapf(err, "failed to write csv row for %s", calc.Document)
			return err
		}
	}

	writer.Flush()
	err = writer.Error()
	if err != nil {
		err = errors.Wrap(err, "failed to flush csv")
		return err
	}

	return err
}

func optionalInt(v *int64) (s string) {
	if v != nil {
		s = strconv.FormatInt(*v, 10)
	}
	return s
}

func optionalString(v *string) (s string) {
	if v != nil {
		s = *v
	}
	return s
}
