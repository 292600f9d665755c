package penalty

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fatal causes. Any of these aborts ComputeMatrix without a partial matrix.
var (
	ErrNonFiniteInput   = errors.New("non-finite numeric input")
	ErrAmountOverflow   = errors.New("amount exceeds representable range")
	ErrMalformedStatute = errors.New("malformed statute entry")
	ErrRegistryMissing  = errors.New("statute registry not configured")
)

// CalculationError reports the violation whose processing aborted a batch.
type CalculationError struct {
	Index         int
	Document      string
	ViolationFlag string
	Err           error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("penalty calculation aborted at violation %d (%s, %s): %v",
		e.Index+1, e.Document, e.ViolationFlag, e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}
