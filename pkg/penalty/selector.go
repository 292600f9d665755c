package penalty

import (
	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/nikogura/penalty-matrix/pkg/statute"
)

// Selection is one candidate statute evaluated against a violation.
type Selection struct {
	Citation    string
	Entry       statute.Entry
	BasePenalty int64
	Enhancement Enhancement
}

// SelectionResult holds the winning candidate, every evaluated candidate in
// mapping order, and the candidate citations absent from the registry.
type SelectionResult struct {
	Best      *Selection
	Evaluated []Selection
	Missing   []string
}

// Selector picks the highest-value statute among a violation's candidates.
type Selector struct {
	registry *statute.Registry
	enhancer *Enhancer
}

// NewSelector creates a selector over a registry.
func NewSelector(registry *statute.Registry, enhancer *Enhancer) (selector *Selector) {
	if enhancer == nil {
		enhancer = NewEnhancer(nil)
	}

	selector = &Selector{
		registry: registry,
		enhancer: enhancer,
	}

	return selector
}

// BasePenalty returns the statutory base for an actor type.
func BasePenalty(entry statute.Entry, actor evidence.ActorType) (base int64) {
	if actor == evidence.ActorNaturalPerson {
		base = entry.NaturalPersonPenalty
		return base
	}

	base = entry.OtherPersonPenalty
	return base
}

// Select evaluates each candidate in order. A candidate replaces the current
// best when its enhanced penalty is greater than or equal to it, so among
// equal values the last candidate wins.
func (s *Selector) Select(detection evidence.Detection, candidates []string) (result SelectionResult, err error) {
	if s.registry == nil {
		err = ErrRegistryMissing
		return result, err
	}

	for _, citation := range candidates {
		entry, ok := s.registry.Lookup(citation)
		if !ok {
			result.Missing = append(result.Missing, citation)
			continue
		}

		if entry.NaturalPersonPenalty < 0 || entry.OtherPersonPenalty < 0 {
			err = ErrMalformedStatute
			return result, err
		}

		base := BasePenalty(entry, detection.ActorType)

		var enhancement Enhancement
		enhancement, err = s.enhancer.Enhance(base, detection.ViolationFlag, detection.Evidence, detection.ProfitAmount)
		if err != nil {
			return result, err
		}

		result.Evaluated = append(result.Evaluated, Selection{
			Citation:    citation,
			Entry:       entry,
			BasePenalty: base,
			Enhancement: enhancement,
		})

		if result.Best == nil || enhancement.EnhancedPenalty >= result.Best.Enhancement.EnhancedPenalty {
			best := result.Evaluated[len(result.Evaluated)-1]
			result.Best = &best
		}
	}

	return result, err
}
