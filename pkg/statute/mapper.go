package statute

import "sort"

// DefaultStatute is the citation used for unrecognized violation types.
func (r *Registry) DefaultStatute() (citation string) {
	citation = r.defaultStatute
	return citation
}

// ResolveStatutes returns the ordered candidate citations for a violation
// type. Unrecognized types resolve to the default statute, so the result is
// never empty. mapped reports whether the type was recognized.
func (r *Registry) ResolveStatutes(violationType string) (citations []string, mapped bool) {
	var configured []string
	configured, mapped = r.mappings[violationType]
	if !mapped {
		citations = []string{r.defaultStatute}
		return citations, mapped
	}

	citations = append([]string(nil), configured...)
	return citations, mapped
}

// ViolationTypes returns the recognized violation types in sorted order.
func (r *Registry) ViolationTypes() (types []string) {
	types = make([]string, 0, len(r.mappings))
	for violationType := range r.mappings {
		types = append(types, violationType)
	}
	sort.Strings(types)
	return types
}
