// Package statute holds the penalty schedule: the statutes with their fixed
// penalty amounts and the mapping from violation types to candidate statutes.
// A Registry is read-only after construction and safe for concurrent use.
package statute

import (
	_ "embed"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schedule.yaml
var embeddedSchedule []byte

// Entry is one statute in the schedule. Amounts are whole dollars.
type Entry struct {
	Citation             string  `yaml:"citation" json:"citation" validate:"required"`
	NaturalPersonPenalty int64   `yaml:"natural_person_penalty" json:"naturalPersonPenalty" validate:"gte=0"`
	OtherPersonPenalty   int64   `yaml:"other_person_penalty" json:"otherPersonPenalty" validate:"gte=0"`
	RawAmounts           []int64 `yaml:"raw_amounts" json:"rawAmounts" validate:"dive,gte=0"`
	ContextLine          string  `yaml:"context_line" json:"contextLine"`
}

// Schedule is the on-disk shape of a penalty schedule.
type Schedule struct {
	Version        string              `yaml:"version" json:"version" validate:"required"`
	DefaultStatute string              `yaml:"default_statute" json:"defaultStatute" validate:"required"`
	Statutes       []Entry             `yaml:"statutes" json:"statutes" validate:"dive"`
	Mappings       map[string][]string `yaml:"mappings" json:"mappings"`
}

// Registry is an immutable, indexed Schedule.
type Registry struct {
	version        string
	defaultStatute string
	entries        map[string]Entry
	mappings       map[string][]string
}

// New validates a schedule and indexes it.
func New(schedule Schedule) (registry *Registry, err error) {
	err = validator.New().Struct(schedule)
	if err != nil {
		err = errors.Wrap(err, "invalid penalty schedule")
		return registry, err
	}

	registry = &Registry{
		version:        schedule.Version,
		defaultStatute: schedule.DefaultStatute,
		entries:        make(map[string]Entry, len(schedule.Statutes)),
		mappings:       make(map[string][]string, len(schedule.Mappings)),
	}

	for _, entry := range schedule.Statutes {
		if _, dup := registry.entries[entry.Citation]; dup {
			err = errors.Errorf("duplicate statute in schedule: %s", entry.Citation)
			registry = nil
			return registry, err
		}
		entry.RawAmounts = append([]int64(nil), entry.RawAmounts...)
		registry.entries[entry.Citation] = entry
	}

	if _, ok := registry.entries[schedule.DefaultStatute]; !ok {
		err = errors.Errorf("default statute %s is not in schedule", schedule.DefaultStatute)
		registry = nil
		return registry, err
	}

	for violationType, citations := range schedule.Mappings {
		if len(citations) == 0 {
			err = errors.Errorf("violation type %s maps to no statutes", violationType)
			registry = nil
			return registry, err
		}
		registry.mappings[violationType] = append([]string(nil), citations...)
	}

	return registry, err
}

// Parse decodes a YAML schedule.
func Parse(data []byte) (registry *Registry, err error) {
	var schedule Schedule
	err = yaml.Unmarshal(data, &schedule)
	if err != nil {
		err = errors.Wrap(err, "failed to parse penalty schedule")
		return registry, err
	}

	registry, err = New(schedule)
	return registry, err
}

// Load reads a YAML schedule from disk.
func Load(path string) (registry *Registry, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read penalty schedule: %s", path)
		return registry, err
	}

	registry, err = Parse(data)
	if err != nil {
		err = errors.Wrapf(err, "schedule %s", path)
		return registry, err
	}

	return registry, err
}

// Default returns the schedule compiled into the binary.
func Default() (registry *Registry, err error) {
	registry, err = Parse(embeddedSchedule)
	return registry, err
}

// Version returns the schedule version tag.
func (r *Registry) Version() (version string) {
	version = r.version
	return version
}

// Lookup returns the entry for a citation.
func (r *Registry) Lookup(citation string) (entry Entry, ok bool) {
	entry, ok = r.entries[citation]
	if ok {
		entry.RawAmounts = append([]int64(nil), entry.RawAmounts...)
	}
	return entry, ok
}

// Entries returns all statutes ordered by citation.
func (r *Registry) Entries() (entries []Entry) {
	entries = make([]Entry, 0, len(r.entries))
	for _, citation := range r.Citations() {
		entry, _ := r.Lookup(citation)
		entries = append(entries, entry)
	}
	return entries
}

// Citations returns every statute citation in sorted order.
func (r *Registry) Citations() (citations []string) {
	citations = make([]string, 0, len(r.entries))
	for citation := range r.entries {
		citations = append(citations, citation)
	}
	sort.Strings(citations)
	return citations
}
