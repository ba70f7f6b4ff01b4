// Package domain holds the immutable pricing catalog model shared by the
// catalog synchronizer and quote resolution.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Source identifies where a snapshot came from.
type Source string

const (
	SourceSheets   Source = "sheets"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// StepKind is how an option step is answered.
type StepKind string

const (
	StepSelect   StepKind = "select"
	StepCheckbox StepKind = "checkbox"
)

// Checkbox option values.
const (
	OptionYes = "Yes"
	OptionNo  = "No"
)

// ErrEmptyCatalog is returned when a snapshot would contain no machines.
var ErrEmptyCatalog = errors.New("catalog contains no valid machines")

// Option is one selectable value of a step.
type Option struct {
	Value           string
	PriceDeltaCents int64
}

// Step is a configuration question for a machine.
type Step struct {
	Name    string
	Kind    StepKind
	Options []Option
}

// NewCheckboxStep builds a yes/no step whose "Yes" answer costs priceCents.
func NewCheckboxStep(name string, priceCents int64) Step {
	return Step{
		Name: name,
		Kind: StepCheckbox,
		Options: []Option{
			{Value: OptionYes, PriceDeltaCents: priceCents},
			{Value: OptionNo, PriceDeltaCents: 0},
		},
	}
}

// FindOption matches value against the step's options using key
// normalization, ignoring a trailing price label. Checkbox steps also
// accept yes/no synonyms.
func (s Step) FindOption(value string) (Option, bool) {
	candidates := []string{NormalizeKey(value)}
	if stripped := NormalizeKey(StripPriceLabel(value)); stripped != candidates[0] {
		candidates = append(candidates, stripped)
	}
	for _, key := range candidates {
		for _, opt := range s.Options {
			if NormalizeKey(opt.Value) == key {
				return opt, true
			}
		}
	}
	if s.Kind == StepCheckbox {
		if yes, ok := ParseYesNo(StripPriceLabel(value)); ok {
			want := OptionNo
			if yes {
				want = OptionYes
			}
			for _, opt := range s.Options {
				if opt.Value == want {
					return opt, true
				}
			}
		}
	}
	return Option{}, false
}

// MachineEntry is one quotable machine.
type MachineEntry struct {
	ID             string
	DisplayID      string
	Template       string
	BasePriceCents int64
	Steps          []Step
}

// FindStep matches a step by normalized name.
func (m MachineEntry) FindStep(name string) (Step, bool) {
	key := NormalizeKey(name)
	for _, st := range m.Steps {
		if NormalizeKey(st.Name) == key {
			return st, true
		}
	}
	return Step{}, false
}

func (m MachineEntry) clone() MachineEntry {
	out := m
	out.Steps = make([]Step, len(m.Steps))
	for i, st := range m.Steps {
		st.Options = append([]Option(nil), st.Options...)
		out.Steps[i] = st
	}
	return out
}

// Snapshot is an immutable view of the catalog. Build one with NewSnapshot;
// it is never modified afterwards and is safe for concurrent readers.
type Snapshot struct {
	source    Source
	version   string
	updatedAt time.Time
	machines  map[string]MachineEntry
	aliases   map[string]string
	ids       []string
}

// NewSnapshot validates entries and builds a snapshot. Entry IDs are
// normalized; each entry is also reachable through its template stem.
func NewSnapshot(source Source, version string, updatedAt time.Time, entries []MachineEntry) (*Snapshot, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	s := &Snapshot{
		source:    source,
		version:   version,
		updatedAt: updatedAt,
		machines:  make(map[string]MachineEntry, len(entries)),
		aliases:   make(map[string]string),
	}
	for _, e := range entries {
		id := NormalizeMachineID(e.ID)
		if id == "" {
			return nil, errors.New("machine entry without id")
		}
		if e.BasePriceCents <= 0 {
			return nil, fmt.Errorf("machine %s: base price must be positive", id)
		}
		if _, dup := s.machines[id]; dup {
			return nil, fmt.Errorf("machine %s: duplicate entry", id)
		}
		e = e.clone()
		e.ID = id
		if e.DisplayID == "" {
			e.DisplayID = id
		}
		s.machines[id] = e
		s.ids = append(s.ids, id)
	}
	for id, e := range s.machines {
		alias := NormalizeMachineID(e.Template)
		if alias == "" || alias == id {
			continue
		}
		if _, taken := s.machines[alias]; !taken {
			s.aliases[alias] = id
		}
	}
	sort.Strings(s.ids)
	return s, nil
}

// Source reports where the snapshot came from.
func (s *Snapshot) Source() Source { return s.source }

// Version is the fallback file version or the remote fetch mode.
func (s *Snapshot) Version() string { return s.version }

// UpdatedAt is when the snapshot's data was produced.
func (s *Snapshot) UpdatedAt() time.Time { return s.updatedAt }

// Len returns the number of machines.
func (s *Snapshot) Len() int { return len(s.machines) }

// Machine looks up a machine by any spelling of its id or template name.
func (s *Snapshot) Machine(id string) (MachineEntry, bool) {
	key := NormalizeMachineID(id)
	if e, ok := s.machines[key]; ok {
		return e.clone(), true
	}
	if target, ok := s.aliases[key]; ok {
		return s.machines[target].clone(), true
	}
	return MachineEntry{}, false
}

// MachineIDs returns the sorted machine ids.
func (s *Snapshot) MachineIDs() []string {
	return append([]string(nil), s.ids...)
}
