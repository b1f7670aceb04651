package scoring

import (
	"fmt"
	"sort"
)

// Current trait names.
const (
	TraitLogicalReasoning = "Logical Reasoning"
	TraitMechanical       = "Mechanical"
	TraitCreative         = "Creative"
	TraitVerbal           = "Verbal Communication"
	TraitNumerical        = "Numerical"
	TraitSocial           = "Social/Helping"
	TraitLeadership       = "Leadership/Persuasion"
	TraitDigital          = "Digital/Computer"
	TraitOrganizing       = "Organizing/Structuring"
	TraitWriting          = "Writing/Expression"
	TraitScientific       = "Scientific"
	TraitSpatial          = "Spatial/Design"
)

// KnownTraits lists the current trait taxonomy.
var KnownTraits = []string{
	TraitLogicalReasoning, TraitMechanical, TraitCreative, TraitVerbal,
	TraitNumerical, TraitSocial, TraitLeadership, TraitDigital,
	TraitOrganizing, TraitWriting, TraitScientific, TraitSpatial,
}

// TraitRemap translates trait names from an older taxonomy into the current
// one. A renamed trait may expand into several current names.
type TraitRemap struct {
	Version string
	Renames map[string][]string
	Known   []string

	known map[string]bool
}

// TraitRemapV1 maps the first taxonomy (Analytical, Technical, ...) used by
// the shipped question bank.
var TraitRemapV1 = NewTraitRemap("v1", map[string][]string{
	"Analytical": {TraitLogicalReasoning},
	"Technical":  {TraitMechanical},
	"Spatial":    {TraitSpatial},
	"Verbal":     {TraitVerbal},
	"Creative":   {TraitCreative},
}, KnownTraits)

// TraitRemapIdentity passes current names through and drops everything else.
var TraitRemapIdentity = NewTraitRemap("v2", nil, KnownTraits)

var remaps = map[string]*TraitRemap{
	TraitRemapV1.Version:       TraitRemapV1,
	TraitRemapIdentity.Version: TraitRemapIdentity,
}

// NewTraitRemap builds a remap table.
func NewTraitRemap(version string, renames map[string][]string, known []string) *TraitRemap {
	r := &TraitRemap{
		Version: version,
		Renames: renames,
		Known:   known,
		known:   make(map[string]bool, len(known)),
	}
	for _, name := range known {
		r.known[name] = true
	}
	return r
}

// RemapFor returns the table registered for a bank taxonomy version.
// An empty version selects the current taxonomy.
func RemapFor(version string) (*TraitRemap, error) {
	if version == "" {
		return TraitRemapIdentity, nil
	}
	r, ok := remaps[version]
	if !ok {
		return nil, fmt.Errorf("unknown trait taxonomy %q", version)
	}
	return r, nil
}

// Apply returns the current names for a trait. Unmapped known names pass
// through unchanged and unknown names yield nothing.
func (r *TraitRemap) Apply(name string) []string {
	if r == nil {
		return nil
	}
	if mapped, ok := r.Renames[name]; ok {
		return mapped
	}
	if r.known[name] {
		return []string{name}
	}
	return nil
}

// Zero returns a trait vector holding every known name at zero.
func (r *TraitRemap) Zero() map[string]float64 {
	out := make(map[string]float64, len(r.Known))
	for _, name := range r.Known {
		out[name] = 0
	}
	return out
}

// SortedNames returns map keys in lexical order.
func SortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
