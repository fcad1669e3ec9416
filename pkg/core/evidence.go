package core

import (
	"fmt"
	"sort"
	"strings"
)

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0-based residue position; -1 for N-term, len(seq) for C-term
	Name     string // Modification name (e.g., "Carbamidomethyl", "Oxidation")
}

// PeptideHit is one candidate peptide for a spectrum.
type PeptideHit struct {
	Sequence      string // Unmodified sequence
	Modifications []Modification
	Charge        int
	Score         float64
	Rank          int
	Accessions    []string // Proteins the search engine reported for this hit
	Intensity     *float64 // Optional quantitative value
}

// PeptideIdentification groups the hits reported for one spectrum.
type PeptideIdentification struct {
	SpectrumID    string
	RetentionTime float64 // seconds, -1 when unknown
	Charge        int
	Hits          []PeptideHit
}

// IdentificationRun is a list of identifications from one search run.
type IdentificationRun struct {
	ID              string
	Identifications []PeptideIdentification
}

// ConsensusFeature is one quantified feature of a consensus map with the
// identifications annotated to it.
type ConsensusFeature struct {
	ID              string
	Intensity       float64
	Identifications []PeptideIdentification
}

// ConsensusMap is a quantification map built from one or more runs.
type ConsensusMap struct {
	ID       string
	Features []ConsensusFeature
}

// NumHits returns the total number of peptide hits in the run.
func (r *IdentificationRun) NumHits() int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.Identifications {
		n += len(r.Identifications[i].Hits)
	}
	return n
}

// NumHits returns the number of feature identifications carrying at least one hit.
// Only the best hit of each identification counts as consensus evidence.
func (m *ConsensusMap) NumHits() int {
	if m == nil {
		return 0
	}
	n := 0
	for i := range m.Features {
		for j := range m.Features[i].Identifications {
			if len(m.Features[i].Identifications[j].Hits) > 0 {
				n++
			}
		}
	}
	return n
}

// Validate checks that a hit can be matched against protein sequences.
func (h *PeptideHit) Validate() error {
	if h.Sequence == "" {
		return &ValidationError{Field: "PeptideHit", Message: "sequence is required"}
	}
	for i, aa := range h.Sequence {
		if aa < 'A' || aa > 'Z' {
			return &ValidationError{
				Field:   "PeptideHit " + h.Sequence,
				Message: fmt.Sprintf("invalid residue %q at position %d", aa, i),
			}
		}
	}
	return nil
}

// Validate checks every hit of every identification in the run.
func (r *IdentificationRun) Validate() error {
	var errs []string
	for i := range r.Identifications {
		for j := range r.Identifications[i].Hits {
			if err := r.Identifications[i].Hits[j].Validate(); err != nil {
				errs = append(errs, fmt.Sprintf("identification %d hit %d: %v", i, j, err))
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Field: "IdentificationRun " + r.ID, Message: strings.Join(errs, "; ")}
	}
	return nil
}

// Validate checks feature intensities and the hits annotated to features.
func (m *ConsensusMap) Validate() error {
	var errs []string
	for i := range m.Features {
		if m.Features[i].Intensity < 0 {
			errs = append(errs, fmt.Sprintf("feature %d intensity must be non-negative", i))
		}
		for j := range m.Features[i].Identifications {
			for k := range m.Features[i].Identifications[j].Hits {
				if err := m.Features[i].Identifications[j].Hits[k].Validate(); err != nil {
					errs = append(errs, fmt.Sprintf("feature %d identification %d hit %d: %v", i, j, k, err))
				}
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Field: "ConsensusMap " + m.ID, Message: strings.Join(errs, "; ")}
	}
	return nil
}

// SortHits orders hits by score, best first. Ties keep their input order.
func (id *PeptideIdentification) SortHits(higherScoreBetter bool) {
	sort.SliceStable(id.Hits, func(i, j int) bool {
		if higherScoreBetter {
			return id.Hits[i].Score > id.Hits[j].Score
		}
		return id.Hits[i].Score < id.Hits[j].Score
	})
	for i := range id.Hits {
		id.Hits[i].Rank = i + 1
	}
}

// ModString returns a string representation of modifications in format "mass@pos;mass@pos;..."
func (h *PeptideHit) ModString() string {
	if len(h.Modifications) == 0 {
		return ""
	}

	var parts []string
	for _, mod := range h.Modifications {
		parts = append(parts, fmt.Sprintf("%.6f@%d", mod.Mass, mod.Position))
	}
	return strings.Join(parts, ";")
}
