// Package core provides the protein and peptide evidence models and validation logic
// shared by the readers, the resolver and the writers.
package core

import (
	"fmt"
	"strings"
)

// ProteinRecord represents one candidate protein from a sequence database.
type ProteinRecord struct {
	Accession   string // Database accession (first token of the FASTA header)
	Description string // Remainder of the FASTA header
	Sequence    string // Upper-case amino acid sequence
	Decoy       bool   // Set when the database marks the entry as decoy
}

// ValidationError represents an error found during record validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a protein record can be digested and matched.
func (p *ProteinRecord) Validate() error {
	var errs []string

	if p.Accession == "" {
		errs = append(errs, "accession is required")
	}
	if p.Sequence == "" {
		errs = append(errs, "sequence is required")
	}
	for i, aa := range p.Sequence {
		if aa < 'A' || aa > 'Z' {
			errs = append(errs, fmt.Sprintf("invalid residue %q at position %d", aa, i))
			break
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Protein " + p.Accession,
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ValidateProteins validates every record and reports the first failure
// together with its position in the slice.
func ValidateProteins(proteins []ProteinRecord) error {
	seen := make(map[string]int, len(proteins))
	for i := range proteins {
		if err := proteins[i].Validate(); err != nil {
			return fmt.Errorf("protein %d: %w", i, err)
		}
		if j, ok := seen[proteins[i].Accession]; ok {
			return &ValidationError{
				Field:   "Protein " + proteins[i].Accession,
				Message: fmt.Sprintf("duplicate accession (records %d and %d)", j, i),
			}
		}
		seen[proteins[i].Accession] = i
	}
	return nil
}
