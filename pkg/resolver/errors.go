package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReindexed is returned when classification is attempted without a
	// reindexing of the same run.
	ErrNotReindexed = errors.New("proteins must be reindexed before classification")
	// ErrInconsistentAdjacency reports a protein-peptide edge recorded on one side only.
	ErrInconsistentAdjacency = errors.New("inconsistent protein-peptide adjacency")
	// ErrNotExperimental is returned by accessors called on a theoretical peptide.
	ErrNotExperimental = errors.New("peptide has no experimental evidence")
	// ErrEvidenceIndex is returned when a back reference does not fit the evidence.
	ErrEvidenceIndex = errors.New("evidence index out of range")
	// ErrInputType is returned when an accessor does not match the result's input type.
	ErrInputType = errors.New("result was built from a different input type")
)

// InvariantError describes a corrupted graph detected after building it.
type InvariantError struct {
	Protein int
	Peptide int
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("protein %d / peptide %d: %s", e.Protein, e.Peptide, e.Message)
}

func (e *InvariantError) Unwrap() error {
	return ErrInconsistentAdjacency
}
