// Package resolver groups candidate proteins by their shared peptide evidence.
//
// A resolution run links proteins to their in-silico digestion products and to
// the experimentally observed peptides, then partitions the bipartite graph
// twice: ISD groups are connected components over every peptide, MSD groups are
// the components left when only experimental peptides are followed. Proteins
// inside MSD groups are classified as primary, secondary or indistinguishable,
// and each MSD group carries target/decoy counts and a median intensity.
package resolver

import (
	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// NoGroup marks an entry that belongs to no MSD group.
const NoGroup = -1

// ProteinType is the classification of a protein within its MSD group.
type ProteinType int

const (
	Unclassified ProteinType = iota
	Primary
	Secondary
	PrimaryIndistinguishable
	SecondaryIndistinguishable
)

func (t ProteinType) String() string {
	switch t {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case PrimaryIndistinguishable:
		return "primary_indistinguishable"
	case SecondaryIndistinguishable:
		return "secondary_indistinguishable"
	default:
		return "unclassified"
	}
}

// InputType is the kind of evidence a result was built from.
type InputType int

const (
	PeptideIdent InputType = iota
	Consensus
)

func (t InputType) String() string {
	if t == Consensus {
		return "consensus"
	}
	return "peptide_ident"
}

// ProteinEntry is one candidate protein of a run.
type ProteinEntry struct {
	Index                int
	Record               *core.ProteinRecord
	Type                 ProteinType
	Weight               float64 // monoisotopic, unmodified
	Coverage             float64 // fraction of residues covered by experimental peptides
	ISDGroup             int
	MSDGroup             int
	ExperimentalPeptides int
	Peptides             []int // peptide indices, theoretical and experimental
	Indistinguishable    []int // fellow protein indices, ascending
}

// PeptideEntry is one distinct peptide sequence of a run.
type PeptideEntry struct {
	Index          int
	Sequence       string
	Experimental   bool
	Identification int // evidence back reference, -1 if theoretical
	Hit            int
	Origin         string
	Intensity      float64
	Quantified     bool
	ISDGroup       int
	MSDGroup       int
	Proteins       []int
}

// ISDGroup is a connected component of the full protein-peptide graph.
type ISDGroup struct {
	Index     int
	Proteins  []int
	Peptides  []int
	MSDGroups []int
}

// MSDGroup is a connected component of the experimental subgraph of one ISD group.
type MSDGroup struct {
	Index              int
	ISDGroup           int
	Proteins           []int
	Peptides           []int
	Targets            int
	Decoys             int
	TargetPlusDecoy    int
	Intensity          float64
	QuantifiedPeptides int
}

// Result is the outcome of one resolution run. Entries and groups refer to
// each other by index into the slices of the same Result.
type Result struct {
	Identifier        string
	InputType         InputType
	ISDGroups         []ISDGroup
	MSDGroups         []MSDGroup
	Proteins          []ProteinEntry
	Peptides          []PeptideEntry
	ReindexedProteins []int // original index -> dense index, len(table) when absent
	ReindexedPeptides []int
	UnmatchedPeptides int

	Identifications []core.PeptideIdentification
	Consensus       *core.ConsensusMap
}

// ReindexedProtein returns the dense index of protein i, or false when the
// protein has no experimental support.
func (r *Result) ReindexedProtein(i int) (int, bool) {
	return lookupDense(r.ReindexedProteins, i)
}

// ReindexedPeptide returns the dense index of peptide i, or false when the
// peptide is not part of an MSD group.
func (r *Result) ReindexedPeptide(i int) (int, bool) {
	return lookupDense(r.ReindexedPeptides, i)
}

func lookupDense(table []int, i int) (int, bool) {
	if i < 0 || i >= len(table) || table[i] == len(table) {
		return 0, false
	}
	return table[i], true
}

// CountByType tallies proteins per classification.
func (r *Result) CountByType() map[ProteinType]int {
	counts := make(map[ProteinType]int)
	for i := range r.Proteins {
		counts[r.Proteins[i].Type]++
	}
	return counts
}
