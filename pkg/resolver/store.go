package resolver

import (
	"slices"
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// store owns the protein and peptide entries of one run.
type store struct {
	proteins []ProteinEntry
	peptides []PeptideEntry
	sorted   []int // peptide indices ordered by sequence
}

func newStore(records []core.ProteinRecord) *store {
	s := &store{proteins: make([]ProteinEntry, len(records))}
	for i := range records {
		s.proteins[i] = ProteinEntry{
			Index:    i,
			Record:   &records[i],
			ISDGroup: NoGroup,
			MSDGroup: NoGroup,
		}
	}
	return s
}

// findPeptide returns the index of the entry for seq, or len(s.peptides) when
// there is none.
func (s *store) findPeptide(seq string) int {
	pos, found := s.search(seq)
	if !found {
		return len(s.peptides)
	}
	return s.sorted[pos]
}

func (s *store) search(seq string) (int, bool) {
	return slices.BinarySearchFunc(s.sorted, seq, func(idx int, target string) int {
		return strings.Compare(s.peptides[idx].Sequence, target)
	})
}

// addPeptide creates a theoretical entry for seq. The caller must have checked
// that seq is not present yet.
func (s *store) addPeptide(seq string) int {
	idx := len(s.peptides)
	s.peptides = append(s.peptides, PeptideEntry{
		Index:          idx,
		Sequence:       seq,
		Identification: -1,
		Hit:            -1,
		ISDGroup:       NoGroup,
		MSDGroup:       NoGroup,
	})
	pos, _ := s.search(seq)
	s.sorted = slices.Insert(s.sorted, pos, idx)
	return idx
}

// peptide returns the entry index for seq, creating it on first occurrence.
func (s *store) peptide(seq string) int {
	if idx := s.findPeptide(seq); idx != len(s.peptides) {
		return idx
	}
	return s.addPeptide(seq)
}

// link records the edge on both sides. Proteins are linked in ascending
// order, so a repeated edge can only be the peptide's last one.
func (s *store) link(prot, pep int) {
	q := &s.peptides[pep]
	if n := len(q.Proteins); n > 0 && q.Proteins[n-1] == prot {
		return
	}
	q.Proteins = append(q.Proteins, prot)
	s.proteins[prot].Peptides = append(s.proteins[prot].Peptides, pep)
}

// visitSet tracks which entries a single traversal pass has reached.
type visitSet struct {
	proteins []bool
	peptides []bool
}

func (s *store) newVisitSet() *visitSet {
	return &visitSet{
		proteins: make([]bool, len(s.proteins)),
		peptides: make([]bool, len(s.peptides)),
	}
}

type frame struct {
	protein bool
	idx     int
	next    int
}

// component collects the connected component reachable from protein seed, in
// the order a recursive depth-first walk would first visit its members. With
// experimentalOnly set, theoretical peptides are not entered.
func (s *store) component(seed int, seen *visitSet, experimentalOnly bool) (proteins, peptides []int) {
	seen.proteins[seed] = true
	proteins = append(proteins, seed)
	stack := []frame{{protein: true, idx: seed}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.protein {
			adj := s.proteins[top.idx].Peptides
			if top.next == len(adj) {
				stack = stack[:len(stack)-1]
				continue
			}
			q := adj[top.next]
			top.next++
			if seen.peptides[q] || (experimentalOnly && !s.peptides[q].Experimental) {
				continue
			}
			seen.peptides[q] = true
			peptides = append(peptides, q)
			stack = append(stack, frame{idx: q})
			continue
		}

		adj := s.peptides[top.idx].Proteins
		if top.next == len(adj) {
			stack = stack[:len(stack)-1]
			continue
		}
		p := adj[top.next]
		top.next++
		if seen.proteins[p] {
			continue
		}
		seen.proteins[p] = true
		proteins = append(proteins, p)
		stack = append(stack, frame{protein: true, idx: p})
	}
	return proteins, peptides
}
