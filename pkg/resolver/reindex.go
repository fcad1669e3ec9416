package resolver

// Reindexing maps original protein and peptide indices to dense indices over
// the entries that belong to an MSD group. Absent entries map to the length
// of their table. Only reindex creates one, and classify requires it.
type Reindexing struct {
	Proteins []int
	Peptides []int
}

// reindex numbers MSD members in group order, then member order.
func reindex(numProteins, numPeptides int, msds []MSDGroup) *Reindexing {
	rx := &Reindexing{
		Proteins: absentTable(numProteins),
		Peptides: absentTable(numPeptides),
	}
	nextProtein, nextPeptide := 0, 0
	for i := range msds {
		for _, p := range msds[i].Proteins {
			rx.Proteins[p] = nextProtein
			nextProtein++
		}
		for _, q := range msds[i].Peptides {
			rx.Peptides[q] = nextPeptide
			nextPeptide++
		}
	}
	return rx
}

func absentTable(n int) []int {
	t := make([]int, n)
	for i := range t {
		t[i] = n
	}
	return t
}

// peptide returns the dense index of peptide q.
func (rx *Reindexing) peptide(q int) (int, bool) {
	return lookupDense(rx.Peptides, q)
}
