package resolver

import (
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// annotate computes protein weight and experimental sequence coverage.
func (s *store) annotate() {
	for i := range s.proteins {
		p := &s.proteins[i]
		seq := p.Record.Sequence
		p.Weight = core.CalculateProteinMass(seq)
		if seq == "" || p.ExperimentalPeptides == 0 {
			p.Coverage = 0
			continue
		}

		covered := make([]bool, len(seq))
		for _, q := range p.Peptides {
			if s.peptides[q].Experimental {
				markOccurrences(covered, seq, s.peptides[q].Sequence)
			}
		}
		n := 0
		for _, c := range covered {
			if c {
				n++
			}
		}
		p.Coverage = float64(n) / float64(len(seq))
	}
}

func markOccurrences(covered []bool, seq, pep string) {
	for from := 0; from <= len(seq)-len(pep); {
		at := strings.Index(seq[from:], pep)
		if at < 0 {
			return
		}
		start := from + at
		for k := start; k < start+len(pep); k++ {
			covered[k] = true
		}
		from = start + 1
	}
}
