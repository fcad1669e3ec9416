package resolver

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// aggregate fills the target/decoy counters and median intensity of every MSD group.
func (s *store) aggregate(msds []MSDGroup, decoys core.DecoyClassifier) {
	for i := range msds {
		m := &msds[i]
		m.Targets, m.Decoys = 0, 0
		for _, p := range m.Proteins {
			if decoys.IsDecoy(s.proteins[p].Record) {
				m.Decoys++
			} else {
				m.Targets++
			}
		}
		m.TargetPlusDecoy = m.Targets + m.Decoys

		var intensities []float64
		for _, q := range m.Peptides {
			if s.peptides[q].Quantified {
				intensities = append(intensities, s.peptides[q].Intensity)
			}
		}
		m.QuantifiedPeptides = len(intensities)
		m.Intensity = median(intensities)
	}
}

// median sorts values in place. An even count averages the two central
// values; no values gives 0.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, values, nil)
	}
	return stat.Mean(values[n/2-1:n/2+1], nil)
}
