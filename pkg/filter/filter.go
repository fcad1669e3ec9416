// Package filter provides peptide evidence filtering applied before protein resolution
package filter

import (
	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	ScoreThreshold    *float64 // Keep hits scoring at least this well (nil = no threshold)
	HigherScoreBetter bool     // Score direction; false for e-values and q-values
	BestHitOnly       bool     // Keep only the best hit of each identification
	MinPeptideLength  int      // Drop hits with shorter sequences (0 = no limit)
	MinIntensity      float64  // Drop consensus features below this intensity (0 = no cutoff)
}

// Stats reports what a filter pass removed.
type Stats struct {
	HitsIn             int
	HitsOut            int
	FeaturesRemoved    int
	EmptyIdentsDropped int
}

// ApplyIdentifications filters the hits of a run in place. Identifications left
// without hits are dropped, so hit and identification indices refer to the
// filtered run afterwards.
func (c *Config) ApplyIdentifications(run *core.IdentificationRun) Stats {
	var st Stats
	kept := run.Identifications[:0]
	for i := range run.Identifications {
		id := run.Identifications[i]
		st.HitsIn += len(id.Hits)
		c.filterHits(&id)
		st.HitsOut += len(id.Hits)
		if len(id.Hits) == 0 {
			st.EmptyIdentsDropped++
			continue
		}
		kept = append(kept, id)
	}
	run.Identifications = kept
	return st
}

// ApplyConsensus filters feature intensities and the identifications annotated
// to each feature in place.
func (c *Config) ApplyConsensus(cmap *core.ConsensusMap) Stats {
	var st Stats
	kept := cmap.Features[:0]
	for i := range cmap.Features {
		f := cmap.Features[i]
		if c.MinIntensity > 0 && f.Intensity < c.MinIntensity {
			st.FeaturesRemoved++
			continue
		}
		ids := f.Identifications[:0]
		for j := range f.Identifications {
			id := f.Identifications[j]
			st.HitsIn += len(id.Hits)
			c.filterHits(&id)
			st.HitsOut += len(id.Hits)
			if len(id.Hits) == 0 {
				st.EmptyIdentsDropped++
				continue
			}
			ids = append(ids, id)
		}
		f.Identifications = ids
		kept = append(kept, f)
	}
	cmap.Features = kept
	return st
}

// filterHits sorts hits best first and drops the ones failing the configured checks
func (c *Config) filterHits(id *core.PeptideIdentification) {
	if len(id.Hits) == 0 {
		return
	}
	id.SortHits(c.HigherScoreBetter)

	var filtered []core.PeptideHit
	for _, hit := range id.Hits {
		if c.MinPeptideLength > 0 && len(hit.Sequence) < c.MinPeptideLength {
			continue
		}
		if !c.passesScore(hit.Score) {
			continue
		}
		filtered = append(filtered, hit)
		if c.BestHitOnly {
			break
		}
	}
	id.Hits = filtered
}

func (c *Config) passesScore(score float64) bool {
	if c.ScoreThreshold == nil {
		return true
	}
	if c.HigherScoreBetter {
		return score >= *c.ScoreThreshold
	}
	return score <= *c.ScoreThreshold
}

// ApplyIntensities attaches per-peptide intensities (keyed by unmodified
// sequence) to every matching hit of the run that has none yet.
func ApplyIntensities(run *core.IdentificationRun, intensities map[string]float64) int {
	n := 0
	for i := range run.Identifications {
		for j := range run.Identifications[i].Hits {
			hit := &run.Identifications[i].Hits[j]
			if hit.Intensity != nil {
				continue
			}
			if v, ok := intensities[hit.Sequence]; ok {
				hit.Intensity = &v
				n++
			}
		}
	}
	return n
}
