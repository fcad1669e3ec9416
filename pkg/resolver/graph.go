package resolver

import (
	"context"
	"slices"
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/digest"
)

// observation is one experimental sighting of a peptide sequence.
type observation struct {
	sequence  string
	ident     int
	hit       int
	intensity *float64
}

type evidence struct {
	origin       string
	kind         InputType
	observations []observation
}

// identificationEvidence addresses every hit of every identification.
func identificationEvidence(run *core.IdentificationRun) evidence {
	ev := evidence{origin: run.ID, kind: PeptideIdent}
	for i := range run.Identifications {
		for j := range run.Identifications[i].Hits {
			hit := &run.Identifications[i].Hits[j]
			ev.observations = append(ev.observations, observation{
				sequence:  hit.Sequence,
				ident:     i,
				hit:       j,
				intensity: hit.Intensity,
			})
		}
	}
	return ev
}

// consensusEvidence takes the best hit of each feature identification, with
// the feature intensity.
func consensusEvidence(cmap *core.ConsensusMap) evidence {
	ev := evidence{origin: cmap.ID, kind: Consensus}
	for i := range cmap.Features {
		f := &cmap.Features[i]
		for j := range f.Identifications {
			if len(f.Identifications[j].Hits) == 0 {
				continue
			}
			ev.observations = append(ev.observations, observation{
				sequence:  f.Identifications[j].Hits[0].Sequence,
				ident:     i,
				hit:       j,
				intensity: &f.Intensity,
			})
		}
	}
	return ev
}

// digestProteins links every protein to its in-silico peptides.
func (s *store) digestProteins(ctx context.Context, d digest.Digester) error {
	for i := range s.proteins {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, seq := range d.Digest(s.proteins[i].Record.Sequence) {
			s.link(i, s.peptide(seq))
		}
	}
	return nil
}

// ingest flags observed peptides as experimental and returns the number of
// distinct sequences that no protein contains. An empty sequence is never
// matched.
func (s *store) ingest(ev evidence, matchUndigested bool) int {
	unmatched := make(map[string]struct{})
	for _, o := range ev.observations {
		if o.sequence == "" {
			unmatched[""] = struct{}{}
			continue
		}
		idx := s.findPeptide(o.sequence)
		if idx == len(s.peptides) {
			if _, missed := unmatched[o.sequence]; missed {
				continue
			}
			var ok bool
			if matchUndigested {
				idx, ok = s.matchContained(o.sequence)
			}
			if !ok {
				unmatched[o.sequence] = struct{}{}
				continue
			}
		}
		s.observe(idx, o, ev.origin)
	}
	return len(unmatched)
}

// matchContained links seq to every protein whose sequence contains it.
func (s *store) matchContained(seq string) (int, bool) {
	idx := -1
	for i := range s.proteins {
		if !strings.Contains(s.proteins[i].Record.Sequence, seq) {
			continue
		}
		if idx < 0 {
			idx = s.addPeptide(seq)
		}
		s.link(i, idx)
	}
	return idx, idx >= 0
}

// observe records the first sighting's back reference and the first intensity seen.
func (s *store) observe(idx int, o observation, origin string) {
	q := &s.peptides[idx]
	if !q.Experimental {
		q.Experimental = true
		q.Identification = o.ident
		q.Hit = o.hit
		q.Origin = origin
	}
	if !q.Quantified && o.intensity != nil {
		q.Intensity = *o.intensity
		q.Quantified = true
	}
}

func (s *store) countExperimental() {
	for i := range s.proteins {
		p := &s.proteins[i]
		p.ExperimentalPeptides = 0
		for _, q := range p.Peptides {
			if s.peptides[q].Experimental {
				p.ExperimentalPeptides++
			}
		}
	}
}

// verifyAdjacency checks that every edge is recorded on both sides.
func (s *store) verifyAdjacency() error {
	for i := range s.proteins {
		for _, q := range s.proteins[i].Peptides {
			if q < 0 || q >= len(s.peptides) {
				return &InvariantError{Protein: i, Peptide: q, Message: "peptide index out of range"}
			}
			if !slices.Contains(s.peptides[q].Proteins, i) {
				return &InvariantError{Protein: i, Peptide: q, Message: "peptide does not list protein"}
			}
		}
	}
	for j := range s.peptides {
		for _, p := range s.peptides[j].Proteins {
			if p < 0 || p >= len(s.proteins) {
				return &InvariantError{Protein: p, Peptide: j, Message: "protein index out of range"}
			}
			if !slices.Contains(s.proteins[p].Peptides, j) {
				return &InvariantError{Protein: p, Peptide: j, Message: "protein does not list peptide"}
			}
		}
	}
	return nil
}
