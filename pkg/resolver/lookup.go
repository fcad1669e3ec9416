package resolver

import (
	"fmt"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// IdentificationOf returns the identification that first reported pep.
func IdentificationOf(ids []core.PeptideIdentification, pep *PeptideEntry) (*core.PeptideIdentification, error) {
	if !pep.Experimental {
		return nil, fmt.Errorf("%s: %w", pep.Sequence, ErrNotExperimental)
	}
	if pep.Identification < 0 || pep.Identification >= len(ids) {
		return nil, fmt.Errorf("%s: identification %d of %d: %w", pep.Sequence, pep.Identification, len(ids), ErrEvidenceIndex)
	}
	return &ids[pep.Identification], nil
}

// HitOf returns the hit that first reported pep.
func HitOf(ids []core.PeptideIdentification, pep *PeptideEntry) (*core.PeptideHit, error) {
	id, err := IdentificationOf(ids, pep)
	if err != nil {
		return nil, err
	}
	if pep.Hit < 0 || pep.Hit >= len(id.Hits) {
		return nil, fmt.Errorf("%s: hit %d of %d: %w", pep.Sequence, pep.Hit, len(id.Hits), ErrEvidenceIndex)
	}
	return &id.Hits[pep.Hit], nil
}

// ConsensusFeatureOf returns the consensus feature that first reported pep.
func ConsensusFeatureOf(cmap *core.ConsensusMap, pep *PeptideEntry) (*core.ConsensusFeature, error) {
	if !pep.Experimental {
		return nil, fmt.Errorf("%s: %w", pep.Sequence, ErrNotExperimental)
	}
	if cmap == nil || pep.Identification < 0 || pep.Identification >= len(cmap.Features) {
		return nil, fmt.Errorf("%s: feature %d: %w", pep.Sequence, pep.Identification, ErrEvidenceIndex)
	}
	return &cmap.Features[pep.Identification], nil
}

// ConsensusIdentificationOf returns the feature identification that first reported pep.
func ConsensusIdentificationOf(cmap *core.ConsensusMap, pep *PeptideEntry) (*core.PeptideIdentification, error) {
	f, err := ConsensusFeatureOf(cmap, pep)
	if err != nil {
		return nil, err
	}
	if pep.Hit < 0 || pep.Hit >= len(f.Identifications) {
		return nil, fmt.Errorf("%s: feature identification %d of %d: %w", pep.Sequence, pep.Hit, len(f.Identifications), ErrEvidenceIndex)
	}
	return &f.Identifications[pep.Hit], nil
}

// ConsensusHitOf returns the best hit of the feature identification that
// first reported pep.
func ConsensusHitOf(cmap *core.ConsensusMap, pep *PeptideEntry) (*core.PeptideHit, error) {
	id, err := ConsensusIdentificationOf(cmap, pep)
	if err != nil {
		return nil, err
	}
	if len(id.Hits) == 0 {
		return nil, fmt.Errorf("%s: feature identification has no hits: %w", pep.Sequence, ErrEvidenceIndex)
	}
	return &id.Hits[0], nil
}

// Identification returns the identification record behind pep, whatever the
// input type of the result.
func (r *Result) Identification(pep *PeptideEntry) (*core.PeptideIdentification, error) {
	if r.InputType == Consensus {
		return ConsensusIdentificationOf(r.Consensus, pep)
	}
	return IdentificationOf(r.Identifications, pep)
}

// Hit returns the peptide hit behind pep.
func (r *Result) Hit(pep *PeptideEntry) (*core.PeptideHit, error) {
	if r.InputType == Consensus {
		return ConsensusHitOf(r.Consensus, pep)
	}
	return HitOf(r.Identifications, pep)
}

// Feature returns the consensus feature behind pep. It fails with
// ErrInputType for identification results.
func (r *Result) Feature(pep *PeptideEntry) (*core.ConsensusFeature, error) {
	if r.InputType != Consensus {
		return nil, fmt.Errorf("feature lookup on %s result: %w", r.InputType, ErrInputType)
	}
	return ConsensusFeatureOf(r.Consensus, pep)
}
