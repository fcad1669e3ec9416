package resolver

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

type msdComponent struct {
	proteins []int
	peptides []int
}

// clusterMSD splits each ISD group into the components of its experimental
// subgraph. Groups are processed concurrently; numbering follows ISD order and
// then seed order regardless of scheduling.
func (s *store) clusterMSD(ctx context.Context, isds []ISDGroup, workers int) ([]MSDGroup, error) {
	seen := s.newVisitSet()
	parts := make([][]msdComponent, len(isds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range isds {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = s.msdComponents(&isds[i], seen)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var groups []MSDGroup
	for i := range parts {
		for _, c := range parts[i] {
			idx := len(groups)
			for _, p := range c.proteins {
				s.proteins[p].MSDGroup = idx
			}
			for _, q := range c.peptides {
				s.peptides[q].MSDGroup = idx
			}
			isds[i].MSDGroups = append(isds[i].MSDGroups, idx)
			groups = append(groups, MSDGroup{
				Index:    idx,
				ISDGroup: i,
				Proteins: c.proteins,
				Peptides: c.peptides,
			})
		}
	}
	return groups, nil
}

// msdComponents only touches entries of isd, so concurrent calls on disjoint
// groups may share seen.
func (s *store) msdComponents(isd *ISDGroup, seen *visitSet) []msdComponent {
	seeds := slices.Clone(isd.Proteins)
	slices.Sort(seeds)

	var out []msdComponent
	for _, p := range seeds {
		if seen.proteins[p] || s.proteins[p].ExperimentalPeptides == 0 {
			continue
		}
		proteins, peptides := s.component(p, seen, true)
		out = append(out, msdComponent{proteins: proteins, peptides: peptides})
	}
	return out
}
