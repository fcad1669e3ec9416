package resolver

import "context"

// clusterISD partitions the whole graph into connected components, seeded at
// each unvisited protein in ascending index. Peptides without proteins cannot
// occur since every entry is created through a link.
func (s *store) clusterISD(ctx context.Context) ([]ISDGroup, error) {
	seen := s.newVisitSet()
	var groups []ISDGroup
	for p := range s.proteins {
		if seen.proteins[p] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proteins, peptides := s.component(p, seen, false)
		idx := len(groups)
		for _, i := range proteins {
			s.proteins[i].ISDGroup = idx
		}
		for _, j := range peptides {
			s.peptides[j].ISDGroup = idx
		}
		groups = append(groups, ISDGroup{Index: idx, Proteins: proteins, Peptides: peptides})
	}
	return groups, nil
}
