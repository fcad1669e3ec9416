package resolver

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// classify assigns protein types within every MSD group. Proteins with the
// same set of experimental peptides form one class; a class is primary when
// one of its peptides is contained by the class members and nobody else.
func (s *store) classify(ctx context.Context, msds []MSDGroup, rx *Reindexing, workers int) error {
	if rx == nil {
		return ErrNotReindexed
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range msds {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.classifyGroup(&msds[i], rx)
		})
	}
	return g.Wait()
}

type proteinClass struct {
	members  []int
	peptides []int // original peptide indices
}

func (s *store) classifyGroup(msd *MSDGroup, rx *Reindexing) error {
	var classes []*proteinClass
	byKey := make(map[string]*proteinClass)

	for _, p := range msd.Proteins {
		peptides, key, err := s.experimentalKey(p, rx)
		if err != nil {
			return fmt.Errorf("MSD group %d: %w", msd.Index, err)
		}
		c, ok := byKey[key]
		if !ok {
			c = &proteinClass{peptides: peptides}
			byKey[key] = c
			classes = append(classes, c)
		}
		c.members = append(c.members, p)
	}

	for _, c := range classes {
		primary := false
		for _, q := range c.peptides {
			if len(s.peptides[q].Proteins) == len(c.members) {
				primary = true
				break
			}
		}

		if len(c.members) == 1 {
			p := &s.proteins[c.members[0]]
			p.Type = Secondary
			if primary {
				p.Type = Primary
			}
			continue
		}

		sorted := slices.Clone(c.members)
		slices.Sort(sorted)
		for _, idx := range c.members {
			p := &s.proteins[idx]
			p.Type = SecondaryIndistinguishable
			if primary {
				p.Type = PrimaryIndistinguishable
			}
			p.Indistinguishable = slices.DeleteFunc(slices.Clone(sorted), func(other int) bool {
				return other == idx
			})
		}
	}
	return nil
}

// experimentalKey returns the protein's experimental peptides and a key built
// from their sorted dense indices.
func (s *store) experimentalKey(p int, rx *Reindexing) ([]int, string, error) {
	var peptides, dense []int
	for _, q := range s.proteins[p].Peptides {
		if !s.peptides[q].Experimental {
			continue
		}
		d, ok := rx.peptide(q)
		if !ok {
			return nil, "", &InvariantError{Protein: p, Peptide: q, Message: "experimental peptide missing from reindexing"}
		}
		peptides = append(peptides, q)
		dense = append(dense, d)
	}
	slices.Sort(dense)

	var b strings.Builder
	for i, d := range dense {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	return peptides, b.String(), nil
}
