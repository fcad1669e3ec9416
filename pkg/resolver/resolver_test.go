package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/digest"
	"github.com/ChrisMcGann/ProtResolve/pkg/metrics"
)

// fixedDigest returns a preset peptide list per protein sequence.
type fixedDigest map[string][]string

func (d fixedDigest) Digest(sequence string) []string {
	return d[sequence]
}

func tryptic() digest.Digester {
	return &digest.Protease{Enzyme: digest.Trypsin, MinLength: 2}
}

func identRun(id string, seqs ...string) *core.IdentificationRun {
	run := &core.IdentificationRun{ID: id}
	for i, seq := range seqs {
		run.Identifications = append(run.Identifications, core.PeptideIdentification{
			SpectrumID: fmt.Sprintf("scan=%d", i+1),
			Hits:       []core.PeptideHit{{Sequence: seq, Rank: 1}},
		})
	}
	return run
}

func scenarioProteins() []core.ProteinRecord {
	return []core.ProteinRecord{
		{Accession: "A", Sequence: "MKTAYIAKGGLR"},
		{Accession: "B", Sequence: "MKTAYIAKQRWW"},
	}
}

func peptideIndex(t *testing.T, res *Result, seq string) int {
	t.Helper()
	for i := range res.Peptides {
		if res.Peptides[i].Sequence == seq {
			return i
		}
	}
	t.Fatalf("peptide %s not in result", seq)
	return -1
}

func TestSharedPeptideScenario(t *testing.T) {
	tests := []struct {
		name         string
		experimental []string
		wantMSD      []MSDGroup
		wantTypes    []ProteinType
	}{
		{
			name:         "unique peptides only",
			experimental: []string{"GGLR", "QR"},
			wantMSD: []MSDGroup{
				{Index: 0, ISDGroup: 0, Proteins: []int{0}, Peptides: []int{2}, Targets: 1, TargetPlusDecoy: 1},
				{Index: 1, ISDGroup: 0, Proteins: []int{1}, Peptides: []int{3}, Targets: 1, TargetPlusDecoy: 1},
			},
			wantTypes: []ProteinType{Primary, Primary},
		},
		{
			name:         "shared peptide bridges",
			experimental: []string{"GGLR", "QR", "TAYIAK"},
			wantMSD: []MSDGroup{
				{Index: 0, ISDGroup: 0, Proteins: []int{0, 1}, Peptides: []int{1, 3, 2}, Targets: 2, TargetPlusDecoy: 2},
			},
			wantTypes: []ProteinType{Primary, Primary},
		},
		{
			name:         "shared peptide alone",
			experimental: []string{"TAYIAK"},
			wantMSD: []MSDGroup{
				{Index: 0, ISDGroup: 0, Proteins: []int{0, 1}, Peptides: []int{1}, Targets: 2, TargetPlusDecoy: 2},
			},
			wantTypes: []ProteinType{PrimaryIndistinguishable, PrimaryIndistinguishable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithDigester(tryptic()))
			res, err := r.ResolveIdentifications(context.Background(), scenarioProteins(), identRun("run1", tt.experimental...))
			require.NoError(t, err)

			require.Len(t, res.ISDGroups, 1)
			isd := res.ISDGroups[0]
			assert.Equal(t, []int{0, 1}, isd.Proteins)
			assert.Equal(t, []int{0, 1, 3, 4, 2}, isd.Peptides)
			assert.Len(t, isd.MSDGroups, len(tt.wantMSD))

			if diff := cmp.Diff(tt.wantMSD, res.MSDGroups); diff != "" {
				t.Errorf("MSD groups mismatch (-want +got):\n%s", diff)
			}
			for i, want := range tt.wantTypes {
				assert.Equal(t, want, res.Proteins[i].Type, "protein %d", i)
			}
			checkInvariants(t, res)
		})
	}
}

func TestPeptideOrderFollowsDigestion(t *testing.T) {
	r := New(WithDigester(tryptic()))
	res, err := r.ResolveIdentifications(context.Background(), scenarioProteins(), identRun("run1", "QR"))
	require.NoError(t, err)

	var seqs []string
	for _, p := range res.Peptides {
		seqs = append(seqs, p.Sequence)
	}
	assert.Equal(t, []string{"MK", "TAYIAK", "GGLR", "QR", "WW"}, seqs)
	assert.Equal(t, []int{0, 1, 2}, res.Proteins[0].Peptides)
	assert.Equal(t, []int{0, 1, 3, 4}, res.Proteins[1].Peptides)
	assert.Equal(t, []int{0, 1}, res.Peptides[1].Proteins)
}

func TestClassification(t *testing.T) {
	d := fixedDigest{
		"ONE":   {"XXK", "YYK"},
		"TWO":   {"XXK"},
		"THREE": {"XXK"},
		"FOUR":  {"ZZK"},
	}

	t.Run("subset protein is secondary", func(t *testing.T) {
		proteins := []core.ProteinRecord{
			{Accession: "P1", Sequence: "ONE"},
			{Accession: "P2", Sequence: "TWO"},
		}
		res, err := New(WithDigester(d)).ResolveIdentifications(context.Background(), proteins, identRun("r", "XXK", "YYK"))
		require.NoError(t, err)

		assert.Equal(t, Primary, res.Proteins[0].Type)
		assert.Equal(t, Secondary, res.Proteins[1].Type)
		assert.Empty(t, res.Proteins[0].Indistinguishable)
	})

	t.Run("identical subsets are indistinguishable", func(t *testing.T) {
		proteins := []core.ProteinRecord{
			{Accession: "P1", Sequence: "ONE"},
			{Accession: "P2", Sequence: "TWO"},
			{Accession: "P3", Sequence: "THREE"},
		}
		res, err := New(WithDigester(d)).ResolveIdentifications(context.Background(), proteins, identRun("r", "XXK", "YYK"))
		require.NoError(t, err)

		assert.Equal(t, Primary, res.Proteins[0].Type)
		assert.Equal(t, SecondaryIndistinguishable, res.Proteins[1].Type)
		assert.Equal(t, SecondaryIndistinguishable, res.Proteins[2].Type)
		assert.Equal(t, []int{2}, res.Proteins[1].Indistinguishable)
		assert.Equal(t, []int{1}, res.Proteins[2].Indistinguishable)
	})

	t.Run("unsupported protein stays unclassified", func(t *testing.T) {
		proteins := []core.ProteinRecord{
			{Accession: "P1", Sequence: "ONE"},
			{Accession: "P4", Sequence: "FOUR"},
		}
		res, err := New(WithDigester(d)).ResolveIdentifications(context.Background(), proteins, identRun("r", "XXK"))
		require.NoError(t, err)

		assert.Equal(t, Primary, res.Proteins[0].Type)
		assert.Equal(t, Unclassified, res.Proteins[1].Type)
		assert.Equal(t, NoGroup, res.Proteins[1].MSDGroup)
		assert.Equal(t, 1, res.Proteins[1].ISDGroup)

		_, ok := res.ReindexedProtein(1)
		assert.False(t, ok)
		assert.Equal(t, len(res.ReindexedProteins), res.ReindexedProteins[1])
		dense, ok := res.ReindexedProtein(0)
		assert.True(t, ok)
		assert.Equal(t, 0, dense)
		for _, m := range res.MSDGroups {
			assert.NotContains(t, m.Proteins, 1)
		}
	})
}

func TestTargetDecoyCounts(t *testing.T) {
	proteins := []core.ProteinRecord{
		{Accession: "P1", Sequence: "PEPTIDEKAAAR"},
		{Accession: "P2", Sequence: "PEPTIDEKCCCR"},
		{Accession: "DECOY_P3", Sequence: "PEPTIDEKGGGR"},
	}
	res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), proteins, identRun("td", "PEPTIDEK"))
	require.NoError(t, err)

	require.Len(t, res.MSDGroups, 1)
	m := res.MSDGroups[0]
	assert.Equal(t, 2, m.Targets)
	assert.Equal(t, 1, m.Decoys)
	assert.Equal(t, 3, m.TargetPlusDecoy)
	for i := range res.Proteins {
		assert.Equal(t, PrimaryIndistinguishable, res.Proteins[i].Type)
	}
	assert.Equal(t, []int{1, 2}, res.Proteins[0].Indistinguishable)
	assert.Equal(t, []int{0, 2}, res.Proteins[1].Indistinguishable)
}

func TestMedianIntensity(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3}, 3},
		{"odd", []float64{6, 2, 4}, 4},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, median(tt.values), 1e-12)
		})
	}
}

func TestGroupIntensity(t *testing.T) {
	d := fixedDigest{"ONE": {"AAK", "CCK", "DDK", "EEK"}}
	proteins := []core.ProteinRecord{{Accession: "P1", Sequence: "ONE"}}
	run := identRun("q", "AAK", "CCK", "DDK", "EEK", "AAK")
	for i, v := range []float64{1, 2, 3, 4, 100} {
		v := v
		run.Identifications[i].Hits[0].Intensity = &v
	}

	res, err := New(WithDigester(d)).ResolveIdentifications(context.Background(), proteins, run)
	require.NoError(t, err)

	require.Len(t, res.MSDGroups, 1)
	assert.InDelta(t, 2.5, res.MSDGroups[0].Intensity, 1e-12)
	assert.Equal(t, 4, res.MSDGroups[0].QuantifiedPeptides)

	aak := res.Peptides[peptideIndex(t, res, "AAK")]
	assert.Equal(t, 1.0, aak.Intensity)
	assert.Equal(t, 0, aak.Identification)
}

func TestUnquantifiedGroup(t *testing.T) {
	res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "GGLR"))
	require.NoError(t, err)

	require.Len(t, res.MSDGroups, 1)
	assert.Zero(t, res.MSDGroups[0].Intensity)
	assert.Zero(t, res.MSDGroups[0].QuantifiedPeptides)
}

func TestConsensusResolution(t *testing.T) {
	cmap := &core.ConsensusMap{ID: "map1", Features: []core.ConsensusFeature{
		{ID: "f1", Intensity: 10, Identifications: []core.PeptideIdentification{
			{Hits: []core.PeptideHit{{Sequence: "GGLR"}, {Sequence: "QR"}}},
		}},
		{ID: "f2", Intensity: 30, Identifications: []core.PeptideIdentification{
			{},
			{Hits: []core.PeptideHit{{Sequence: "TAYIAK"}}},
		}},
	}}

	res, err := New(WithDigester(tryptic())).ResolveConsensus(context.Background(), scenarioProteins(), cmap)
	require.NoError(t, err)

	assert.Equal(t, Consensus, res.InputType)
	assert.Equal(t, "map1", res.Identifier)
	assert.False(t, res.Peptides[peptideIndex(t, res, "QR")].Experimental, "only the best hit counts")

	tayiak := &res.Peptides[peptideIndex(t, res, "TAYIAK")]
	assert.Equal(t, 1, tayiak.Identification)
	assert.Equal(t, 1, tayiak.Hit)
	assert.Equal(t, "map1", tayiak.Origin)
	assert.Equal(t, 30.0, tayiak.Intensity)

	require.Len(t, res.MSDGroups, 1)
	assert.InDelta(t, 20.0, res.MSDGroups[0].Intensity, 1e-12)

	hit, err := res.Hit(tayiak)
	require.NoError(t, err)
	assert.Equal(t, "TAYIAK", hit.Sequence)
	f, err := res.Feature(tayiak)
	require.NoError(t, err)
	assert.Equal(t, "f2", f.ID)
}

func TestUndigestedMatching(t *testing.T) {
	t.Run("matched by containment", func(t *testing.T) {
		res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "TAYI", "NOTHERE"))
		require.NoError(t, err)

		tayi := res.Peptides[peptideIndex(t, res, "TAYI")]
		assert.True(t, tayi.Experimental)
		assert.Equal(t, []int{0, 1}, tayi.Proteins)
		assert.Equal(t, 1, res.UnmatchedPeptides)
	})

	t.Run("disabled", func(t *testing.T) {
		r := New(WithDigester(tryptic()), WithUndigestedMatching(false))
		res, err := r.ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "TAYI", "TAYI", "GGLR"))
		require.NoError(t, err)

		assert.Equal(t, 1, res.UnmatchedPeptides)
		assert.Len(t, res.Peptides, 5)
	})
}

func TestEmptySequenceIsUnmatched(t *testing.T) {
	proteins := []core.ProteinRecord{
		{Accession: "P1", Sequence: "MAAAK"},
		{Accession: "P2", Sequence: "MCCCR"},
		{Accession: "P3", Sequence: "MDDDK"},
	}
	res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), proteins, identRun("r", "", "MAAAK", ""))
	require.NoError(t, err)

	assert.Len(t, res.ISDGroups, 3)
	require.Len(t, res.MSDGroups, 1)
	assert.Equal(t, []int{0}, res.MSDGroups[0].Proteins)
	assert.Equal(t, 1, res.UnmatchedPeptides)
	assert.Equal(t, Primary, res.Proteins[0].Type)
	assert.Equal(t, Unclassified, res.Proteins[1].Type)
	assert.Equal(t, Unclassified, res.Proteins[2].Type)
	for i := range res.Peptides {
		assert.NotEmpty(t, res.Peptides[i].Sequence)
	}
}

func TestCoverageAndWeight(t *testing.T) {
	res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "GGLR"))
	require.NoError(t, err)

	assert.InDelta(t, 4.0/12.0, res.Proteins[0].Coverage, 1e-12)
	assert.Zero(t, res.Proteins[1].Coverage)
	assert.InDelta(t, core.CalculateProteinMass("MKTAYIAKGGLR"), res.Proteins[0].Weight, 1e-9)
}

func TestEmptyInput(t *testing.T) {
	r := New()

	res, err := r.ResolveIdentifications(context.Background(), nil, identRun("r", "PEPTIDEK"))
	require.NoError(t, err)
	assert.Empty(t, res.ISDGroups)
	assert.Empty(t, res.MSDGroups)

	res, err = r.ResolveIdentifications(context.Background(), scenarioProteins(), &core.IdentificationRun{})
	require.NoError(t, err)
	assert.Empty(t, res.ISDGroups)
	assert.NotEmpty(t, res.Identifier, "generated identifier")

	res, err = r.ResolveConsensus(context.Background(), scenarioProteins(), nil)
	require.NoError(t, err)
	assert.Equal(t, Consensus, res.InputType)

	assert.Len(t, r.Results(), 3)
}

func TestResultsAndClear(t *testing.T) {
	r := New(WithDigester(tryptic()))
	ctx := context.Background()

	_, err := r.ResolveIdentifications(ctx, scenarioProteins(), identRun("first", "GGLR"))
	require.NoError(t, err)
	_, err = r.ResolveIdentifications(ctx, scenarioProteins(), identRun("second", "QR"))
	require.NoError(t, err)

	results := r.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Identifier)
	assert.Equal(t, "second", results[1].Identifier)

	results[0] = nil
	assert.NotNil(t, r.Results()[0], "Results returns a copy")

	r.Clear()
	assert.Empty(t, r.Results())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(WithDigester(tryptic()))
	_, err := r.ResolveIdentifications(ctx, scenarioProteins(), identRun("r", "GGLR"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, r.Results())
}

func TestAccessorErrors(t *testing.T) {
	res, err := New(WithDigester(tryptic())).ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "GGLR"))
	require.NoError(t, err)

	mk := &res.Peptides[peptideIndex(t, res, "MK")]
	_, err = res.Hit(mk)
	assert.ErrorIs(t, err, ErrNotExperimental)

	gglr := &res.Peptides[peptideIndex(t, res, "GGLR")]
	hit, err := res.Hit(gglr)
	require.NoError(t, err)
	assert.Equal(t, "GGLR", hit.Sequence)
	id, err := res.Identification(gglr)
	require.NoError(t, err)
	assert.Equal(t, "scan=1", id.SpectrumID)

	_, err = res.Feature(gglr)
	assert.ErrorIs(t, err, ErrInputType)

	_, err = HitOf(nil, gglr)
	assert.ErrorIs(t, err, ErrEvidenceIndex)

	stale := *gglr
	stale.Hit = 5
	_, err = HitOf(res.Identifications, &stale)
	assert.ErrorIs(t, err, ErrEvidenceIndex)
}

func TestClassifyRequiresReindexing(t *testing.T) {
	s := newStore(scenarioProteins())
	require.NoError(t, s.digestProteins(context.Background(), tryptic()))

	err := s.classify(context.Background(), nil, nil, 1)
	assert.ErrorIs(t, err, ErrNotReindexed)
}

func TestVerifyAdjacency(t *testing.T) {
	s := newStore(scenarioProteins())
	require.NoError(t, s.digestProteins(context.Background(), tryptic()))
	require.NoError(t, s.verifyAdjacency())

	s.peptides[0].Proteins = s.peptides[0].Proteins[:1]
	err := s.verifyAdjacency()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistentAdjacency)

	var inv *InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 1, inv.Protein)
	assert.Equal(t, 0, inv.Peptide)
}

func TestFindPeptide(t *testing.T) {
	s := newStore(scenarioProteins())
	require.NoError(t, s.digestProteins(context.Background(), tryptic()))

	assert.Equal(t, 1, s.findPeptide("TAYIAK"))
	assert.Equal(t, len(s.peptides), s.findPeptide("NOPE"))
	assert.Equal(t, len(s.peptides), s.findPeptide(""))
}

func TestDeterminism(t *testing.T) {
	proteins, run := randomInput(rand.New(rand.NewSource(7)), 60, 40)
	ctx := context.Background()

	first, err := New(WithDigester(tryptic()), WithWorkers(1)).ResolveIdentifications(ctx, proteins, run)
	require.NoError(t, err)
	second, err := New(WithDigester(tryptic()), WithWorkers(8)).ResolveIdentifications(ctx, proteins, run)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
}

func TestRandomGraphInvariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			proteins, run := randomInput(rand.New(rand.NewSource(seed)), 40, 30)
			res, err := New(WithDigester(tryptic()), WithWorkers(4)).ResolveIdentifications(context.Background(), proteins, run)
			require.NoError(t, err)
			checkInvariants(t, res)
		})
	}
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New(nil)
	r := New(WithDigester(tryptic()), WithMetrics(m))
	_, err := r.ResolveIdentifications(context.Background(), scenarioProteins(), identRun("r", "GGLR", "QR", "MISSING"))
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["protresolve_runs_total"])
	assert.True(t, names["protresolve_groups_total"])
	assert.True(t, names["protresolve_unmatched_peptides_total"])
}

// randomInput builds proteins from a small fragment alphabet so that many
// tryptic peptides are shared.
func randomInput(rng *rand.Rand, numProteins, numHits int) ([]core.ProteinRecord, *core.IdentificationRun) {
	fragments := []string{"AAK", "CCR", "DDEK", "FFGR", "HHIK", "LLMR", "NNPK", "QQSR", "TTVK", "WWYR"}
	proteins := make([]core.ProteinRecord, numProteins)
	for i := range proteins {
		n := 1 + rng.Intn(4)
		seq := ""
		for j := 0; j < n; j++ {
			seq += fragments[rng.Intn(len(fragments))]
		}
		acc := fmt.Sprintf("P%03d", i)
		if rng.Intn(5) == 0 {
			acc = "DECOY_" + acc
		}
		proteins[i] = core.ProteinRecord{Accession: acc, Sequence: seq}
	}
	var seqs []string
	for i := 0; i < numHits; i++ {
		seqs = append(seqs, fragments[rng.Intn(len(fragments)-2)])
	}
	return proteins, identRun("random", seqs...)
}

func checkInvariants(t *testing.T, res *Result) {
	t.Helper()

	for i := range res.Proteins {
		for _, q := range res.Proteins[i].Peptides {
			assert.Contains(t, res.Peptides[q].Proteins, i, "peptide %d must list protein %d", q, i)
		}
	}
	for j := range res.Peptides {
		for _, p := range res.Peptides[j].Proteins {
			assert.Contains(t, res.Proteins[p].Peptides, j, "protein %d must list peptide %d", p, j)
		}
	}

	proteinISD := make(map[int]int)
	peptideISD := make(map[int]int)
	for g, isd := range res.ISDGroups {
		assert.Equal(t, g, isd.Index)
		for _, p := range isd.Proteins {
			_, dup := proteinISD[p]
			assert.False(t, dup, "protein %d in two ISD groups", p)
			proteinISD[p] = g
			assert.Equal(t, g, res.Proteins[p].ISDGroup)
		}
		for _, q := range isd.Peptides {
			_, dup := peptideISD[q]
			assert.False(t, dup, "peptide %d in two ISD groups", q)
			peptideISD[q] = g
		}
	}
	assert.Len(t, proteinISD, len(res.Proteins))
	assert.Len(t, peptideISD, len(res.Peptides))

	inMSD := make(map[int]int)
	for g, m := range res.MSDGroups {
		assert.Contains(t, res.ISDGroups[m.ISDGroup].MSDGroups, g)
		for _, p := range m.Proteins {
			_, dup := inMSD[p]
			assert.False(t, dup, "protein %d in two MSD groups", p)
			inMSD[p] = g
			assert.Equal(t, m.ISDGroup, res.Proteins[p].ISDGroup)
		}
		for _, q := range m.Peptides {
			assert.True(t, res.Peptides[q].Experimental)
		}
		assert.Equal(t, m.Targets+m.Decoys, m.TargetPlusDecoy)
		assert.Equal(t, len(m.Proteins), m.TargetPlusDecoy)
	}

	for i := range res.Proteins {
		p := &res.Proteins[i]
		_, reindexed := res.ReindexedProtein(i)
		if p.ExperimentalPeptides == 0 {
			assert.Equal(t, NoGroup, p.MSDGroup)
			assert.False(t, reindexed)
			assert.Equal(t, Unclassified, p.Type)
			continue
		}
		assert.Equal(t, inMSD[i], p.MSDGroup)
		assert.True(t, reindexed)

		for _, q := range p.Peptides {
			if res.Peptides[q].Experimental && len(res.Peptides[q].Proteins) == 1 {
				assert.Contains(t, []ProteinType{Primary, PrimaryIndistinguishable}, p.Type,
					"protein %d has a unique peptide", i)
			}
		}
	}
}
