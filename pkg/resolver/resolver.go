package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/digest"
	"github.com/ChrisMcGann/ProtResolve/pkg/metrics"
)

// Resolver runs protein resolution and keeps the results of every run until
// Clear is called. It is safe for concurrent use.
type Resolver struct {
	digester        digest.Digester
	decoys          core.DecoyClassifier
	logger          *slog.Logger
	metrics         *metrics.Metrics
	workers         int
	matchUndigested bool

	mu      sync.Mutex
	results []*Result
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDigester sets the in-silico digestion. The default is tryptic with one
// missed cleavage and peptides of 6 to 40 residues.
func WithDigester(d digest.Digester) Option {
	return func(r *Resolver) {
		if d != nil {
			r.digester = d
		}
	}
}

// WithDecoyClassifier sets how target and decoy proteins are told apart.
func WithDecoyClassifier(c core.DecoyClassifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.decoys = c
		}
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records run statistics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithWorkers bounds how many groups are processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithUndigestedMatching controls whether observed peptides that are not
// digestion products are matched to proteins by substring containment.
func WithUndigestedMatching(enabled bool) Option {
	return func(r *Resolver) {
		r.matchUndigested = enabled
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		digester:        &digest.Protease{Enzyme: digest.Trypsin, MissedCleavages: 1, MinLength: 6, MaxLength: 40},
		decoys:          core.NewAffixDecoyClassifier(nil, nil),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:         runtime.GOMAXPROCS(0),
		matchUndigested: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveIdentifications resolves proteins against every hit of an
// identification run. An empty ID gets a generated identifier.
func (r *Resolver) ResolveIdentifications(ctx context.Context, proteins []core.ProteinRecord, run *core.IdentificationRun) (*Result, error) {
	if run == nil {
		run = &core.IdentificationRun{}
	}
	ev := identificationEvidence(run)
	res, err := r.resolve(ctx, proteins, ev, run.NumHits())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identification run %q: %w", run.ID, err)
	}
	res.Identifications = run.Identifications
	return r.record(res), nil
}

// ResolveConsensus resolves proteins against the best hit of every
// identification annotated to the features of cmap.
func (r *Resolver) ResolveConsensus(ctx context.Context, proteins []core.ProteinRecord, cmap *core.ConsensusMap) (*Result, error) {
	if cmap == nil {
		cmap = &core.ConsensusMap{}
	}
	ev := consensusEvidence(cmap)
	res, err := r.resolve(ctx, proteins, ev, cmap.NumHits())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve consensus map %q: %w", cmap.ID, err)
	}
	res.Consensus = cmap
	return r.record(res), nil
}

// Results returns the results of all runs since the last Clear, oldest first.
func (r *Resolver) Results() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.results)
}

// Clear discards all accumulated results.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
}

func (r *Resolver) record(res *Result) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return res
}

func (r *Resolver) resolve(ctx context.Context, proteins []core.ProteinRecord, ev evidence, hits int) (res *Result, err error) {
	id := ev.origin
	if id == "" {
		id = uuid.NewString()
	}
	log := r.logger.With("run", id, "input", ev.kind.String())
	defer func() {
		r.metrics.RecordRun(ev.kind.String(), err == nil)
	}()

	res = &Result{Identifier: id, InputType: ev.kind}
	if len(proteins) == 0 || hits == 0 {
		log.Warn("nothing to resolve", "proteins", len(proteins), "hits", hits)
		return res, nil
	}

	s := newStore(proteins)
	if err := r.phase(log, "digest", func() error { return s.digestProteins(ctx, r.digester) }); err != nil {
		return nil, err
	}
	res.UnmatchedPeptides = s.ingest(ev, r.matchUndigested)
	s.countExperimental()
	if err := s.verifyAdjacency(); err != nil {
		return nil, err
	}
	if res.UnmatchedPeptides > 0 {
		log.Warn("experimental peptides not found in any protein", "count", res.UnmatchedPeptides)
		r.metrics.RecordUnmatched(res.UnmatchedPeptides)
	}
	log.Debug("graph built", "proteins", len(s.proteins), "peptides", len(s.peptides))

	var isds []ISDGroup
	if err := r.phase(log, "isd", func() error {
		var err error
		isds, err = s.clusterISD(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var msds []MSDGroup
	if err := r.phase(log, "msd", func() error {
		var err error
		msds, err = s.clusterMSD(ctx, isds, r.workers)
		return err
	}); err != nil {
		return nil, err
	}

	rx := reindex(len(s.proteins), len(s.peptides), msds)
	if err := r.phase(log, "classify", func() error {
		return s.classify(ctx, msds, rx, r.workers)
	}); err != nil {
		return nil, err
	}
	s.aggregate(msds, r.decoys)
	s.annotate()

	res.ISDGroups = isds
	res.MSDGroups = msds
	res.Proteins = s.proteins
	res.Peptides = s.peptides
	res.ReindexedProteins = rx.Proteins
	res.ReindexedPeptides = rx.Peptides

	r.metrics.RecordGroups(len(isds), len(msds))
	for i := range res.Proteins {
		r.metrics.RecordProtein(res.Proteins[i].Type.String())
	}
	log.Info("resolved",
		"isd_groups", len(isds),
		"msd_groups", len(msds),
		"proteins", len(res.Proteins),
		"peptides", len(res.Peptides))
	return res, nil
}

func (r *Resolver) phase(log *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.metrics.ObservePhase(name, elapsed)
	log.Debug("phase done", "phase", name, "elapsed", elapsed, "error", err)
	if err != nil {
		return fmt.Errorf("%s phase: %w", name, err)
	}
	return nil
}
