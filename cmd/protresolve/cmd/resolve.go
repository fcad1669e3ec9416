package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ProtResolve/pkg/config"
	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/digest"
	"github.com/ChrisMcGann/ProtResolve/pkg/filter"
	"github.com/ChrisMcGann/ProtResolve/pkg/metrics"
	"github.com/ChrisMcGann/ProtResolve/pkg/reader/consensus"
	"github.com/ChrisMcGann/ProtResolve/pkg/reader/fasta"
	"github.com/ChrisMcGann/ProtResolve/pkg/reader/mzidentml"
	"github.com/ChrisMcGann/ProtResolve/pkg/resolver"
	"github.com/ChrisMcGann/ProtResolve/pkg/writer/sqlite"
)

var (
	// Flags for resolve command
	fastaFile         string
	idFiles           []string
	consensusFiles    []string
	intensityCSV      string
	outputFile        string
	configFile        string
	metricsFile       string
	enzyme            string
	missedCleavages   int
	minLength         int
	maxLength         int
	decoyPrefixes     []string
	decoySuffixes     []string
	workers           int
	noUndigested      bool
	scoreThreshold    float64
	higherScoreBetter bool
	bestHitOnly       bool
	minPeptideLength  int
	minIntensity      float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Group proteins by peptide evidence and export the groups to SQLite",
	Long: `Resolve candidate proteins against identification runs or consensus maps.

Each evidence file is resolved as its own run; all runs are written to the
output database.

Examples:
  # Resolve one mzIdentML run against a tryptic digest of the database
  protresolve resolve --fasta uniprot.fasta --ids search.mzid --out groups.db

  # Resolve two consensus maps with a YAML config and a stricter digest
  protresolve resolve --fasta db.fasta.gz --consensus a.tsv --consensus b.tsv \
    --config protresolve.yaml --missed-cleavages 2 --min-length 7

  # Attach peptide intensities to an identification run and export metrics
  protresolve resolve --fasta db.fasta --ids run.mzid --intensities peptides.csv \
    --metrics-file protresolve.prom`,
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&fastaFile, "fasta", "", "Protein database in FASTA format, optionally gzipped; '-' for stdin (required)")
	f.StringArrayVar(&idFiles, "ids", nil, "mzIdentML identification file (repeatable)")
	f.StringArrayVar(&consensusFiles, "consensus", nil, "Tab-separated consensus map (repeatable)")
	f.StringVar(&intensityCSV, "intensities", "", "CSV of peptide intensities (Sequence,Intensity) for identification runs")
	f.StringVarP(&outputFile, "out", "o", "protresolve.db", "Output database file")
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	f.StringVar(&enzyme, "enzyme", "trypsin", "Digestion enzyme: "+strings.Join(digest.EnzymeNames(), ", "))
	f.IntVar(&missedCleavages, "missed-cleavages", 1, "Allowed missed cleavages")
	f.IntVar(&minLength, "min-length", 6, "Minimum digested peptide length")
	f.IntVar(&maxLength, "max-length", 40, "Maximum digested peptide length (0 = no limit)")
	f.StringSliceVar(&decoyPrefixes, "decoy-prefix", nil, "Decoy accession prefix (repeatable, default DECOY_,REV_,rev_,XXX_)")
	f.StringSliceVar(&decoySuffixes, "decoy-suffix", nil, "Decoy accession suffix (repeatable)")
	f.IntVar(&workers, "workers", 0, "Groups processed concurrently (0 = number of CPUs)")
	f.BoolVar(&noUndigested, "no-undigested", false, "Drop observed peptides that are not digestion products instead of matching them by containment")
	f.Float64Var(&scoreThreshold, "score-threshold", 0, "Keep hits scoring at least this well")
	f.BoolVar(&higherScoreBetter, "higher-score-better", false, "Treat higher scores as better (default: e-value like)")
	f.BoolVar(&bestHitOnly, "best-hit-only", false, "Keep only the best hit of each identification")
	f.IntVar(&minPeptideLength, "min-peptide-length", 0, "Drop hits shorter than this (0 = no limit)")
	f.Float64Var(&minIntensity, "min-intensity", 0, "Drop consensus features below this intensity")

	resolveCmd.MarkFlagRequired("fasta")
	resolveCmd.MarkFlagsMutuallyExclusive("ids", "consensus")
	resolveCmd.MarkFlagsOneRequired("ids", "consensus")
}

// buildConfig loads the config file, if any, and applies explicitly set flags over it
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("enzyme") {
		cfg.Digestion.Enzyme = enzyme
	}
	if changed("missed-cleavages") {
		cfg.Digestion.MissedCleavages = missedCleavages
	}
	if changed("min-length") {
		cfg.Digestion.MinLength = minLength
	}
	if changed("max-length") {
		cfg.Digestion.MaxLength = maxLength
	}
	if changed("decoy-prefix") {
		cfg.Decoy.Prefixes = decoyPrefixes
	}
	if changed("decoy-suffix") {
		cfg.Decoy.Suffixes = decoySuffixes
	}
	if changed("workers") {
		cfg.Workers = workers
	}
	if changed("no-undigested") {
		cfg.MatchUndigested = !noUndigested
	}
	if changed("score-threshold") {
		v := scoreThreshold
		cfg.Filter.ScoreThreshold = &v
	}
	if changed("higher-score-better") {
		cfg.Filter.HigherScoreBetter = higherScoreBetter
	}
	if changed("best-hit-only") {
		cfg.Filter.BestHitOnly = bestHitOnly
	}
	if changed("min-peptide-length") {
		cfg.Filter.MinPeptideLength = minPeptideLength
	}
	if changed("min-intensity") {
		cfg.Filter.MinIntensity = minIntensity
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") && configFile != "" {
		if logger, err = newLogger(cfg.LogLevel, logFormat, os.Stderr); err != nil {
			return err
		}
	}

	digester, err := cfg.Digester()
	if err != nil {
		return fmt.Errorf("invalid digestion settings: %w", err)
	}

	fmt.Printf("Loading proteins from %s...\n", fastaFile)
	proteins, err := fasta.Load(fastaFile)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d proteins\n", len(proteins))
	fmt.Printf("Digestion: %s, %d missed cleavages, length %d-%d\n",
		digester.Enzyme.Name, digester.MissedCleavages, digester.MinLength, digester.MaxLength)

	var m *metrics.Metrics
	if metricsFile != "" {
		m = metrics.New(nil)
	}

	r := resolver.New(
		resolver.WithDigester(digester),
		resolver.WithDecoyClassifier(cfg.DecoyClassifier()),
		resolver.WithLogger(logger),
		resolver.WithMetrics(m),
		resolver.WithWorkers(cfg.Workers),
		resolver.WithUndigestedMatching(cfg.MatchUndigested),
	)
	evidenceFilter := cfg.EvidenceFilter()

	ctx := cmd.Context()
	if len(idFiles) > 0 {
		if err := resolveIdentificationFiles(ctx, r, proteins, evidenceFilter); err != nil {
			return err
		}
	} else {
		if intensityCSV != "" {
			fmt.Fprintf(os.Stderr, "Warning: --intensities is ignored for consensus maps\n")
		}
		if err := resolveConsensusFiles(ctx, r, proteins, evidenceFilter); err != nil {
			return err
		}
	}

	results := r.Results()
	writer, err := sqlite.NewWriter(outputFile, "protresolve "+rootCmd.Version)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	for _, res := range results {
		if err := writer.WriteResult(res); err != nil {
			if cerr := writer.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", cerr)
			}
			return fmt.Errorf("failed to write result %s: %w", res.Identifier, err)
		}
		printResult(res)
	}
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	if err := m.WriteToTextfile(metricsFile); err != nil {
		return err
	}

	fmt.Printf("\nResolution complete!\n")
	fmt.Printf("Runs: %d\n", len(results))
	fmt.Printf("Output: %s\n", outputFile)
	return nil
}

func resolveIdentificationFiles(ctx context.Context, r *resolver.Resolver, proteins []core.ProteinRecord, ef *filter.Config) error {
	var intensities map[string]float64
	if intensityCSV != "" {
		var err error
		if intensities, err = loadIntensityCSV(intensityCSV); err != nil {
			return fmt.Errorf("failed to load intensity CSV: %w", err)
		}
		fmt.Printf("Loaded %d peptide intensities\n", len(intensities))
	}

	for _, path := range idFiles {
		run, decoys, err := mzidentml.Load(path)
		if err != nil {
			return err
		}
		st := ef.ApplyIdentifications(run)
		logger.Info("filtered identifications", "run", run.ID, "hits_in", st.HitsIn, "hits_out", st.HitsOut,
			"identifications_dropped", st.EmptyIdentsDropped)
		if intensities != nil {
			n := filter.ApplyIntensities(run, intensities)
			logger.Debug("attached intensities", "run", run.ID, "hits", n)
		}
		if err := run.Validate(); err != nil {
			return fmt.Errorf("invalid identifications in %s: %w", path, err)
		}

		fmt.Printf("Resolving %s (%d identifications, %d hits)...\n", run.ID, len(run.Identifications), run.NumHits())
		if _, err := r.ResolveIdentifications(ctx, markDecoys(proteins, decoys), run); err != nil {
			return err
		}
	}
	return nil
}

func resolveConsensusFiles(ctx context.Context, r *resolver.Resolver, proteins []core.ProteinRecord, ef *filter.Config) error {
	modDB := loadModDatabase()
	for _, path := range consensusFiles {
		cmap, err := consensus.Load(path, modDB)
		if err != nil {
			return err
		}
		st := ef.ApplyConsensus(cmap)
		logger.Info("filtered consensus map", "map", cmap.ID, "features_removed", st.FeaturesRemoved,
			"hits_in", st.HitsIn, "hits_out", st.HitsOut)
		if err := cmap.Validate(); err != nil {
			return fmt.Errorf("invalid consensus map %s: %w", path, err)
		}

		fmt.Printf("Resolving %s (%d features)...\n", cmap.ID, len(cmap.Features))
		if _, err := r.ResolveConsensus(ctx, proteins, cmap); err != nil {
			return err
		}
	}
	return nil
}

// markDecoys returns proteins with the Decoy flag set for the given
// accessions. The input slice is copied only when something changes.
func markDecoys(proteins []core.ProteinRecord, decoys map[string]bool) []core.ProteinRecord {
	if len(decoys) == 0 {
		return proteins
	}
	var out []core.ProteinRecord
	for i := range proteins {
		if proteins[i].Decoy || !decoys[proteins[i].Accession] {
			continue
		}
		if out == nil {
			out = append([]core.ProteinRecord(nil), proteins...)
		}
		out[i].Decoy = true
	}
	if out == nil {
		return proteins
	}
	return out
}

func printResult(res *resolver.Result) {
	fmt.Printf("\n%s (%s)\n", res.Identifier, res.InputType)
	fmt.Printf("  Proteins: %d, peptides: %d\n", len(res.Proteins), len(res.Peptides))
	fmt.Printf("  ISD groups: %d, MSD groups: %d\n", len(res.ISDGroups), len(res.MSDGroups))
	counts := res.CountByType()
	for _, t := range []resolver.ProteinType{
		resolver.Primary,
		resolver.PrimaryIndistinguishable,
		resolver.Secondary,
		resolver.SecondaryIndistinguishable,
		resolver.Unclassified,
	} {
		if counts[t] > 0 {
			fmt.Printf("  %s: %d\n", t, counts[t])
		}
	}
	if res.UnmatchedPeptides > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s: %d observed peptides match no protein\n", res.Identifier, res.UnmatchedPeptides)
	}
}
