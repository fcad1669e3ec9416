package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ProtResolve/pkg/writer/sqlite"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a results database",
	Long:  `Print per-run group statistics of a database written by the resolve command.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	summaries, err := sqlite.Summarize(args[0])
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Printf("No results in %s\n", args[0])
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("Run %d: %s (%s)\n", s.ResultID, s.Identifier, s.InputType)
		fmt.Printf("  Proteins: %d, peptides: %d, unmatched peptides: %d\n", s.Proteins, s.Peptides, s.UnmatchedPeptides)
		fmt.Printf("  ISD groups: %d, MSD groups: %d (%d quantified)\n", s.ISDGroups, s.MSDGroups, s.QuantifiedGroups)
		fmt.Printf("  Targets: %d, decoys: %d\n", s.Targets, s.Decoys)

		types := make([]string, 0, len(s.ProteinTypes))
		for t := range s.ProteinTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("  %s: %d\n", t, s.ProteinTypes[t])
		}
	}
	return nil
}
