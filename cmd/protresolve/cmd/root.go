// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags
	logLevel  string
	logFormat string

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "protresolve",
	Short: "ProtResolve - Protein inference by peptide evidence grouping",
	Long: `ProtResolve groups candidate proteins by the peptides that identify them.

Proteins from a FASTA database are digested in silico and linked to the
peptides observed in identification runs (mzIdentML) or consensus maps.
Connected components of the protein-peptide graph form ISD groups; the
components left when only observed peptides are followed form MSD groups, in
which proteins are classified as primary, secondary or indistinguishable.
Per-group target/decoy counts and median intensities are exported to SQLite.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel, logFormat, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(summarizeCmd)
}

// newLogger builds a structured logger writing to w
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format '%s', must be text or json", format)
	}
}
