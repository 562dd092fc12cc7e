package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/docforensic/docforensic/pkg/types"
	"github.com/docforensic/docforensic/pkg/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "docforensic",
	Short:   "docforensic - forensic analysis of untrusted documents",
	Long:    "docforensic ingests an untrusted document (PDF) and produces a structured\nforensic report: a 0-100 trust score, a risk classification, and a ranked\nlist of evidence flags suitable for human review.",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.SilenceErrors = true
}

// Execute runs the root command. ExitError is handled specially: its
// Code becomes the process exit code, which is how the analyze
// subcommand reports risk levels to calling pipelines (0=LOW, 1=MEDIUM,
// 2=HIGH, 3=CRITICAL, 64=input error, 70=internal error).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *types.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(types.ExitInternalError)
	}
}
