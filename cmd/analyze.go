package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/docforensic/docforensic/internal/analyzer/structure"
	"github.com/docforensic/docforensic/internal/extract"
	"github.com/docforensic/docforensic/internal/config"
	"github.com/docforensic/docforensic/internal/output"
	"github.com/docforensic/docforensic/internal/pipeline"
	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/internal/scoring"
	"github.com/docforensic/docforensic/pkg/types"
)

var (
	configPath     string
	jsonOutput     bool
	noExternal     bool
	noQR           bool
	timeoutMS      int
	expectDomains  []string
	expectName     string
)

var analyzeCmd = &cobra.Command{
	Use:          "analyze <file>",
	Short:        "Analyze a document for signs of fraud",
	Long:         "Analyze a document file and print a forensic report.\n\nThe process exit code encodes the verdict: 0=LOW, 1=MEDIUM, 2=HIGH,\n3=CRITICAL, 64=input error, 70=internal error.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return &types.ExitError{Code: types.ExitInputError, Message: fmt.Sprintf("cannot resolve path: %s", err)}
		}
		if err := validateInput(path); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return &types.ExitError{Code: types.ExitInputError, Message: err.Error()}
		}

		// Load project config (.docforensicrc.yml) and apply overrides.
		projectCfg, err := config.LoadProjectConfig(filepath.Dir(path), configPath)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return &types.ExitError{Code: types.ExitInputError, Message: err.Error()}
		}
		scoringCfg := scoring.DefaultConfig()
		projectCfg.ApplyToScoringConfig(scoringCfg)

		opts := pipeline.Options{
			NoExternal:      noExternal,
			NoQR:            noQR,
			ExpectedDomains: expectDomains,
			ExpectedName:    expectName,
			Scoring:         scoringCfg,
			Clock:           ports.SystemClock{},
		}
		if len(opts.ExpectedDomains) == 0 && projectCfg != nil {
			opts.ExpectedDomains = projectCfg.ExpectedDomains
		}
		if opts.ExpectedName == "" && projectCfg != nil {
			opts.ExpectedName = projectCfg.ExpectedName
		}
		if projectCfg != nil && len(projectCfg.TrustedCAs) > 0 {
			store := structure.DefaultTrustStore()
			store.CANames = append(store.CANames, projectCfg.TrustedCAs...)
			opts.TrustStore = store
		}
		if !noExternal && projectCfg != nil {
			if projectCfg.Registry.BaseURL != "" {
				opts.Registry = ports.NewHTTPCompanyRegistry(projectCfg.Registry.BaseURL)
			}
			if projectCfg.VAT.BaseURL != "" {
				opts.VAT = ports.NewHTTPVATValidator(projectCfg.VAT.BaseURL)
			}
		}

		ctx := cmd.Context()
		if timeoutMS > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
			defer cancel()
		}

		spinner := pipeline.NewSpinner(os.Stderr)
		spinner.Start("Analyzing...")
		result, err := pipeline.Analyze(ctx, path, opts)
		spinner.Stop("")
		if err != nil {
			var invalid *extract.InvalidContainerError
			if errors.As(err, &invalid) {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &types.ExitError{Code: types.ExitInputError, Message: err.Error()}
			}
			return &types.ExitError{Code: types.ExitInternalError, Message: err.Error()}
		}

		if jsonOutput {
			if err := output.RenderJSON(cmd.OutOrStdout(), result); err != nil {
				return &types.ExitError{Code: types.ExitInternalError, Message: err.Error()}
			}
		} else {
			output.RenderReport(cmd.OutOrStdout(), result, verbose)
		}

		if code := types.ExitCodeForRisk(result.RiskLevel); code != types.ExitLow {
			return &types.ExitError{Code: code, Message: string(result.RiskLevel)}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "path to .docforensicrc.yml project config file")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")
	analyzeCmd.Flags().BoolVar(&noExternal, "no-external", false, "skip online registry and VAT verification")
	analyzeCmd.Flags().BoolVar(&noQR, "no-qr", false, "skip QR code decoding")
	analyzeCmd.Flags().IntVar(&timeoutMS, "timeout-ms", 0, "overall analysis timeout in milliseconds (0 = none)")
	analyzeCmd.Flags().StringArrayVar(&expectDomains, "expect-domain", nil, "issuer domain expected in QR payloads (repeatable)")
	analyzeCmd.Flags().StringVar(&expectName, "expect-name", "", "company name expected in the registry")
	rootCmd.AddCommand(analyzeCmd)
}

// validateInput checks that path exists and is not a directory.
func validateInput(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %s", err)
	}
	if info.IsDir() {
		return fmt.Errorf("not a file: %s", path)
	}
	return nil
}
