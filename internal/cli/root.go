// Package cli implements the opd command: offline risk and symptom assessments
// from JSON files, plus maintenance of the local feedback store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oncovista-opd-server/internal/config"
	"github.com/oncovista-opd-server/internal/domain"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	LogLevel  string
	LogFormat string
	Pretty    bool
}

type cliContextKey struct{}

// cliContext carries initialized dependencies through the command tree.
type cliContext struct {
	logger *logrus.Logger
	lite   *config.LiteConfig
	pretty bool
}

// NewRootCommand creates the opd root command with all subcommands attached
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "opd",
		Short:   "OncoVista OPD decision support: cancer risk and symptom triage",
		Long:    "opd evaluates patient profiles and reported symptoms with the OncoVista rule engines.\nInputs are JSON files (use - for stdin); results are written to stdout as JSON.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "text", "log format (text, json)")
	pf.BoolVar(&opts.Pretty, "pretty", true, "indent JSON output")

	cmd.AddCommand(
		newRiskCmd(),
		newSymptomsCmd(),
		newCancerTypesCmd(),
		newFeedbackCmd(),
		newSetupCmd(),
	)

	return cmd
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	lite := config.LoadLiteConfig()

	logger, err := config.NewLogger(domain.LoggingConfig{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &cliContext{
		logger: logger,
		lite:   lite,
		pretty: opts.Pretty,
	}))
	return nil
}

func getCLIContext(cmd *cobra.Command) *cliContext {
	if cc, ok := cmd.Context().Value(cliContextKey{}).(*cliContext); ok {
		return cc
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &cliContext{logger: logger, lite: config.LoadLiteConfig(), pretty: true}
}

// printJSON writes v to the command's stdout
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if getCLIContext(cmd).pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// readInput reads a file, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
