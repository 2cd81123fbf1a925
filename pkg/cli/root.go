package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yasi-python/censtau/internal/analysis"
	"github.com/yasi-python/censtau/pkg/config"
	"github.com/yasi-python/censtau/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the censtau command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "censtau",
		Short: "Kendall's tau for data with upper limits",
		Long: `censtau computes the Akritas & Siebert generalisation of Kendall's tau
for paired samples where some values are upper limits, and estimates its
uncertainty by Monte Carlo perturbation or bootstrap resampling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "config file path")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log estimator progress to stderr")

	cmd.AddCommand(NewTauCommand(opts))
	cmd.AddCommand(NewIntervalCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDatasetCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// newService builds a one-shot analysis service without a dataset store.
func (o *RootOptions) newService(cmd *cobra.Command, cfg *config.Config) *analysis.Service {
	log := logger.Nop()
	if o.Verbose {
		log = logger.NewWithWriter("debug", cmd.ErrOrStderr())
	}
	return analysis.New(cfg, log, nil)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: o.Verbose}
}
