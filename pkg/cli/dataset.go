package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yasi-python/censtau/internal/analysis"
	"github.com/yasi-python/censtau/pkg/config"
	"github.com/yasi-python/censtau/pkg/dataset"
	"github.com/yasi-python/censtau/pkg/logger"
	"github.com/yasi-python/censtau/pkg/storage"
)

// DatasetOptions holds flags shared by dataset subcommands.
type DatasetOptions struct {
	*RootOptions
	DataDir string
}

// NewDatasetCommand creates the dataset command group.
func NewDatasetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage the stored dataset catalog",
	}
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "catalog directory (default from config)")

	cmd.AddCommand(newDatasetImportCommand(opts))
	cmd.AddCommand(newDatasetListCommand(opts))
	cmd.AddCommand(newDatasetShowCommand(opts))
	cmd.AddCommand(newDatasetDeleteCommand(opts))
	cmd.AddCommand(newDatasetExportCommand(opts))
	cmd.AddCommand(newDatasetIntervalCommand(opts))

	return cmd
}

// withService opens the catalog, runs fn and closes it.
func (o *DatasetOptions) withService(cmd *cobra.Command, fn func(svc *analysis.Service) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if o.DataDir != "" {
		cfg.Service.DataDir = o.DataDir
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(analysis.New(cfg, o.newLogger(cmd, cfg), db))
}

func (o *DatasetOptions) newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	if o.Verbose {
		return logger.NewWithWriter(cfg.Service.LogLevel, cmd.ErrOrStderr())
	}
	return logger.Nop()
}

func newDatasetImportCommand(opts *DatasetOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <data-file>",
		Short: "Store a dataset file in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.ReadFile(args[0])
			if err != nil {
				return classify("read dataset", err)
			}
			if name != "" {
				ds.Name = name
			}
			return opts.withService(cmd, func(svc *analysis.Service) error {
				if err := svc.PutDataset(*ds); err != nil {
					return classify("import", err)
				}
				return opts.formatter(cmd).Emit(map[string]any{"name": ds.Name, "n": ds.Len()}, func(w io.Writer) {
					fmt.Fprintf(w, "stored %s (%d points)\n", ds.Name, ds.Len())
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "catalog name (default: file name)")
	return cmd
}

func newDatasetListCommand(opts *DatasetOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(svc *analysis.Service) error {
				list, err := svc.ListDatasets()
				if err != nil {
					return classify("list", err)
				}
				return opts.formatter(cmd).Emit(list, func(w io.Writer) { writeSummaries(w, list) })
			})
		},
	}
}

func writeSummaries(w io.Writer, list []storage.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tN\tX LIMITS\tY LIMITS\tERRORS")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%t\n", s.Name, s.N, s.XLimits, s.YLimits, s.HasErrors)
	}
	_ = tw.Flush()
}

func newDatasetShowCommand(opts *DatasetOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(svc *analysis.Service) error {
				ds, err := svc.GetDataset(args[0])
				if err != nil {
					return classify("show", err)
				}
				return opts.formatter(cmd).Emit(ds, func(w io.Writer) { _ = dataset.WriteJSON(w, ds) })
			})
		},
	}
}

func newDatasetDeleteCommand(opts *DatasetOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a dataset from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(svc *analysis.Service) error {
				if err := svc.DeleteDataset(args[0]); err != nil {
					return classify("delete", err)
				}
				return opts.formatter(cmd).Emit(map[string]any{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %s\n", args[0])
				})
			})
		},
	}
}

func newDatasetExportCommand(opts *DatasetOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a stored dataset to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(svc *analysis.Service) error {
				path, err := svc.ExportDataset(args[0], dir)
				if err != nil {
					return classify("export", err)
				}
				return opts.formatter(cmd).Emit(map[string]any{"path": path}, func(w io.Writer) {
					fmt.Fprintln(w, path)
				})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "exports", "output directory")
	return cmd
}

func newDatasetIntervalCommand(opts *DatasetOptions) *cobra.Command {
	iopts := &IntervalOptions{RootOptions: opts.RootOptions}
	cmd := &cobra.Command{
		Use:   "interval <name>",
		Short: "Estimate tau and its interval for a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := iopts.request(cmd)
			return opts.withService(cmd, func(svc *analysis.Service) error {
				rep, err := svc.AnalyzeStored(cmd.Context(), args[0], req)
				if err != nil {
					return classify("interval", err)
				}
				return opts.formatter(cmd).Emit(rep, func(w io.Writer) { writeReport(w, rep) })
			})
		},
	}
	iopts.bindFlags(cmd)
	return cmd
}
