package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yasi-python/censtau/internal/analysis"
	"github.com/yasi-python/censtau/pkg/api"
	"github.com/yasi-python/censtau/pkg/config"
	"github.com/yasi-python/censtau/pkg/logger"
	"github.com/yasi-python/censtau/pkg/metrics"
	"github.com/yasi-python/censtau/pkg/storage"
)

const dbFile = "censtau.bolt"

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Service.HTTPListen = listen
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Service.LogLevel)
	metrics.MustRegister()

	db, err := openStore(cfg)
	if err != nil {
		log.Error("db_open", "err", err)
		return err
	}
	defer db.Close()

	svc := analysis.New(cfg, log, db)
	srv := api.New(svc, cfg.Service.MetricsPath, cfg.Service.HealthzPath)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Info("server_start", "listen", cfg.Service.HTTPListen, "data_dir", cfg.Service.DataDir,
		"method", cfg.Estimator.Method, "samples", cfg.Estimator.Samples)
	if err := srv.Start(ctx, cfg.Service.HTTPListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_failed", "err", err)
		return WrapExitError(ExitFailure, "serve", err)
	}
	log.Info("server_stop")
	return nil
}

// openStore opens the dataset catalog under the configured data directory.
func openStore(cfg *config.Config) (*storage.DB, error) {
	db, err := storage.Open(filepath.Join(cfg.Service.DataDir, dbFile))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return db, nil
}
