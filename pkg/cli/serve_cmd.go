package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trackerql/internal/api"
	"trackerql/internal/app"
	"trackerql/internal/config"
	"trackerql/internal/engine"
	"trackerql/internal/middleware"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr         string
		metadataFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return serve(cmd, cfg, metadataFile)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $LISTEN_ADDR)")
	cmd.Flags().StringVar(&metadataFile, "metadata", "", "Metadata fixture loaded into the catalog at startup")
	return cmd
}

func serve(cmd *cobra.Command, cfg *config.Config, metadataFile string) error {
	logger := newLogger(cmd, cfg)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meta, err := openMetadata(ctx, cfg.MetaDBPath, metadataFile)
	if err != nil {
		return err
	}
	defer meta.Close()

	pingers := map[string]api.Pinger{"metadata": meta.read}
	var analyticsDB *sql.DB
	if cfg.DatabaseURL != "" {
		analyticsDB, err = engine.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer analyticsDB.Close() //nolint:errcheck
		pingers["analytics"] = analyticsDB
	}

	a, err := app.New(app.Deps{Cfg: cfg, AnalyticsDB: analyticsDB, MetaDB: meta.read, Logger: logger})
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.Analytics, pingers, logger)
	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(ctx, handler, api.RouterConfig{
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimit: middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				Burst:             cfg.RateLimitBurst,
			},
			Logger: logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.ListenAddr, "driver", cfg.DatabaseDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
