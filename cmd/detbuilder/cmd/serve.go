package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC trigger service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9464", "Prometheus listen address (empty disables)")
	serveCmd.Flags().String("settings-dir", "", "directory of <project>.yaml settings files to import and watch")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true, func(cfg *config.ServiceConfig) {
		if cmd.Flags().Changed("host") {
			cfg.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}
		if cmd.Flags().Changed("settings-dir") {
			cfg.SettingsDir, _ = cmd.Flags().GetString("settings-dir")
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	grpcServer, err := server.NewGRPCServer(a.cfg, a.svc, a.logger)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		metricsServer = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		a.logger.Info("metrics listening", "addr", a.cfg.MetricsAddr)
	}

	if dir := a.cfg.SettingsDir; dir != "" {
		importSettingsDir(ctx, a.svc, a.logger, dir)
		go func() {
			err := config.WatchSettings(ctx, dir, a.logger, func(path string) {
				reloadSettings(ctx, a.svc, a.logger, path)
			})
			if err != nil {
				a.logger.Error("settings watcher stopped", "error", err)
			}
		}()
	}

	a.logger.Info("starting detbuilder", "version", Version, "addr", a.cfg.Addr())
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return grpcServer.Shutdown(shutdownCtx)
	}
}
