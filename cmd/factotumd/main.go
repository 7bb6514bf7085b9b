// Command factotumd runs the server: HTTP admission surface, bounded
// dispatcher queue, and worker pool, fronting the same Executor the
// standalone factotum CLI drives directly.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/railyard/factotum/internal/admission"
	"github.com/railyard/factotum/internal/config"
	"github.com/railyard/factotum/internal/dispatcher"
	"github.com/railyard/factotum/internal/httpapi"
	"github.com/railyard/factotum/internal/kvstore"
	"github.com/railyard/factotum/internal/logging"
	"github.com/railyard/factotum/internal/runjob"
	"github.com/railyard/factotum/internal/telemetry"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.Init("factotumd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, "factotumd")
	if err != nil {
		logger.Warn("telemetry init failed", "error", err)
	}

	store, err := kvstore.OpenBolt(cfg.KVStorePath, cfg.InstanceID, cfg.Namespace)
	if err != nil {
		logger.Error("failed to open kv store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	disp := dispatcher.New(store, func(jobCtx context.Context, req dispatcher.JobRequest) error {
		_, err := runjob.Run(jobCtx, req.FactfilePath, req.FactfileArgs, cfg.Version)
		return err
	}, dispatcher.WithMaxJobs(cfg.MaxJobs), dispatcher.WithMaxWorkers(cfg.MaxWorkers))
	disp.Start(ctx)

	state := admission.NewServerState()
	pipeline := admission.New(admission.Config{
		FactotumBinPath: cfg.FactotumBinPath,
		WebhookURI:      cfg.WebhookURI,
		NoColour:        cfg.NoColour,
		Namespace:       cfg.Namespace,
	}, store, disp, state)

	handler := httpapi.New(pipeline, disp, state, cfg.Version)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		logger.Info("server started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}
	disp.Stop()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown error", "error", err)
	}
}
