package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"duo/internal/backend"
	"duo/internal/cache"
	"duo/internal/cli"
	"duo/internal/config"
	apphttp "duo/internal/http"
	"duo/internal/ledger"
	"duo/internal/log"
	"duo/internal/services"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before the process exits.
func run() int {
	cfg, logger := cli.Bootstrap(log.ComponentApp, (*config.Config).Validate)

	ledgerCfg, err := cfg.Ledger()
	if err != nil {
		logger.Error("Invalid ledger policies", log.FieldError, err.Error())
		return 1
	}
	engine, err := ledger.NewEngine(ledgerCfg)
	if err != nil {
		logger.Error("Failed to create settlement engine", log.FieldError, err.Error())
		return 1
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		return 1
	}
	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err.Error())
		return 1
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	svc := services.NewLedgerService(result.Backend, engine, cfg.PersistenceTimeout, logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{})

	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	for _, c := range result.Caches {
		caches.Register(c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting duo server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"split_policy", ledgerCfg.Split,
			log.FieldPolicy, ledgerCfg.Settlement)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		caches.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
