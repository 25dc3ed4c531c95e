package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logreplay/analysis"
	"logreplay/analysispool"
	"logreplay/cache"
	"logreplay/config"
	"logreplay/server"
	"logreplay/share"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over websocket and HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address")
	cmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "result cache directory")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, _, err := loadProfiles(cfg, logger)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return errors.Errorf("no valid profile in %s", cfg.ProfileDir)
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	sources := []string{cfg.ProfileDir}
	if _, err := os.Stat(cfg.AbilityFile); err == nil {
		sources = append(sources, cfg.AbilityFile)
	}
	cleaned, err := cache.CleanUpWithHash(cfg.CacheDir, sources...)
	if err != nil {
		return err
	}
	if cleaned {
		logger.Info("result cache reset", zap.String("dir", cfg.CacheDir))
	}

	storage, err := cache.NewStorage(cfg.CacheDir, cfg.CacheTTL, cfg.CacheEntries, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool := analysispool.New(analysispool.Config{
		Profiles: profiles,
		Catalog:  catalog,
		Storage:  storage,
		Metrics:  analysis.NewMetrics(reg),
		Logger:   logger,
		Strict:   cfg.Strict,
	})
	go pool.Run(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := storage.Sweep()
				if err != nil {
					logger.Warn("cache sweep", zap.Error(err))
				} else if n > 0 {
					logger.Debug("cache sweep", zap.Int("removed", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	share.ConfigureDefaultClient(10 * time.Second)

	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	server.Route(g, server.Options{
		Pool:            pool,
		Gatherer:        reg,
		RecaptchaSecret: cfg.RecaptchaSecret,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: g,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Listen), zap.Int("profiles", len(profiles)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.WithStack(err)
		}
		return nil

	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.WithStack(srv.Shutdown(shutdownCtx))
}
