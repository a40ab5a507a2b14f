package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/nvl/internal/appsheet"
	"github.com/JonMunkholm/nvl/internal/config"
	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/images"
	"github.com/JonMunkholm/nvl/internal/logging"
	"github.com/JonMunkholm/nvl/internal/tagprint"
	"github.com/JonMunkholm/nvl/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"app_id", cfg.AppSheet.AppID,
		"material_table", cfg.AppSheet.MaterialTable,
		"package_table", cfg.AppSheet.PackageTable,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewMetrics(reg)

	client := appsheet.NewClient(cfg.AppSheet, appsheet.WithObserver(metrics.ObserveAPICall))

	store, err := images.NewLocalStore(cfg.Images.Dir)
	if err != nil {
		slog.Error("failed to open image directory", "dir", cfg.Images.Dir, "error", err)
		os.Exit(1)
	}
	imgs := images.NewService(store, cfg.Images.MaxSize, cfg.Images.PublicBaseURL)

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)

	service := core.NewService(client, imgs, limiter, metrics, core.ServiceConfig{
		MaterialTable: cfg.AppSheet.MaterialTable,
		PackageTable:  cfg.AppSheet.PackageTable,
		PageSize:      cfg.Screen.PageSize,
		Import: core.ImporterConfig{
			BatchSize:   cfg.Import.BatchSize,
			MaxFileSize: cfg.Import.MaxFileSize,
		},
	})

	// Warm both stores; screens retry on first render if this fails
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.AppSheet.Timeout)
	if err := service.RefreshAll(loadCtx); err != nil {
		slog.Warn("initial load failed", "error", err)
	} else {
		slog.Info("stores loaded",
			"materials", service.Materials.Len(),
			"packages", service.Packages.Len(),
		)
	}
	cancelLoad()

	var scheduler *core.RefreshScheduler
	if cfg.Refresh.Enabled {
		scheduler, err = core.NewRefreshScheduler(cfg.Refresh.Schedule, cfg.AppSheet.Timeout, service.Materials, service.Packages)
		if err != nil {
			slog.Error("failed to create refresh scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	tags := tagprint.NewRenderer(tagprint.Options{
		CompanyName:  cfg.Print.CompanyName,
		CompanyLines: cfg.Print.CompanyLines,
		SettleDelay:  cfg.Print.SettleDelay,
	})

	server := web.NewServer(cfg, service, tags, reg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if scheduler != nil {
			select {
			case <-scheduler.Stop().Done():
			case <-shutdownCtx.Done():
				slog.Warn("scheduled refresh did not finish in time")
			}
		}

		// Wait for running imports so no batch is cut off halfway
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
