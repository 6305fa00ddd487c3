// Command drcommitteed runs the disaster-recovery committee as a process
// independent of the main control plane (§4.6), against its own data
// directory so a main-process outage cannot take the committee down with
// it.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ctrlplane/internal/audit"
	"ctrlplane/internal/config"
	"ctrlplane/internal/dr"
	"ctrlplane/internal/httpapi"
	"ctrlplane/internal/httpapi/auth"
	"ctrlplane/internal/logging"
	"ctrlplane/internal/metrics"
	"ctrlplane/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./drcommittee.toml", "Path to the configuration file")
	mainDataDir := flag.String("main-data-dir", "", "Data directory of the main control-plane process, for snapshot/restore")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CTRLPLANE_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger := logging.Setup("drcommitteed", env, nil)
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	var logDest io.Writer
	if cfg.LogFilePath != "" {
		logDest = logging.RotatedFile(cfg.LogFilePath)
	}
	logger := logging.Setup("drcommitteed", env, logDest)

	db, err := store.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open data directory", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	auditLog := audit.NewLog(db)

	targetDataDir := strings.TrimSpace(*mainDataDir)
	if targetDataDir == "" {
		targetDataDir = cfg.DataDir
	}
	controller := dr.NewFilesystemController(targetDataDir, filepath.Join(cfg.DataDir, "snapshots"))

	svc := dr.NewService(db, controller, auditLog, nil)

	authenticator := auth.NewAuthenticator(auth.Config{
		Enabled:    strings.TrimSpace(os.Getenv("CTRLPLANE_JWT_SECRET")) != "",
		HMACSecret: os.Getenv("CTRLPLANE_JWT_SECRET"),
		Issuer:     os.Getenv("CTRLPLANE_JWT_ISSUER"),
		Audience:   os.Getenv("CTRLPLANE_JWT_AUDIENCE"),
	})

	metrics.Register(prometheus.DefaultRegisterer)

	server := httpapi.NewServer(nil, svc, nil, authenticator).
		WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunWatchdog(ctx, cfg.DRWatchdogTimeout.Duration/4)

	httpServer := &http.Server{Addr: cfg.ListenAddress, Handler: server.Router()}
	go func() {
		logger.Info("listening", "address", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "error", err)
	}
}
