// Command controlplaned is the main control-plane process: it owns the
// request lifecycle (§4.2, §5), the registry (§3), and the HTTP query
// surface (§6). The disaster-recovery committee runs as a separate process
// (cmd/drcommitteed) per §4.6's "independent of the main process" design.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ctrlplane/internal/addressbook"
	"ctrlplane/internal/audit"
	"ctrlplane/internal/config"
	"ctrlplane/internal/httpapi"
	"ctrlplane/internal/httpapi/auth"
	"ctrlplane/internal/logging"
	"ctrlplane/internal/metrics"
	"ctrlplane/internal/notify"
	"ctrlplane/internal/permission"
	"ctrlplane/internal/registry"
	"ctrlplane/internal/request"
	"ctrlplane/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./controlplane.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CTRLPLANE_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger := logging.Setup("controlplaned", env, nil)
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	var logDest io.Writer
	if cfg.LogFilePath != "" {
		logDest = logging.RotatedFile(cfg.LogFilePath)
	}
	logger := logging.Setup("controlplaned", env, logDest)

	db, err := store.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open data directory", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	requests := request.NewRepository(db)
	policies := request.NewPolicyRepository(db)
	users := request.NewUserRepository(db)
	addresses, err := addressbook.NewRepository(db)
	if err != nil {
		logger.Error("open address book", "error", err)
		os.Exit(1)
	}
	permissions := permission.NewRepository(db)
	auditLog := audit.NewLog(db)
	registrySvc := registry.NewService(db, nil)

	executors := request.NewExecutorRegistry()
	// No executors are registered here: a production deployment wires
	// one per OperationKind against whatever executes it (the on-chain
	// client, the user/permission stores, ...). Dispatch to an
	// unregistered kind fails the request with "no executor registered",
	// matching §6's "Operation interface" contract.

	notifyHub := notify.NewWSHub(256)
	svc := request.NewService(requests, policies, users, addresses, permissions, auditLog, notifyHub, executors, nil, cfg.DefaultPageSize, cfg.MaxPageSize)

	authenticator := auth.NewAuthenticator(auth.Config{
		Enabled:    strings.TrimSpace(os.Getenv("CTRLPLANE_JWT_SECRET")) != "",
		HMACSecret: os.Getenv("CTRLPLANE_JWT_SECRET"),
		Issuer:     os.Getenv("CTRLPLANE_JWT_ISSUER"),
		Audience:   os.Getenv("CTRLPLANE_JWT_AUDIENCE"),
	})

	metrics.Register(prometheus.DefaultRegisterer)

	server := httpapi.NewServer(svc, nil, registrySvc, authenticator).
		WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst).
		WithNotifyStream(notifyHub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunScheduledExecutor(ctx, cfg.ScheduledExecutorInterval.Duration)
	go svc.RunExpirationSweep(ctx, cfg.ExpirationSweepInterval.Duration)

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
