package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/internal/metrics"
	"github.com/nainya/shelftrack/internal/rest"
	"github.com/nainya/shelftrack/internal/server"
)

var (
	grpcPort    int
	httpPort    int
	metricsPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC, REST and metrics servers",
	Long: `Loads the inventory from the configured store and serves it over
gRPC (shelftrack.v1.Inventory), a REST API under /v1, and an observability
endpoint with /metrics, /health, /ready and pprof.

A port of 0 disables the REST or metrics listener.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&grpcPort, "grpc-port", 0, "gRPC port (default from config)")
	serveCmd.Flags().IntVar(&httpPort, "http-port", 0, "REST port (default from config)")
	serveCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Metrics port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("grpc-port") {
		cfg.Server.GrpcPort = grpcPort
	}
	if flags.Changed("http-port") {
		cfg.Server.HTTPPort = httpPort
	}
	if flags.Changed("metrics-port") {
		cfg.Server.MetricsPort = metricsPort
	}

	log := newLogger(cfg)
	log.Debug("Effective configuration").
		Str("store_path", cfg.Store.Path).
		Str("save_timeout", cfg.Store.SaveTimeout).
		Bool("rollback", cfg.Engine.RollbackOnPersistFailure).
		Int("persist_retries", cfg.Engine.PersistRetry.Attempts).
		Str("catalog", cfg.Catalog.Path).
		Send()
	log.LogServerStart(cfg.Server.GrpcPort, cfg.Server.HTTPPort, cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)
	go m.RunUptime(ctx, 10*time.Second)

	svc, err := inventory.Open(ctx, cfg,
		inventory.WithLogger(log),
		inventory.WithObserver(m),
	)
	if err != nil {
		return fmt.Errorf("failed to open inventory: %w", err)
	}
	defer svc.Close()

	errCh := make(chan error, 3)

	// Observability server
	var obs *server.ObservabilityServer
	if cfg.Server.MetricsPort > 0 {
		obs = server.NewObservabilityServer(cfg.Server.MetricsPort, reg, log)
		go func() { errCh <- obs.Start() }()
	}

	// REST server
	var httpServer *http.Server
	if cfg.Server.HTTPPort > 0 {
		gin.SetMode(gin.ReleaseMode)
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           rest.NewRouter(svc, m, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("rest server failed: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	// gRPC server
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GrpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
	)
	server.RegisterInventoryServer(grpcServer, server.NewServer(svc))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve: %w", err)
			return
		}
		errCh <- nil
	}()

	if obs != nil {
		obs.SetReady(true)
	}
	log.LogServerReady(cfg.Server.GrpcPort)

	// Wait for a signal or a listener failure
	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.LogServerShutdown()
	if obs != nil {
		obs.SetReady(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("REST shutdown failed").Err(err).Send()
		}
	}
	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			log.Error("Observability shutdown failed").Err(err).Send()
		}
	}

	if err := svc.Flush(shutdownCtx); err != nil {
		log.Error("Final flush failed").Err(err).Send()
	}
	return serveErr
}
