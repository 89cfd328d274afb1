package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/planet-positions/core"
	"github.com/signalsfoundry/planet-positions/internal/logging"
	"github.com/signalsfoundry/planet-positions/internal/observability"
	"github.com/signalsfoundry/planet-positions/internal/rpc"
	"github.com/signalsfoundry/planet-positions/kb"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

// Config holds the server settings gathered from flags and the environment.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	CatalogPath    string
	Formula        string

	// RateLimit is requests per second per client host; 0 disables it.
	RateLimit float64
	RateBurst int
}

func main() {
	logCfg := logging.ConfigFromEnv()

	cfg := Config{}
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50051", "TCP address the ephemeris gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.LogLevel, "log-level", logCfg.Level, "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", logCfg.Format, "log format: text or json")
	flag.StringVar(&cfg.CatalogPath, "catalog", os.Getenv("PLANETS_CATALOG"), "path to a JSON planet catalog (empty uses the built-in catalog)")
	flag.StringVar(&cfg.Formula, "formula", os.Getenv("PLANETS_FORMULA"), "position formula: additive or multiplicative")
	flag.Float64Var(&cfg.RateLimit, "rate-limit", 0, "requests per second allowed per client host (0 disables)")
	flag.IntVar(&cfg.RateBurst, "rate-burst", 20, "burst size for -rate-limit")
	flag.Parse()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "ephemeris server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the ephemeris API on lis until ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	formula, err := core.ParseFormula(cfg.Formula)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("ephemeris-server"), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewEphemerisCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	store := kb.NewKnowledgeBase()
	unsubscribe := store.Subscribe(func(e kb.Event) {
		collector.SetCatalogSize(e.Count)
	})
	defer unsubscribe()

	if err := loadCatalog(ctx, log, store, cfg.CatalogPath); err != nil {
		return err
	}

	eph := core.NewEphemeris(store,
		core.WithPositionFormula(formula),
		core.WithMetricsRecorder(collector),
		core.WithLogger(log),
	)

	var limiter *rpc.PeerRateLimiter
	if cfg.RateLimit > 0 {
		limiter = rpc.NewPeerRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RateLimitUnaryServerInterceptor(limiter),
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	rpc.Register(server, rpc.NewEphemerisService(eph, store, log,
		rpc.WithDateFailureRecorder(collector),
	))

	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting ephemeris gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.String("formula", formula.String()),
		logging.Int("planets", store.Len()),
	)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var result error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down ephemeris server")
		server.GracefulStop()
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("serve: %w", err)
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

func loadCatalog(ctx context.Context, log logging.Logger, store *kb.KnowledgeBase, path string) error {
	if path == "" {
		for _, def := range kb.ReferenceCatalog() {
			if err := store.AddPlanet(def); err != nil {
				return err
			}
		}
		log.Info(ctx, "loaded built-in planet catalog", logging.Int("count", store.Len()))
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	defs, err := core.LoadCatalog(store, f)
	if err != nil {
		return err
	}
	log.Info(ctx, "loaded planet catalog",
		logging.String("path", path),
		logging.Int("count", len(defs)),
	)
	return nil
}

func serveMetrics(addr string, collector *observability.EphemerisCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
