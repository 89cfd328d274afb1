package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/planet-positions/internal/logging"
	"github.com/signalsfoundry/planet-positions/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func startServer(t *testing.T, cfg Config) (*rpc.Client, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("net.Listen: %v", err)
	}
	cfg.ListenAddress = lis.Addr().String()

	log := logging.New(logging.Config{Level: "warn", Format: "text"})
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewClient(conn), cancel, errCh
}

func TestEphemerisServerStartupSmoke(t *testing.T) {
	client, cancel, errCh := startServer(t, Config{})
	defer cancel()

	obs, err := client.GetPositions(context.Background(), "all", "2020-01-01")
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(obs) != 8 {
		t.Fatalf("GetPositions returned %d observations, want 8", len(obs))
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestEphemerisServerLoadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	body := `{"planets":[{"name":"Vulcan","mean_longitude":10,"period":20}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	client, cancel, errCh := startServer(t, Config{CatalogPath: path, Formula: "multiplicative"})
	defer cancel()

	defs, err := client.ListPlanets(context.Background())
	if err != nil {
		t.Fatalf("ListPlanets: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "Vulcan" {
		t.Fatalf("ListPlanets = %+v, want only Vulcan", defs)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestEphemerisServerRateLimit(t *testing.T) {
	client, cancel, errCh := startServer(t, Config{RateLimit: 0.001, RateBurst: 1})
	defer cancel()

	if _, err := client.ListPlanets(context.Background()); err != nil {
		t.Fatalf("first ListPlanets: %v", err)
	}
	if _, err := client.ListPlanets(context.Background()); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("second ListPlanets code = %v, want ResourceExhausted", status.Code(err))
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	log := logging.Noop()
	for name, cfg := range map[string]Config{
		"formula": {Formula: "quadratic"},
		"catalog": {CatalogPath: filepath.Join(t.TempDir(), "missing.json")},
	} {
		t.Run(name, func(t *testing.T) {
			lis, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatalf("net.Listen: %v", err)
			}
			defer lis.Close()
			if err := run(context.Background(), cfg, log, lis); err == nil {
				t.Fatalf("run(%+v) succeeded, want error", cfg)
			}
		})
	}
}
