package main

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/planet-positions/core"
	"github.com/signalsfoundry/planet-positions/internal/dateparse"
	"github.com/signalsfoundry/planet-positions/internal/rpc"
	"github.com/signalsfoundry/planet-positions/kb"
	"github.com/signalsfoundry/planet-positions/model"
)

type backend interface {
	Positions(ctx context.Context, planet, date string) ([]model.Observation, error)
	Track(ctx context.Context, planet, start string, step time.Duration, count int) ([]model.Observation, error)
	Catalog(ctx context.Context) ([]model.PlanetDefinition, error)
	Separation(ctx context.Context, from, to, date string) (model.Separation, error)
	Close() error
}

type localBackend struct {
	store *kb.KnowledgeBase
	eph   *core.Ephemeris
	clock func() time.Time
}

func (l *localBackend) Positions(ctx context.Context, planet, date string) ([]model.Observation, error) {
	at, err := dateparse.Parse(date, l.clock)
	if err != nil {
		return nil, err
	}
	return l.eph.Compute(ctx, planet, at)
}

func (l *localBackend) Track(ctx context.Context, planet, start string, step time.Duration, count int) ([]model.Observation, error) {
	at, err := dateparse.Parse(start, l.clock)
	if err != nil {
		return nil, err
	}
	return l.eph.Track(ctx, planet, at, step, count)
}

func (l *localBackend) Catalog(context.Context) ([]model.PlanetDefinition, error) {
	return l.store.ListPlanets(), nil
}

func (l *localBackend) Separation(ctx context.Context, from, to, date string) (model.Separation, error) {
	at, err := dateparse.Parse(date, l.clock)
	if err != nil {
		return model.Separation{}, err
	}
	return l.eph.Separation(ctx, from, to, at)
}

func (l *localBackend) Close() error { return nil }

type remoteBackend struct {
	conn    *grpc.ClientConn
	client  *rpc.Client
	timeout time.Duration
}

func dialRemote(addr string, timeout time.Duration) (*remoteBackend, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &remoteBackend{conn: conn, client: rpc.NewClient(conn), timeout: timeout}, nil
}

func (r *remoteBackend) Positions(ctx context.Context, planet, date string) ([]model.Observation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.GetPositions(ctx, planet, date)
}

func (r *remoteBackend) Track(ctx context.Context, planet, start string, step time.Duration, count int) ([]model.Observation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Track(ctx, planet, start, step, count)
}

func (r *remoteBackend) Catalog(ctx context.Context) ([]model.PlanetDefinition, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.ListPlanets(ctx)
}

func (r *remoteBackend) Separation(ctx context.Context, from, to, date string) (model.Separation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.GetSeparation(ctx, from, to, date)
}

func (r *remoteBackend) Close() error { return r.conn.Close() }

func (r *remoteBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
