package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// EphemerisCollector bundles Prometheus metrics for position computations and
// the gRPC surface, and provides helpers to wire them into servers.
type EphemerisCollector struct {
	gatherer prometheus.Gatherer

	Observations      *prometheus.CounterVec
	LookupFailures    prometheus.Counter
	DateParseFailures prometheus.Counter
	ComputeDurations  prometheus.Histogram
	CatalogPlanets    prometheus.Gauge
	RPCRequests       *prometheus.CounterVec
	RPCDurations      *prometheus.HistogramVec
}

// NewEphemerisCollector registers the metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEphemerisCollector(reg prometheus.Registerer) (*EphemerisCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	observations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planet_observations_total",
		Help: "Number of planet positions computed, labeled by planet.",
	}, []string{"planet"}), "planet_observations_total")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planet_lookup_failures_total",
		Help: "Number of planet selectors that matched nothing in the catalog.",
	}), "planet_lookup_failures_total")
	if err != nil {
		return nil, err
	}

	dateFailures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "date_parse_failures_total",
		Help: "Number of date selectors rejected by the parser.",
	}), "date_parse_failures_total")
	if err != nil {
		return nil, err
	}

	computeHist, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ephemeris_computation_duration_seconds",
		Help:    "Duration of ephemeris computations (single date or tracked range).",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "ephemeris_computation_duration_seconds")
	if err != nil {
		return nil, err
	}

	catalog, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_planets",
		Help: "Current number of planets in the catalog.",
	}), "catalog_planets")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeris_rpc_requests_total",
		Help: "Total number of handled ephemeris RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "ephemeris_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ephemeris_rpc_duration_seconds",
		Help:    "Ephemeris RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "ephemeris_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &EphemerisCollector{
		gatherer:          gatherer,
		Observations:      observations,
		LookupFailures:    lookups,
		DateParseFailures: dateFailures,
		ComputeDurations:  computeHist,
		CatalogPlanets:    catalog,
		RPCRequests:       requests,
		RPCDurations:      durations,
	}, nil
}

// RecordObservation counts one computed position.
func (c *EphemerisCollector) RecordObservation(planet string) {
	if c == nil || c.Observations == nil {
		return
	}
	c.Observations.WithLabelValues(planet).Inc()
}

// RecordLookupFailure counts a selector with no catalog match. The selector
// is client supplied, so it is not used as a label.
func (c *EphemerisCollector) RecordLookupFailure(string) {
	if c == nil || c.LookupFailures == nil {
		return
	}
	c.LookupFailures.Inc()
}

// RecordDateParseFailure counts a rejected date selector.
func (c *EphemerisCollector) RecordDateParseFailure() {
	if c == nil || c.DateParseFailures == nil {
		return
	}
	c.DateParseFailures.Inc()
}

// ObserveComputation records the duration of one ephemeris computation.
func (c *EphemerisCollector) ObserveComputation(d time.Duration) {
	if c == nil || c.ComputeDurations == nil {
		return
	}
	c.ComputeDurations.Observe(d.Seconds())
}

// SetCatalogSize updates the catalog gauge.
func (c *EphemerisCollector) SetCatalogSize(n int) {
	if c == nil || c.CatalogPlanets == nil {
		return
	}
	c.CatalogPlanets.Set(float64(n))
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *EphemerisCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EphemerisCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EphemerisCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register reuses an already registered collector of the same type so that
// constructing a second collector against one registry is harmless.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	return register(reg, vec, name)
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	return register(reg, vec, name)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	return register(reg, counter, name)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	return register(reg, hist, name)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	return register(reg, gauge, name)
}
