package core

import (
	"context"
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/planet-positions/internal/logging"
	"github.com/signalsfoundry/planet-positions/model"
	"github.com/signalsfoundry/planet-positions/timectrl"
)

const tracerName = "github.com/signalsfoundry/planet-positions/core"

// JulianDay returns the Julian day number of t (UTC), including the day fraction.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	return satellite.JDay(year, int(month), day, hour, min, sec)
}

// Catalog resolves a planet selector (a name or "all") to catalog records.
type Catalog interface {
	Select(selector string) ([]model.PlanetDefinition, error)
}

// MetricsRecorder receives ephemeris activity. observability.EphemerisCollector
// implements it.
type MetricsRecorder interface {
	RecordObservation(planet string)
	RecordLookupFailure(selector string)
	ObserveComputation(d time.Duration)
}

// Ephemeris evaluates catalog planets at requested dates.
type Ephemeris struct {
	catalog Catalog
	formula Formula
	metrics MetricsRecorder
	log     logging.Logger
}

// EphemerisOption customises an Ephemeris.
type EphemerisOption func(*Ephemeris)

// WithPositionFormula selects the formula applied to every planet.
func WithPositionFormula(f Formula) EphemerisOption {
	return func(e *Ephemeris) { e.formula = f }
}

// WithMetricsRecorder attaches a metrics sink.
func WithMetricsRecorder(m MetricsRecorder) EphemerisOption {
	return func(e *Ephemeris) { e.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) EphemerisOption {
	return func(e *Ephemeris) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEphemeris constructs an evaluator over catalog.
func NewEphemeris(catalog Catalog, opts ...EphemerisOption) *Ephemeris {
	e := &Ephemeris{
		catalog: catalog,
		formula: FormulaAdditive,
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formula reports the formula in use.
func (e *Ephemeris) Formula() Formula { return e.formula }

// Compute observes every planet matched by selector at date, in catalog order.
func (e *Ephemeris) Compute(ctx context.Context, selector string, date time.Time) ([]model.Observation, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Ephemeris/Compute", trace.WithAttributes(
		attribute.String("planet.selector", selector),
		attribute.String("date", date.UTC().Format(time.RFC3339)),
		attribute.String("formula", e.formula.String()),
	))
	defer span.End()

	start := time.Now()
	planets, err := e.resolve(ctx, selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	obs := make([]model.Observation, 0, len(planets))
	for _, p := range planets {
		obs = append(obs, e.observe(p, date))
	}
	if e.metrics != nil {
		e.metrics.ObserveComputation(time.Since(start))
	}
	span.SetAttributes(attribute.Int("observations", len(obs)))
	e.log.Debug(ctx, "computed positions",
		logging.String("selector", selector),
		logging.Time("date", date),
		logging.Int("count", len(obs)),
	)
	return obs, nil
}

// Track observes the selected planets at start and then at count-1 further
// dates, each step apart. Rows are grouped by date, planets in catalog order.
func (e *Ephemeris) Track(ctx context.Context, selector string, start time.Time, step time.Duration, count int) ([]model.Observation, error) {
	if count <= 0 {
		return nil, nil
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: track step must be positive, got %s", ErrInvalidParameter, step)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Ephemeris/Track", trace.WithAttributes(
		attribute.String("planet.selector", selector),
		attribute.String("start", start.UTC().Format(time.RFC3339)),
		attribute.String("step", step.String()),
		attribute.Int("count", count),
	))
	defer span.End()

	begin := time.Now()
	planets, err := e.resolve(ctx, selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	obs := make([]model.Observation, 0, len(planets)*count)
	observeAll := func(simTime time.Time) {
		for _, p := range planets {
			obs = append(obs, e.observe(p, simTime))
		}
	}

	tc := timectrl.NewTimeController(start, step, timectrl.Accelerated)
	tc.AddListener(observeAll)

	observeAll(start)
	if err := tc.Run(ctx, count-1); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ObserveComputation(time.Since(begin))
	}
	e.log.Debug(ctx, "tracked positions",
		logging.String("selector", selector),
		logging.Time("start", start),
		logging.String("step", step.String()),
		logging.Int("rows", len(obs)),
	)
	return obs, nil
}

// Separation measures the distance, light time and solar elongation between
// two single planets at date.
func (e *Ephemeris) Separation(ctx context.Context, from, to string, date time.Time) (model.Separation, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Ephemeris/Separation", trace.WithAttributes(
		attribute.String("planet.from", from),
		attribute.String("planet.to", to),
		attribute.String("date", date.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	start := time.Now()
	a, err := e.resolveOne(ctx, from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Separation{}, err
	}
	b, err := e.resolveOne(ctx, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Separation{}, err
	}

	sep := Separate(a, b, date)
	if e.metrics != nil {
		e.metrics.ObserveComputation(time.Since(start))
	}
	span.SetAttributes(attribute.Float64("distance_au", sep.DistanceAU))
	return sep, nil
}

func (e *Ephemeris) resolveOne(ctx context.Context, name string) (Planet, error) {
	planets, err := e.resolve(ctx, name)
	if err != nil {
		return Planet{}, err
	}
	if len(planets) != 1 {
		return Planet{}, fmt.Errorf("%w: %q selects %d planets, want exactly one", ErrInvalidParameter, name, len(planets))
	}
	return planets[0], nil
}

func (e *Ephemeris) resolve(ctx context.Context, selector string) ([]Planet, error) {
	defs, err := e.catalog.Select(selector)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordLookupFailure(selector)
		}
		e.log.Warn(ctx, "planet lookup failed", logging.String("selector", selector), logging.Err(err))
		return nil, err
	}

	planets := make([]Planet, 0, len(defs))
	for _, def := range defs {
		p, err := PlanetFromDefinition(def, WithFormula(e.formula))
		if err != nil {
			return nil, err
		}
		planets = append(planets, p)
	}
	return planets, nil
}

func (e *Ephemeris) observe(p Planet, date time.Time) model.Observation {
	if e.metrics != nil {
		e.metrics.RecordObservation(p.Name())
	}
	return Observe(p, date)
}
