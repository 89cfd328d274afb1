package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/planet-positions/model"
)

const (
	// DaysPerYear is the length of the Earth year used to express periods in years.
	DaysPerYear = 365.256
	// KilometresPerAU converts astronomical units to kilometres.
	KilometresPerAU = 149597870.7

	secondsPerDay = 24 * 60 * 60
)

// ErrInvalidParameter is returned when a planet is constructed with parameters
// that would make the derived quantities meaningless.
var ErrInvalidParameter = errors.New("invalid planet parameter")

// referenceEpochUnix is 2000-01-01T00:00:00Z.
const referenceEpochUnix int64 = 946684800

// ReferenceEpoch returns the instant all longitudes are anchored to.
func ReferenceEpoch() time.Time {
	return time.Unix(referenceEpochUnix, 0).UTC()
}

// Formula selects how the mean longitude is combined with the angle traversed
// since the epoch.
type Formula int

const (
	// FormulaAdditive computes (L + angle) mod 360.
	FormulaAdditive Formula = iota
	// FormulaMultiplicative computes (L × angle) mod 360: the legacy
	// calculator's multiplicative combination, evaluated with the corrected
	// whole-days-since-epoch convention. Its values therefore differ from the
	// legacy output, and it has no physical meaning as a longitude.
	FormulaMultiplicative
)

func (f Formula) String() string {
	switch f {
	case FormulaAdditive:
		return "additive"
	case FormulaMultiplicative:
		return "multiplicative"
	default:
		return fmt.Sprintf("Formula(%d)", int(f))
	}
}

// ParseFormula accepts "additive" (or "") and "multiplicative".
func ParseFormula(s string) (Formula, error) {
	switch s {
	case "", "additive":
		return FormulaAdditive, nil
	case "multiplicative":
		return FormulaMultiplicative, nil
	default:
		return FormulaAdditive, fmt.Errorf("unknown position formula %q", s)
	}
}

// Planet is an immutable circular-orbit approximation of a solar-system body.
// Values are safe to share across goroutines.
type Planet struct {
	name          string
	meanLongitude float64
	period        float64
	formula       Formula
}

// PlanetOption customises a Planet at construction.
type PlanetOption func(*Planet)

// WithFormula selects the position formula; the default is FormulaAdditive.
func WithFormula(f Formula) PlanetOption {
	return func(p *Planet) { p.formula = f }
}

// NewPlanet validates the parameters and returns a Planet bound to the
// reference epoch. Period must be positive and finite, mean longitude finite.
func NewPlanet(name string, meanLongitude, period float64, opts ...PlanetOption) (Planet, error) {
	if name == "" {
		return Planet{}, fmt.Errorf("%w: empty name", ErrInvalidParameter)
	}
	if math.IsNaN(meanLongitude) || math.IsInf(meanLongitude, 0) {
		return Planet{}, fmt.Errorf("%w: %s: mean longitude %v is not finite", ErrInvalidParameter, name, meanLongitude)
	}
	if math.IsNaN(period) || math.IsInf(period, 0) || period <= 0 {
		return Planet{}, fmt.Errorf("%w: %s: period %v must be a positive finite number of days", ErrInvalidParameter, name, period)
	}

	p := Planet{
		name:          name,
		meanLongitude: meanLongitude,
		period:        period,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p, nil
}

// PlanetFromDefinition builds a Planet from a catalog record.
func PlanetFromDefinition(def model.PlanetDefinition, opts ...PlanetOption) (Planet, error) {
	return NewPlanet(def.Name, def.MeanLongitude, def.Period, opts...)
}

func (p Planet) Name() string           { return p.name }
func (p Planet) MeanLongitude() float64 { return p.meanLongitude }
func (p Planet) Period() float64        { return p.period }
func (p Planet) Formula() Formula       { return p.formula }

// AngularSpeed returns the mean daily motion in degrees per day.
func (p Planet) AngularSpeed() float64 {
	return 360.0 / p.period
}

// OrbitalPeriodYears returns the period expressed in Earth years.
func (p Planet) OrbitalPeriodYears() float64 {
	return p.period / DaysPerYear
}

// DistanceAU applies Kepler's third law with Earth normalised to 1 AU:
// distance = cbrt(years²).
func (p Planet) DistanceAU() float64 {
	return math.Cbrt(math.Pow(p.OrbitalPeriodYears(), 2))
}

// DistanceKm is DistanceAU in kilometres.
func (p Planet) DistanceKm() float64 {
	return p.DistanceAU() * KilometresPerAU
}

// PositionAtDate returns the heliocentric longitude in degrees, in [0, 360).
func (p Planet) PositionAtDate(date time.Time) float64 {
	traversed := p.AngularSpeed() * float64(DaysSinceEpoch(date))

	switch p.formula {
	case FormulaMultiplicative:
		return NormalizeDegrees(p.meanLongitude * traversed)
	default:
		return NormalizeDegrees(p.meanLongitude + traversed)
	}
}

// DaysSinceEpoch returns the whole days elapsed from the reference epoch to
// date, floored, negative before the epoch.
func DaysSinceEpoch(date time.Time) int64 {
	secs := date.Unix() - referenceEpochUnix
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return days
}

// NormalizeDegrees reduces angle into [0, 360) using a Euclidean modulo.
func NormalizeDegrees(angle float64) float64 {
	angle = math.Mod(angle, 360.0)
	if angle < 0 {
		angle += 360.0
	}
	// -0 and values that round up to 360 after the shift.
	if angle == 0 || angle >= 360.0 {
		return 0
	}
	return angle
}

// Observe evaluates every derived quantity of p at date.
func Observe(p Planet, date time.Time) model.Observation {
	date = date.UTC()
	return model.Observation{
		Name:               p.name,
		Date:               date,
		DaysSinceEpoch:     DaysSinceEpoch(date),
		JulianDay:          JulianDay(date),
		AngularSpeed:       p.AngularSpeed(),
		OrbitalPeriodYears: p.OrbitalPeriodYears(),
		DistanceAU:         p.DistanceAU(),
		DistanceKm:         p.DistanceKm(),
		Longitude:          p.PositionAtDate(date),
	}
}
