package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/planet-positions/kb"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func referencePlanets(t *testing.T, opts ...PlanetOption) []Planet {
	t.Helper()
	var out []Planet
	for _, def := range kb.ReferenceCatalog() {
		p, err := PlanetFromDefinition(def, opts...)
		if err != nil {
			t.Fatalf("PlanetFromDefinition(%s): %v", def.Name, err)
		}
		out = append(out, p)
	}
	return out
}

func mustPlanet(t *testing.T, name string, meanLongitude, period float64, opts ...PlanetOption) Planet {
	t.Helper()
	p, err := NewPlanet(name, meanLongitude, period, opts...)
	if err != nil {
		t.Fatalf("NewPlanet(%s): %v", name, err)
	}
	return p
}

func TestNewPlanetRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		planet        string
		meanLongitude float64
		period        float64
	}{
		{name: "zero period", planet: "A", meanLongitude: 10, period: 0},
		{name: "negative period", planet: "A", meanLongitude: 10, period: -365},
		{name: "NaN period", planet: "A", meanLongitude: 10, period: math.NaN()},
		{name: "infinite period", planet: "A", meanLongitude: 10, period: math.Inf(1)},
		{name: "NaN mean longitude", planet: "A", meanLongitude: math.NaN(), period: 10},
		{name: "infinite mean longitude", planet: "A", meanLongitude: math.Inf(-1), period: 10},
		{name: "empty name", planet: "", meanLongitude: 10, period: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanet(tt.planet, tt.meanLongitude, tt.period)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("NewPlanet error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestNewPlanetAcceptsUnnormalisedMeanLongitude(t *testing.T) {
	p := mustPlanet(t, "Wrapped", -720.5, 100)
	if p.MeanLongitude() != -720.5 {
		t.Fatalf("MeanLongitude() = %v, want -720.5", p.MeanLongitude())
	}
	if got := p.PositionAtDate(ReferenceEpoch()); !approxEqual(got, 359.5) {
		t.Fatalf("PositionAtDate(epoch) = %v, want 359.5", got)
	}
}

func TestAngularSpeedAndYears(t *testing.T) {
	for _, p := range referencePlanets(t) {
		if got, want := p.AngularSpeed(), 360/p.Period(); !approxEqual(got, want) {
			t.Fatalf("%s AngularSpeed() = %v, want %v", p.Name(), got, want)
		}
		if got, want := p.OrbitalPeriodYears(), p.Period()/365.256; !approxEqual(got, want) {
			t.Fatalf("%s OrbitalPeriodYears() = %v, want %v", p.Name(), got, want)
		}
	}
}

func TestEarthIsOneYearAndOneAU(t *testing.T) {
	earth := mustPlanet(t, "Earth", 100.0, 365.256)
	if !approxEqual(earth.OrbitalPeriodYears(), 1.0) {
		t.Fatalf("Earth OrbitalPeriodYears() = %v, want 1", earth.OrbitalPeriodYears())
	}
	if !approxEqual(earth.DistanceAU(), 1.0) {
		t.Fatalf("Earth DistanceAU() = %v, want 1", earth.DistanceAU())
	}
	if !approxEqual(earth.DistanceKm(), KilometresPerAU) {
		t.Fatalf("Earth DistanceKm() = %v, want %v", earth.DistanceKm(), KilometresPerAU)
	}
}

func TestDistanceFollowsKeplersThirdLaw(t *testing.T) {
	for _, p := range referencePlanets(t) {
		years := p.OrbitalPeriodYears()
		au := p.DistanceAU()
		if au < 0 {
			t.Fatalf("%s DistanceAU() = %v, want non-negative", p.Name(), au)
		}
		if !approxEqual(au*au*au, years*years) {
			t.Fatalf("%s: AU³ = %v, years² = %v", p.Name(), au*au*au, years*years)
		}
	}
}

func TestDistanceMonotonicWithPeriod(t *testing.T) {
	planets := referencePlanets(t)
	for i := 1; i < len(planets); i++ {
		prev, cur := planets[i-1], planets[i]
		if cur.Period() <= prev.Period() {
			t.Fatalf("catalog period not increasing: %s %v, %s %v", prev.Name(), prev.Period(), cur.Name(), cur.Period())
		}
		if cur.DistanceAU() <= prev.DistanceAU() {
			t.Fatalf("DistanceAU not increasing: %s %v, %s %v", prev.Name(), prev.DistanceAU(), cur.Name(), cur.DistanceAU())
		}
	}
}

func TestDaysSinceEpoch(t *testing.T) {
	tests := []struct {
		date time.Time
		want int64
	}{
		{date: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{date: time.Date(2000, 1, 1, 23, 59, 59, 0, time.UTC), want: 0},
		{date: time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC), want: 10},
		{date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: 7305},
		{date: time.Date(1999, 12, 31, 23, 0, 0, 0, time.UTC), want: -1},
		{date: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), want: -365},
		{date: time.Date(2000, 1, 1, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*3600)), want: -1},
		{date: time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC), want: 182622},
	}

	for _, tt := range tests {
		if got := DaysSinceEpoch(tt.date); got != tt.want {
			t.Fatalf("DaysSinceEpoch(%v) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestPositionAtDateAdditive(t *testing.T) {
	tests := []struct {
		name string
		L, P float64
		date time.Time
		want float64
	}{
		{name: "Earth epoch", L: 100, P: 365.256, date: ReferenceEpoch(), want: 100},
		{name: "Earth +10d", L: 100, P: 365.256, date: time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC), want: 109.85610092647349},
		{name: "Earth 2020", L: 100, P: 365.256, date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: 99.88172678888259},
		{name: "Earth 1999", L: 100, P: 365.256, date: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), want: 100.25231618371771},
		{name: "Mars 2020", L: 355.2, P: 686.98, date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: 223.25904102011737},
		{name: "Mars wraps", L: 355.2, P: 686.98, date: time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC), want: 0.44032722932252},
		{name: "Mercury 1999", L: 250.2, P: 87.969, date: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), want: 196.49198922347637},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPlanet(t, tt.name, tt.L, tt.P)
			if got := p.PositionAtDate(tt.date); math.Abs(got-tt.want) > 1e-7 {
				t.Fatalf("PositionAtDate = %.12f, want %.12f", got, tt.want)
			}
		})
	}
}

func TestPositionAtDateMultiplicative(t *testing.T) {
	tests := []struct {
		name string
		L, P float64
		date time.Time
		want float64
	}{
		{name: "round trip at epoch", L: 100, P: 365.256, date: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "Earth 2020", L: 100, P: 365.256, date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: 348.17267888830975},
		{name: "Earth 1999", L: 100, P: 365.256, date: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), want: 25.23161837177031},
		{name: "Mars +10d", L: 355.2, P: 686.98, date: time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC), want: 61.364231855366825},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPlanet(t, "TestBody", tt.L, tt.P, WithFormula(FormulaMultiplicative))
			if got := p.PositionAtDate(tt.date); math.Abs(got-tt.want) > 1e-7 {
				t.Fatalf("PositionAtDate = %.12f, want %.12f", got, tt.want)
			}
		})
	}
}

func TestPositionAtDateRangeAndPurity(t *testing.T) {
	dates := []time.Time{
		ReferenceEpoch(),
		time.Date(1900, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(1975, 7, 4, 12, 30, 0, 0, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2049, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, formula := range []Formula{FormulaAdditive, FormulaMultiplicative} {
		for _, p := range referencePlanets(t, WithFormula(formula)) {
			for _, d := range dates {
				got := p.PositionAtDate(d)
				if got < 0 || got >= 360 || math.IsNaN(got) {
					t.Fatalf("%s/%s PositionAtDate(%v) = %v, outside [0, 360)", formula, p.Name(), d, got)
				}
				again := p.PositionAtDate(d)
				if math.Float64bits(got) != math.Float64bits(again) {
					t.Fatalf("%s/%s PositionAtDate(%v) not repeatable: %v then %v", formula, p.Name(), d, got, again)
				}
			}
		}
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Copysign(0, -1), 0},
		{360, 0},
		{720.5, 0.5},
		{-90, 270},
		{-360, 0},
		{-1e-15, 0},
		{359.999, 359.999},
	}
	for _, tt := range tests {
		got := NormalizeDegrees(tt.in)
		if !approxEqual(got, tt.want) || math.Signbit(got) {
			t.Fatalf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormula(t *testing.T) {
	for in, want := range map[string]Formula{
		"":               FormulaAdditive,
		"additive":       FormulaAdditive,
		"multiplicative": FormulaMultiplicative,
	} {
		got, err := ParseFormula(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormula(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormula("kepler"); err == nil {
		t.Fatalf("expected ParseFormula to reject unknown formula")
	}
}

func TestObserve(t *testing.T) {
	earth := mustPlanet(t, "Earth", 100, 365.256)
	date := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	obs := Observe(earth, date)
	if obs.Name != "Earth" || !obs.Date.Equal(date) {
		t.Fatalf("unexpected observation identity: %#v", obs)
	}
	if obs.DaysSinceEpoch != 0 {
		t.Fatalf("DaysSinceEpoch = %d, want 0", obs.DaysSinceEpoch)
	}
	if !approxEqual(obs.JulianDay, 2451544.5) {
		t.Fatalf("JulianDay = %v, want 2451544.5", obs.JulianDay)
	}
	if !approxEqual(obs.DistanceAU, 1) || !approxEqual(obs.OrbitalPeriodYears, 1) {
		t.Fatalf("Earth observation distance/years = %v/%v, want 1/1", obs.DistanceAU, obs.OrbitalPeriodYears)
	}
	if !approxEqual(obs.Longitude, 100) {
		t.Fatalf("Longitude = %v, want 100", obs.Longitude)
	}
}
