package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/planet-positions/kb"
)

func TestHasLineOfSight_NoObstruction(t *testing.T) {
	// Two planets on the same side of the Sun.
	posA := Vec3{X: 1, Y: 0, Z: 0}
	posB := Vec3{X: 1.5, Y: 0.2, Z: 0}

	if !hasLineOfSight(posA, posB, SunRadiusAU) {
		t.Errorf("expected line of sight between planets on the same side of the Sun")
	}
}

func TestHasLineOfSight_Obstructed(t *testing.T) {
	// Superior conjunction: the chord passes through the Sun.
	posA := Vec3{X: 1, Y: 0, Z: 0}
	posB := Vec3{X: -1.5, Y: 0, Z: 0}

	if hasLineOfSight(posA, posB, SunRadiusAU) {
		t.Errorf("expected line of sight to be blocked by the Sun")
	}
}

func TestElongationDegrees(t *testing.T) {
	earth := Vec3{X: 1}
	tests := []struct {
		name   string
		target Vec3
		want   float64
	}{
		{"opposition", Vec3{X: 1.5}, 180},
		{"conjunction", Vec3{X: -1.5}, 0},
		{"quadrature", Vec3{X: 1, Y: 1}, 90},
		{"same point", earth, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElongationDegrees(earth, tt.target); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ElongationDegrees = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeliocentricPositionRadius(t *testing.T) {
	mars, err := NewPlanet("Mars", 355.2, 686.98)
	if err != nil {
		t.Fatalf("NewPlanet: %v", err)
	}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pos := HeliocentricPosition(mars, date)

	if math.Abs(pos.Norm()-mars.DistanceAU()) > 1e-12 {
		t.Fatalf("|pos| = %v, want %v", pos.Norm(), mars.DistanceAU())
	}
	lon := math.Atan2(pos.Y, pos.X) * 180 / math.Pi
	if math.Abs(NormalizeDegrees(lon)-mars.PositionAtDate(date)) > 1e-9 {
		t.Fatalf("longitude of vector = %v, want %v", NormalizeDegrees(lon), mars.PositionAtDate(date))
	}
	if pos.Z != 0 {
		t.Fatalf("Z = %v, want 0", pos.Z)
	}
}

func TestLightTime(t *testing.T) {
	if got := LightTime(SpeedOfLightKmPerSec); got != time.Second {
		t.Fatalf("LightTime(c) = %v, want 1s", got)
	}
	// One AU is roughly 499 light seconds.
	if got := LightTime(KilometresPerAU); got < 498*time.Second || got > 500*time.Second {
		t.Fatalf("LightTime(1 AU) = %v", got)
	}
}

func TestSeparateEarthAtEpoch(t *testing.T) {
	// At the epoch the additive formula puts both planets at their mean
	// longitude, so the geometry is fixed by the catalog values.
	earth, _ := NewPlanet("Earth", 100, 365.256)
	venus, _ := NewPlanet("Venus", 181.2, 224.701)
	epoch := ReferenceEpoch()

	sep := Separate(earth, venus, epoch)
	a := HeliocentricPosition(earth, epoch)
	b := HeliocentricPosition(venus, epoch)
	if math.Abs(sep.DistanceAU-a.DistanceTo(b)) > 1e-12 {
		t.Fatalf("DistanceAU = %v, want %v", sep.DistanceAU, a.DistanceTo(b))
	}
	if math.Abs(sep.DistanceKm-sep.DistanceAU*KilometresPerAU) > 1e-3 {
		t.Fatalf("DistanceKm = %v inconsistent with DistanceAU %v", sep.DistanceKm, sep.DistanceAU)
	}
	if sep.From != "Earth" || sep.To != "Venus" || !sep.Date.Equal(epoch) {
		t.Fatalf("unexpected labels: %+v", sep)
	}
	if sep.SunBlocked {
		t.Fatalf("Venus 81° from Earth should not be behind the Sun")
	}
}

func TestEphemerisSeparation(t *testing.T) {
	eph := NewEphemeris(kb.NewReferenceKnowledgeBase())
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	sep, err := eph.Separation(context.Background(), "Earth", "Mars", date)
	if err != nil {
		t.Fatalf("Separation: %v", err)
	}
	if sep.DistanceAU <= 0 || sep.LightTime <= 0 {
		t.Fatalf("Separation = %+v, want positive distance and light time", sep)
	}

	if _, err := eph.Separation(context.Background(), "Earth", kb.SelectAll, date); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Separation(all) err = %v, want ErrInvalidParameter", err)
	}
	if _, err := eph.Separation(context.Background(), "Earth", "Pluto", date); !errors.Is(err, kb.ErrPlanetNotFound) {
		t.Fatalf("Separation(Pluto) err = %v, want ErrPlanetNotFound", err)
	}
}
