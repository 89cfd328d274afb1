package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/planet-positions/model"
)

const (
	// SunRadiusAU is the solar photospheric radius (696000 km) in AU.
	SunRadiusAU = 696000.0 / KilometresPerAU

	// SpeedOfLightKmPerSec is the speed of light in vacuum.
	SpeedOfLightKmPerSec = 299792.458
)

// Vec3 is a heliocentric ecliptic vector in AU. Circular orbits lie in the
// ecliptic, so Z is always zero for planet positions.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// HeliocentricPosition places p on its circular orbit at date.
func HeliocentricPosition(p Planet, date time.Time) Vec3 {
	r := p.DistanceAU()
	lon := p.PositionAtDate(date) * math.Pi / 180
	return Vec3{X: r * math.Cos(lon), Y: r * math.Sin(lon)}
}

// LightTime returns the one-way light travel time over distanceKm.
func LightTime(distanceKm float64) time.Duration {
	return time.Duration(distanceKm / SpeedOfLightKmPerSec * float64(time.Second))
}

// Separate measures the geometry between two planets at date.
func Separate(from, to Planet, date time.Time) model.Separation {
	a := HeliocentricPosition(from, date)
	b := HeliocentricPosition(to, date)
	au := a.DistanceTo(b)
	km := au * KilometresPerAU
	return model.Separation{
		From:       from.Name(),
		To:         to.Name(),
		Date:       date,
		DistanceAU: au,
		DistanceKm: km,
		LightTime:  LightTime(km),
		Elongation: ElongationDegrees(a, b),
		SunBlocked: !hasLineOfSight(a, b, SunRadiusAU),
	}
}

// hasLineOfSight reports whether the segment between p1 and p2 stays
// outside a sphere of the given radius centred on the origin.
func hasLineOfSight(p1, p2 Vec3, radius float64) bool {
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Same point: visible unless it is inside the sphere.
		return p1.Dot(p1) > radius*radius
	}

	// t* minimises |p1 + t v|^2 over t ∈ [0, 1].
	t := -p1.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := Vec3{
		X: p1.X + v.X*t,
		Y: p1.Y + v.Y*t,
		Z: p1.Z + v.Z*t,
	}
	return closest.Dot(closest) > radius*radius
}

// ElongationDegrees returns the Sun-observer-target angle in degrees as seen
// from observer. 0° means the target sits behind (or in front of) the Sun,
// 180° means opposition.
func ElongationDegrees(observer, target Vec3) float64 {
	toTarget := target.Sub(observer)
	toSun := Vec3{}.Sub(observer)
	nt, ns := toTarget.Norm(), toSun.Norm()
	if nt == 0 || ns == 0 {
		return 0
	}

	cosGamma := toTarget.Dot(toSun) / (nt * ns)
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	return math.Acos(cosGamma) * 180.0 / math.Pi
}
