package model

import "time"

// PlanetDefinition is one record of the planet catalog: the fixed orbital
// parameters a caller supplies to build a core.Planet.
type PlanetDefinition struct {
	Name string `json:"name"`

	// MeanLongitude is the reference angle in degrees at the epoch.
	// It is not required to lie in [0, 360).
	MeanLongitude float64 `json:"mean_longitude"`

	// Period is the orbital period in mean solar days.
	Period float64 `json:"period"`
}

// Observation holds the values derived for one planet at one date.
type Observation struct {
	Name               string    `json:"name"`
	Date               time.Time `json:"date"`
	DaysSinceEpoch     int64     `json:"days_since_epoch"`
	JulianDay          float64   `json:"julian_day"`
	AngularSpeed       float64   `json:"angular_speed_deg_per_day"`
	OrbitalPeriodYears float64   `json:"orbital_period_years"`
	DistanceAU         float64   `json:"distance_au"`
	DistanceKm         float64   `json:"distance_km"`
	Longitude          float64   `json:"longitude_deg"`
}

// Separation describes the geometry between two planets at one date.
type Separation struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	Date       time.Time     `json:"date"`
	DistanceAU float64       `json:"distance_au"`
	DistanceKm float64       `json:"distance_km"`
	LightTime  time.Duration `json:"light_time_ns"`

	// Elongation is the Sun-From-To angle in degrees.
	Elongation float64 `json:"elongation_deg"`

	// SunBlocked is set when the straight path passes through the Sun.
	SunBlocked bool `json:"sun_blocked"`
}
