package rpc

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/planet-positions/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on the wire are google.protobuf.Struct values with these keys.
const (
	fieldPlanet       = "planet"
	fieldDate         = "date"
	fieldStart        = "start"
	fieldStepDays     = "step_days"
	fieldCount        = "count"
	fieldFormula      = "formula"
	fieldObservations = "observations"
	fieldPlanets      = "planets"
	fieldFrom         = "from"
	fieldTo           = "to"
)

func observationToValue(o model.Observation) map[string]any {
	return map[string]any{
		"name":                      o.Name,
		"date":                      o.Date.UTC().Format(time.RFC3339Nano),
		"days_since_epoch":          float64(o.DaysSinceEpoch),
		"julian_day":                o.JulianDay,
		"angular_speed_deg_per_day": o.AngularSpeed,
		"orbital_period_years":      o.OrbitalPeriodYears,
		"distance_au":               o.DistanceAU,
		"distance_km":               o.DistanceKm,
		"longitude_deg":             o.Longitude,
	}
}

func observationsToStruct(formula string, obs []model.Observation) (*structpb.Struct, error) {
	list := make([]any, 0, len(obs))
	for _, o := range obs {
		list = append(list, observationToValue(o))
	}
	return structpb.NewStruct(map[string]any{
		fieldFormula:      formula,
		fieldObservations: list,
	})
}

// ObservationsFromStruct decodes a positions response.
func ObservationsFromStruct(s *structpb.Struct) ([]model.Observation, error) {
	values := s.GetFields()[fieldObservations].GetListValue().GetValues()
	out := make([]model.Observation, 0, len(values))
	for i, v := range values {
		f := v.GetStructValue().GetFields()
		if f == nil {
			return nil, fmt.Errorf("%w: observation %d is not an object", ErrInvalidRequest, i)
		}
		date, err := time.Parse(time.RFC3339Nano, f["date"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: observation %d date: %v", ErrInvalidRequest, i, err)
		}
		out = append(out, model.Observation{
			Name:               f["name"].GetStringValue(),
			Date:               date.UTC(),
			DaysSinceEpoch:     int64(f["days_since_epoch"].GetNumberValue()),
			JulianDay:          f["julian_day"].GetNumberValue(),
			AngularSpeed:       f["angular_speed_deg_per_day"].GetNumberValue(),
			OrbitalPeriodYears: f["orbital_period_years"].GetNumberValue(),
			DistanceAU:         f["distance_au"].GetNumberValue(),
			DistanceKm:         f["distance_km"].GetNumberValue(),
			Longitude:          f["longitude_deg"].GetNumberValue(),
		})
	}
	return out, nil
}

func catalogToStruct(defs []model.PlanetDefinition) (*structpb.Struct, error) {
	list := make([]any, 0, len(defs))
	for _, d := range defs {
		list = append(list, map[string]any{
			"name":           d.Name,
			"mean_longitude": d.MeanLongitude,
			"period":         d.Period,
		})
	}
	return structpb.NewStruct(map[string]any{fieldPlanets: list})
}

// CatalogFromStruct decodes a ListPlanets response.
func CatalogFromStruct(s *structpb.Struct) []model.PlanetDefinition {
	values := s.GetFields()[fieldPlanets].GetListValue().GetValues()
	out := make([]model.PlanetDefinition, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		out = append(out, model.PlanetDefinition{
			Name:          f["name"].GetStringValue(),
			MeanLongitude: f["mean_longitude"].GetNumberValue(),
			Period:        f["period"].GetNumberValue(),
		})
	}
	return out
}

// stringField returns the string at key, def when absent, and an error when
// present with another kind.
func stringField(s *structpb.Struct, key, def string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return def, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	if sv.StringValue == "" {
		return def, nil
	}
	return sv.StringValue, nil
}

func numberField(s *structpb.Struct, key string, def float64) (float64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return def, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	return nv.NumberValue, nil
}

func separationToStruct(sep model.Separation) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"from":           sep.From,
		"to":             sep.To,
		"date":           sep.Date.UTC().Format(time.RFC3339Nano),
		"distance_au":    sep.DistanceAU,
		"distance_km":    sep.DistanceKm,
		"light_time_sec": sep.LightTime.Seconds(),
		"elongation_deg": sep.Elongation,
		"sun_blocked":    sep.SunBlocked,
	})
}

// SeparationFromStruct decodes a GetSeparation response.
func SeparationFromStruct(s *structpb.Struct) (model.Separation, error) {
	f := s.GetFields()
	date, err := time.Parse(time.RFC3339Nano, f["date"].GetStringValue())
	if err != nil {
		return model.Separation{}, fmt.Errorf("%w: separation date: %v", ErrInvalidRequest, err)
	}
	return model.Separation{
		From:       f["from"].GetStringValue(),
		To:         f["to"].GetStringValue(),
		Date:       date.UTC(),
		DistanceAU: f["distance_au"].GetNumberValue(),
		DistanceKm: f["distance_km"].GetNumberValue(),
		LightTime:  time.Duration(f["light_time_sec"].GetNumberValue() * float64(time.Second)),
		Elongation: f["elongation_deg"].GetNumberValue(),
		SunBlocked: f["sun_blocked"].GetBoolValue(),
	}, nil
}
