// Package render writes observations and catalogs for humans or machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/signalsfoundry/planet-positions/model"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" (or "") and "json".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// DMS formats a longitude in degrees as degrees, arc minutes and arc seconds
// with one decimal, e.g. "100°30′ 0.0″".
func DMS(deg float64) string {
	return fmt.Sprintf("%3.1s", sexa.FmtAngle(unit.AngleFromDeg(deg)))
}

// Observations writes obs in the chosen format.
func Observations(w io.Writer, format Format, obs []model.Observation) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			Observations []model.Observation `json:"observations"`
		}{Observations: nonNil(obs)})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLANET\tDATE\tDISTANCE (AU)\tPERIOD (YEARS)\tLONGITUDE (DEG)\tLONGITUDE")
	for _, o := range obs {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6f\t%.4f\t%s\n",
			o.Name,
			formatDate(o.Date),
			o.DistanceAU,
			o.OrbitalPeriodYears,
			o.Longitude,
			DMS(o.Longitude),
		)
	}
	return tw.Flush()
}

// Catalog writes the planet definitions in the chosen format.
func Catalog(w io.Writer, format Format, defs []model.PlanetDefinition) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			Planets []model.PlanetDefinition `json:"planets"`
		}{Planets: nonNil(defs)})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLANET\tMEAN LONGITUDE (DEG)\tPERIOD (DAYS)")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%g\t%g\n", d.Name, d.MeanLongitude, d.Period)
	}
	return tw.Flush()
}

// Separation writes the geometry between two planets in the chosen format.
func Separation(w io.Writer, format Format, sep model.Separation) error {
	if format == FormatJSON {
		return writeJSON(w, sep)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tDATE\tDISTANCE (AU)\tDISTANCE (KM)\tLIGHT TIME\tELONGATION\tSUN BLOCKED")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%.6f\t%.0f\t%s\t%s\t%t\n",
		sep.From,
		sep.To,
		formatDate(sep.Date),
		sep.DistanceAU,
		sep.DistanceKm,
		sep.LightTime.Round(time.Second),
		DMS(sep.Elongation),
		sep.SunBlocked,
	)
	return tw.Flush()
}

func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
