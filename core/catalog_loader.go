package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/signalsfoundry/planet-positions/model"
)

// PlanetStore receives validated catalog records.
type PlanetStore interface {
	AddPlanet(def model.PlanetDefinition) error
}

// internal JSON shapes, unexported so the file format can evolve.
type catalogJSON struct {
	Planets []planetJSON `json:"planets"`
}

type planetJSON struct {
	Name          string   `json:"name"`
	MeanLongitude *float64 `json:"mean_longitude"`
	Period        *float64 `json:"period"`
}

// ErrDuplicatePlanet is returned when a catalog file names a planet twice.
var ErrDuplicatePlanet = errors.New("duplicate planet in catalog")

// LoadCatalog decodes a JSON catalog from r, validates every record as a
// Planet would, and only then adds the records to store in file order. An
// invalid or repeated record leaves store untouched. A name already present
// in store still fails at insertion, after the records before it were added.
func LoadCatalog(store PlanetStore, r io.Reader) ([]model.PlanetDefinition, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadCatalog: store is nil")
	}

	var payload catalogJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadCatalog: decode failed: %w", err)
	}

	defs := make([]model.PlanetDefinition, 0, len(payload.Planets))
	seen := make(map[string]int, len(payload.Planets))
	for i, pj := range payload.Planets {
		if pj.MeanLongitude == nil || pj.Period == nil {
			return nil, fmt.Errorf("LoadCatalog: planet %d (%q): %w: mean_longitude and period are required", i, pj.Name, ErrInvalidParameter)
		}
		def := model.PlanetDefinition{
			Name:          pj.Name,
			MeanLongitude: *pj.MeanLongitude,
			Period:        *pj.Period,
		}
		if _, err := PlanetFromDefinition(def); err != nil {
			return nil, fmt.Errorf("LoadCatalog: planet %d: %w", i, err)
		}
		if first, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("LoadCatalog: planet %d: %w: %q already defined by planet %d", i, ErrDuplicatePlanet, def.Name, first)
		}
		seen[def.Name] = i
		defs = append(defs, def)
	}

	for i, def := range defs {
		if err := store.AddPlanet(def); err != nil {
			return nil, fmt.Errorf("LoadCatalog: planet %d: %w", i, err)
		}
	}
	return defs, nil
}
