package kb

import "github.com/signalsfoundry/planet-positions/model"

// ReferenceCatalog returns the historical catalog: mean longitude at
// 2000-01-01 in degrees and orbital period in days, innermost planet first.
func ReferenceCatalog() []model.PlanetDefinition {
	return []model.PlanetDefinition{
		{Name: "Mercury", MeanLongitude: 250.2, Period: 87.969},
		{Name: "Venus", MeanLongitude: 181.2, Period: 224.701},
		{Name: "Earth", MeanLongitude: 100.0, Period: 365.256},
		{Name: "Mars", MeanLongitude: 355.2, Period: 686.98},
		{Name: "Jupiter", MeanLongitude: 34.3, Period: 4332.59},
		{Name: "Saturn", MeanLongitude: 50.1, Period: 10759.2},
		{Name: "Uranus", MeanLongitude: 313.23218, Period: 30687.15},
		{Name: "Neptune", MeanLongitude: 304.88003, Period: 60190.03},
	}
}

// NewReferenceKnowledgeBase returns a KB preloaded with ReferenceCatalog.
func NewReferenceKnowledgeBase() *KnowledgeBase {
	store := NewKnowledgeBase()
	for _, p := range ReferenceCatalog() {
		// Names in the reference catalog are unique.
		_ = store.AddPlanet(p)
	}
	return store
}
