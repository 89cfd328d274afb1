package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/planet-positions/model"
)

// SelectAll is the selector matching every cataloged planet.
const SelectAll = "all"

var (
	ErrPlanetNotFound = errors.New("planet not found")
	ErrPlanetExists   = errors.New("planet already exists")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventPlanetAdded EventType = iota
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type   EventType
	Planet model.PlanetDefinition
	Count  int
}

// KnowledgeBase is an in-memory, thread-safe planet catalog. It preserves
// insertion order, which is the order "all" selections are returned in.
type KnowledgeBase struct {
	mu sync.RWMutex

	order   []string
	planets map[string]model.PlanetDefinition

	subs map[int]func(Event)
	next int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		planets: make(map[string]model.PlanetDefinition),
		subs:    make(map[int]func(Event)),
	}
}

// AddPlanet adds a new planet. It returns ErrPlanetExists if the name is taken.
func (kb *KnowledgeBase) AddPlanet(p model.PlanetDefinition) error {
	if p.Name == "" {
		return fmt.Errorf("planet name must not be empty")
	}

	kb.mu.Lock()
	if _, exists := kb.planets[p.Name]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPlanetExists, p.Name)
	}
	kb.planets[p.Name] = p
	kb.order = append(kb.order, p.Name)
	event := Event{Type: EventPlanetAdded, Planet: p, Count: len(kb.order)}
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// GetPlanet returns the planet whose name matches exactly (case-sensitive).
func (kb *KnowledgeBase) GetPlanet(name string) (model.PlanetDefinition, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	p, ok := kb.planets[name]
	if !ok {
		return model.PlanetDefinition{}, fmt.Errorf("%w: %q", ErrPlanetNotFound, name)
	}
	return p, nil
}

// ListPlanets returns a snapshot of all planets in insertion order.
func (kb *KnowledgeBase) ListPlanets() []model.PlanetDefinition {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.PlanetDefinition, 0, len(kb.order))
	for _, name := range kb.order {
		res = append(res, kb.planets[name])
	}
	return res
}

// Select resolves a selector: SelectAll yields every planet, anything else is
// looked up by name.
func (kb *KnowledgeBase) Select(selector string) ([]model.PlanetDefinition, error) {
	if selector == SelectAll {
		return kb.ListPlanets(), nil
	}
	p, err := kb.GetPlanet(selector)
	if err != nil {
		return nil, err
	}
	return []model.PlanetDefinition{p}, nil
}

// Len returns the number of cataloged planets.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.order)
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.next
	kb.next++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}
