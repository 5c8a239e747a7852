package kb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

var (
	// ErrScenarioExists indicates a scenario name is already taken.
	ErrScenarioExists = errors.New("scenario already exists")
	// ErrScenarioNotFound indicates a requested scenario was not found.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrInvalidName indicates an empty or malformed scenario name.
	ErrInvalidName = errors.New("invalid scenario name")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventScenarioAdded EventType = iota
	EventScenarioRemoved
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type     EventType
	Scenario Scenario
}

// Scenario is a named graph held by the catalog. Graph is shared; callers
// MUST treat it as read-only.
type Scenario struct {
	Name   string
	Source string // file the graph was loaded from, if any
	Graph  *model.ScenarioGraph
}

// KnowledgeBase is an in-memory, thread-safe catalog of named scenarios.
type KnowledgeBase struct {
	mu sync.RWMutex

	scenarios map[string]*Scenario

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		scenarios: make(map[string]*Scenario),
	}
}

// AddScenario stores g under name. It returns an error if the name is
// already taken.
func (kb *KnowledgeBase) AddScenario(name, source string, g *model.ScenarioGraph) error {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if g == nil {
		return fmt.Errorf("scenario %q: %w", name, core.ErrNilGraph)
	}

	kb.mu.Lock()
	if _, exists := kb.scenarios[name]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioExists, name)
	}
	s := &Scenario{Name: name, Source: source, Graph: g}
	kb.scenarios[name] = s
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	kb.notify(subs, Event{Type: EventScenarioAdded, Scenario: *s})
	return nil
}

// RemoveScenario deletes the named scenario.
func (kb *KnowledgeBase) RemoveScenario(name string) error {
	kb.mu.Lock()
	s, ok := kb.scenarios[name]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	delete(kb.scenarios, name)
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	kb.notify(subs, Event{Type: EventScenarioRemoved, Scenario: *s})
	return nil
}

// GetScenario returns the named scenario, or false if not found.
func (kb *KnowledgeBase) GetScenario(name string) (Scenario, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	s, ok := kb.scenarios[name]
	if !ok {
		return Scenario{}, false
	}
	return *s, true
}

// ListScenarios returns a snapshot of all scenarios sorted by name.
func (kb *KnowledgeBase) ListScenarios() []Scenario {
	kb.mu.RLock()
	res := make([]Scenario, 0, len(kb.scenarios))
	for _, s := range kb.scenarios {
		res = append(res, *s)
	}
	kb.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Len returns the number of scenarios held.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.scenarios)
}

// LoadDir adds every .json and .hcl scenario found directly in dir, named
// after the file without its extension. Files are loaded in name order;
// the first failure stops the load and is returned.
func (kb *KnowledgeBase) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read scenario dir: %w", err)
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !core.IsScenarioFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g, err := core.LoadScenarioFile(path)
		if err != nil {
			return loaded, err
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := kb.AddScenario(name, path, g); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs = append(kb.subs, subscriber{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		for i, s := range kb.subs {
			if s.id == id {
				kb.subs = append(kb.subs[:i], kb.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshotSubs copies the subscriber list. Callers hold kb.mu.
func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	out := make([]func(Event), len(kb.subs))
	for i, s := range kb.subs {
		out[i] = s.fn
	}
	return out
}

// notify runs subscribers outside the lock to avoid deadlocks.
func (kb *KnowledgeBase) notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
