package httproute

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kilnhq/kiln/pathmatch"
)

// entry is a registered definition plus its parsed path and score.
type entry struct {
	def      *Definition
	segments []pathmatch.Segment
	score    int
}

// Matched is the result of a successful match: the resolved definition
// plus the path parameters extracted from the request path.
type Matched struct {
	Definition *Definition
	Params     map[string]string
}

// Registry stores HTTP route definitions and resolves (method, path) to
// a Matched route. Writable during startup registration; read-mostly
// afterward. The per-method sorted cache is rebuilt lazily and swapped
// atomically, so a concurrent match either sees the old cache or a fully
// rebuilt one, never a partial view.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	nextOrd int

	cache atomic.Pointer[map[Method][]*entry]
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Get starts building a GET route.
func (reg *Registry) Get(path string) *Route { return newRoute(reg, GET, path) }

// Post starts building a POST route.
func (reg *Registry) Post(path string) *Route { return newRoute(reg, POST, path) }

// Put starts building a PUT route.
func (reg *Registry) Put(path string) *Route { return newRoute(reg, PUT, path) }

// Patch starts building a PATCH route.
func (reg *Registry) Patch(path string) *Route { return newRoute(reg, PATCH, path) }

// Delete starts building a DELETE route.
func (reg *Registry) Delete(path string) *Route { return newRoute(reg, DELETE, path) }

// Head starts building a HEAD route.
func (reg *Registry) Head(path string) *Route { return newRoute(reg, HEAD, path) }

// Register validates and stores def, invalidating the match cache.
func (reg *Registry) Register(def *Definition) {
	segments, err := pathmatch.Parse(def.Path, true)
	if err != nil {
		panic(fmt.Sprintf("httproute: %v", err))
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	def.registrationOrder = reg.nextOrd
	reg.nextOrd++
	reg.entries = append(reg.entries, &entry{def: def, segments: segments, score: pathmatch.Score(segments)})
	reg.cache.Store(nil)
}

// Clear removes all registered definitions.
func (reg *Registry) Clear() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entries = nil
	reg.nextOrd = 0
	reg.cache.Store(nil)
}

// GetAll returns every registered definition, in registration order.
func (reg *Registry) GetAll() []*Definition {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*Definition, 0, len(reg.entries))
	for _, e := range reg.entries {
		out = append(out, e.def)
	}
	return out
}

// Match resolves method and path to a Matched route, scanning candidates
// in descending specificity order (ties broken by registration order).
// Returns nil, never an error, on a miss.
func (reg *Registry) Match(method Method, path string) *Matched {
	byMethod := reg.loadCache()
	candidates := byMethod[method]
	actual := pathmatch.Split(path)
	for _, e := range candidates {
		if params, ok := pathmatch.Match(e.segments, actual); ok {
			return &Matched{Definition: e.def, Params: params}
		}
	}
	return nil
}

func (reg *Registry) loadCache() map[Method][]*entry {
	if c := reg.cache.Load(); c != nil {
		return *c
	}
	reg.mu.Lock()
	entriesSnapshot := append([]*entry{}, reg.entries...)
	reg.mu.Unlock()

	byMethod := map[Method][]*entry{}
	for _, e := range entriesSnapshot {
		byMethod[e.def.Method] = append(byMethod[e.def.Method], e)
	}
	for m, list := range byMethod {
		sorted := append([]*entry{}, list...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].score != sorted[j].score {
				return sorted[i].score > sorted[j].score
			}
			return sorted[i].def.registrationOrder < sorted[j].def.registrationOrder
		})
		byMethod[m] = sorted
	}
	reg.cache.Store(&byMethod)
	return byMethod
}
