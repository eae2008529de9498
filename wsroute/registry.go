package wsroute

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kilnhq/kiln/pathmatch"
)

type entry struct {
	def      *Definition
	segments []pathmatch.Segment
	score    int
}

// Matched is a successful WebSocket route match.
type Matched struct {
	Definition *Definition
	Params     map[string]string
}

// Registry stores WebSocket route definitions and resolves a path to a
// Matched route. No method dimension and no wildcard segments, unlike
// httproute.Registry.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	nextOrd int

	cache atomic.Pointer[[]*entry]
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// WS starts building a WebSocket route.
func (reg *Registry) WS(path string) *Route { return newRoute(reg, path) }

// Register validates and stores def.
func (reg *Registry) Register(def *Definition) {
	segments, err := pathmatch.Parse(def.Path, false)
	if err != nil {
		panic(fmt.Sprintf("wsroute: %v", err))
	}
	seen := map[string]bool{}
	for _, h := range def.Handlers {
		if seen[h.Type] {
			panic(fmt.Sprintf("wsroute: duplicate message type %q on route %q", h.Type, def.Path))
		}
		seen[h.Type] = true
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

// Match resolves path to a Matched route, or nil on a miss. Matching
// requires exact segment-count equality; no wildcard ever matches here.
func (reg *Registry) Match(path string) *Matched {
	sorted := reg.loadCache()
	actual := pathmatch.Split(path)
	for _, e := range sorted {
		if len(e.segments) != len(actual) {
			continue
		}
		if params, ok := pathmatch.Match(e.segments, actual); ok {
			return &Matched{Definition: e.def, Params: params}
		}
	}
	return nil
}

func (reg *Registry) loadCache() []*entry {
	if c := reg.cache.Load(); c != nil {
		return *c
	}
	reg.mu.Lock()
	snapshot := append([]*entry{}, reg.entries...)
	reg.mu.Unlock()

	sorted := append([]*entry{}, snapshot...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].def.registrationOrder < sorted[j].def.registrationOrder
	})
	reg.cache.Store(&sorted)
	return sorted
}
