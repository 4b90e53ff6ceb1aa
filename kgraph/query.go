package kgraph

import "time"

// EntityFilter narrows GetEntities/QueryEntities results. A zero value
// matches everything.
type EntityFilter struct {
	Type             string
	ValidFromAfter   *time.Time
	ValidToBefore    *time.Time
	PropertyFilters  map[string]interface{}
	TimestampValidAt *time.Time
}

// GetEntities returns every entity matching filter. Temporal filters only
// apply to time-aware entities; a plain entity passes them vacuously.
func (g *Graph) GetEntities(filter EntityFilter) []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var candidates map[string]struct{}
	if filter.Type != "" {
		candidates = g.entityTypeIndex[filter.Type]
	}

	out := make([]*Entity, 0)
	match := func(e *Entity) bool {
		if filter.ValidFromAfter != nil {
			if e.Temporal == nil || e.Temporal.ValidFrom.Before(*filter.ValidFromAfter) {
				return false
			}
		}
		if filter.ValidToBefore != nil {
			if e.Temporal == nil || e.Temporal.ValidTo == nil || !e.Temporal.ValidTo.Before(*filter.ValidToBefore) {
				return false
			}
		}
		for k, v := range filter.PropertyFilters {
			p, ok := e.Properties[k]
			if !ok || p.Value != v {
				return false
			}
		}
		return true
	}

	if candidates != nil {
		for id := range candidates {
			if e := g.entities[id]; match(e) {
				out = append(out, e)
			}
		}
		return out
	}
	for _, e := range g.entities {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

// QueryEntities applies an additional as-of-time filter on top of
// GetEntities: an entity matches only if it was valid at timestampValidAt
// (or is not temporal at all).
func (g *Graph) QueryEntities(filter EntityFilter) []*Entity {
	base := g.GetEntities(filter)
	if filter.TimestampValidAt == nil {
		return base
	}
	ts := *filter.TimestampValidAt
	out := make([]*Entity, 0, len(base))
	for _, e := range base {
		if e.Temporal == nil {
			out = append(out, e)
			continue
		}
		if e.Temporal.ValidFrom.After(ts) {
			continue
		}
		if e.Temporal.ValidTo != nil && e.Temporal.ValidTo.Before(ts) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FindPaths returns every simple path from start to end up to maxDepth
// edges, via depth-first search with backtracking.
func (g *Graph) FindPaths(start, end string, maxDepth int) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]string
	visited := map[string]bool{start: true}
	path := []string{start}

	var dfs func(current string, depth int)
	dfs = func(current string, depth int) {
		if current == end && len(path) > 1 {
			cp := make([]string, len(path))
			copy(cp, path)
			paths = append(paths, cp)
			return
		}
		if depth >= maxDepth {
			return
		}
		for _, relID := range g.outgoing[current] {
			r := g.relationships[relID]
			if visited[r.TargetID] {
				continue
			}
			visited[r.TargetID] = true
			path = append(path, r.TargetID)

			dfs(r.TargetID, depth+1)

			path = path[:len(path)-1]
			visited[r.TargetID] = false
		}
	}

	dfs(start, 0)
	return paths
}

// CausalChain is one DFS trace through relationships whose CausalStrength
// meets minConfidence.
type CausalChain struct {
	EntityIDs       []string
	RelationshipIDs []string
}

// GetCausalChain traces every chain of causal relationships reachable from
// entityID, up to maxDepth hops, following only edges whose CausalStrength
// is present and >= minConfidence.
func (g *Graph) GetCausalChain(entityID string, maxDepth int, minConfidence float64) []CausalChain {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var chains []CausalChain
	visited := map[string]bool{entityID: true}
	entityPath := []string{entityID}
	var relPath []string

	var dfs func(current string, depth int)
	dfs = func(current string, depth int) {
		if len(entityPath) > 1 {
			ep := make([]string, len(entityPath))
			copy(ep, entityPath)
			rp := make([]string, len(relPath))
			copy(rp, relPath)
			chains = append(chains, CausalChain{EntityIDs: ep, RelationshipIDs: rp})
		}
		if depth >= maxDepth {
			return
		}
		for _, relID := range g.outgoing[current] {
			r := g.relationships[relID]
			if r.CausalStrength == nil || *r.CausalStrength < minConfidence {
				continue
			}
			if visited[r.TargetID] {
				continue
			}
			visited[r.TargetID] = true
			entityPath = append(entityPath, r.TargetID)
			relPath = append(relPath, r.ID)

			dfs(r.TargetID, depth+1)

			entityPath = entityPath[:len(entityPath)-1]
			relPath = relPath[:len(relPath)-1]
			visited[r.TargetID] = false
		}
	}

	dfs(entityID, 0)
	return chains
}
