package kgraph

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Graph is the TimeAwareGraph (C3): a flat entity/relationship store with a
// type index per design note "Ownership of the graph" — a map from type to
// set of ids, no cyclic owning pointers, edges are id-to-id.
//
// The scheduler owns the graph exclusively; detectors take the reader side
// of the single writer/multi-reader lock, collectors take the writer side,
// per §5's shared-resource policy.
type Graph struct {
	mu sync.RWMutex

	entities      map[string]*Entity
	relationships map[string]*Relationship

	entityTypeIndex map[string]map[string]struct{} // type -> entity ids
	relTypeIndex    map[string]map[string]struct{} // type -> relationship ids
	outgoing        map[string][]string            // sourceID -> relationship ids
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		entities:        make(map[string]*Entity),
		relationships:   make(map[string]*Relationship),
		entityTypeIndex: make(map[string]map[string]struct{}),
		relTypeIndex:    make(map[string]map[string]struct{}),
		outgoing:        make(map[string][]string),
	}
}

func requireUTC(t time.Time) error {
	if t.IsZero() {
		return nil
	}
	if t.Location() != time.UTC {
		return ErrNaiveTimestamp
	}
	return nil
}

// AddEntityOptions configures AddEntity's optional temporal fields.
type AddEntityOptions struct {
	Temporal  bool
	ValidFrom time.Time
	ValidTo   *time.Time
}

// AddEntity creates and stores a new Entity. When opts.Temporal is set, the
// entity carries validFrom/validTo and begins with empty previousVersions.
func (g *Graph) AddEntity(entityType string, properties map[string]Property, opts AddEntityOptions) (*Entity, error) {
	if opts.Temporal {
		if err := requireUTC(opts.ValidFrom); err != nil {
			return nil, err
		}
		if opts.ValidTo != nil {
			if err := requireUTC(*opts.ValidTo); err != nil {
				return nil, err
			}
			if opts.ValidFrom.After(*opts.ValidTo) {
				return nil, ErrInvalidTemporalRange
			}
		}
	}

	now := time.Now().UTC()
	if properties == nil {
		properties = make(map[string]Property)
	}

	e := &Entity{
		ID:         uuid.NewString(),
		Type:       entityType,
		Properties: properties,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if opts.Temporal {
		e.Temporal = &Temporal{ValidFrom: opts.ValidFrom, ValidTo: opts.ValidTo}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities[e.ID] = e
	g.indexEntityType(entityType, e.ID)
	return e, nil
}

func (g *Graph) indexEntityType(entityType, id string) {
	if g.entityTypeIndex[entityType] == nil {
		g.entityTypeIndex[entityType] = make(map[string]struct{})
	}
	g.entityTypeIndex[entityType][id] = struct{}{}
}

// AddRelationship creates a directed edge. Both endpoints must already
// exist; otherwise ErrDanglingEdge is returned and the graph is unchanged.
func (g *Graph) AddRelationship(relType, sourceID, targetID string, properties map[string]Property, causalStrength *float64, ordering TemporalOrdering) (*Relationship, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entities[sourceID]; !ok {
		return nil, ErrDanglingEdge
	}
	if _, ok := g.entities[targetID]; !ok {
		return nil, ErrDanglingEdge
	}

	if causalStrength != nil {
		cs := clamp01(*causalStrength)
		causalStrength = &cs
	}

	r := &Relationship{
		ID:               uuid.NewString(),
		Type:             relType,
		SourceID:         sourceID,
		TargetID:         targetID,
		Properties:       properties,
		CreatedAt:        time.Now().UTC(),
		Confidence:       1.0,
		CausalStrength:   causalStrength,
		TemporalOrdering: ordering,
	}

	g.relationships[r.ID] = r
	if g.relTypeIndex[relType] == nil {
		g.relTypeIndex[relType] = make(map[string]struct{})
	}
	g.relTypeIndex[relType][r.ID] = struct{}{}
	g.outgoing[sourceID] = append(g.outgoing[sourceID], r.ID)
	return r, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GetEntity returns the entity with id, or ErrUnknownEntity.
func (g *Graph) GetEntity(id string) (*Entity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entities[id]
	if !ok {
		return nil, ErrUnknownEntity
	}
	return e, nil
}

// GetRelationship returns the relationship with id, or ErrUnknownRelationship.
func (g *Graph) GetRelationship(id string) (*Relationship, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.relationships[id]
	if !ok {
		return nil, ErrUnknownRelationship
	}
	return r, nil
}

// GetEntitiesByType returns every entity of the given type, via the type index.
func (g *Graph) GetEntitiesByType(entityType string) []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.entityTypeIndex[entityType]
	out := make([]*Entity, 0, len(ids))
	for id := range ids {
		out = append(out, g.entities[id])
	}
	return out
}

// GetRelationshipsByType returns relationships of the given type, optionally
// filtered to those originating at sourceID.
func (g *Graph) GetRelationshipsByType(relType string, sourceID string) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.relTypeIndex[relType]
	out := make([]*Relationship, 0, len(ids))
	for id := range ids {
		r := g.relationships[id]
		if sourceID != "" && r.SourceID != sourceID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetRelationshipsFrom returns every outgoing relationship of any type from sourceID.
func (g *Graph) GetRelationshipsFrom(sourceID string) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.outgoing[sourceID]
	out := make([]*Relationship, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.relationships[id])
	}
	return out
}

// UpdateProperty sets key on entity id to a new value, archiving the prior
// Property into PreviousVersions first (invariant 2). The entity must be
// time-aware.
func (g *Graph) UpdateProperty(id, key string, value interface{}, confidence float64, source string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entities[id]
	if !ok {
		return ErrUnknownEntity
	}
	if e.Temporal == nil {
		e.Temporal = &Temporal{ValidFrom: time.Now().UTC()}
	}
	if old, existed := e.Properties[key]; existed {
		e.Temporal.PreviousVersions = append(e.Temporal.PreviousVersions, old)
	}
	e.Properties[key] = Property{
		Key:        key,
		Value:      value,
		Timestamp:  time.Now().UTC(),
		Confidence: clamp01(confidence),
		Source:     source,
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}
