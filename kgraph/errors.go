package kgraph

import "errors"

// ErrDanglingEdge is returned by AddRelationship when either endpoint does
// not already exist in the graph.
var ErrDanglingEdge = errors.New("kgraph: relationship references a non-existent entity")

// ErrInvalidTemporalRange is returned when validFrom > validTo.
var ErrInvalidTemporalRange = errors.New("kgraph: validFrom must not be after validTo")

// ErrUnknownEntity is returned by lookups for an id that doesn't exist.
var ErrUnknownEntity = errors.New("kgraph: unknown entity")

// ErrUnknownRelationship is returned by lookups for an id that doesn't exist.
var ErrUnknownRelationship = errors.New("kgraph: unknown relationship")

// ErrNaiveTimestamp is returned at the graph's public boundary when a
// caller supplies a non-zero time.Time whose location is not UTC (Go has
// no naive times, so any other location is refused). Timezone discipline
// is enforced here, not inferred downstream.
var ErrNaiveTimestamp = errors.New("kgraph: timestamp must be UTC-aware, not naive")
