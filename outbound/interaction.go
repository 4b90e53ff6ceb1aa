package outbound

import (
	"sort"
	"sync"
	"time"
)

// Interaction is one pending or in-flight interaction (reply, like, quote).
type Interaction struct {
	ID         string
	Priority   int
	Content    string
	Context    map[string]interface{}
	CreatedAt  time.Time
	StartedAt  time.Time
}

// InteractionQueue splits work into a pending ordered list and a
// processing set, with a recovery path that reclaims items stuck in
// processing longer than the retry-delay window.
type InteractionQueue struct {
	mu         sync.Mutex
	pending    []Interaction
	processing map[string]Interaction
}

// NewInteractionQueue returns an empty InteractionQueue.
func NewInteractionQueue() *InteractionQueue {
	return &InteractionQueue{processing: make(map[string]Interaction)}
}

// Add inserts interaction into pending, sorted by descending priority.
func (q *InteractionQueue) Add(it Interaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := sort.Search(len(q.pending), func(i int) bool { return q.pending[i].Priority < it.Priority })
	q.pending = append(q.pending, Interaction{})
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = it
}

// GetNext removes the highest-priority pending interaction and marks it
// processing, or returns false if pending is empty.
func (q *InteractionQueue) GetNext(now time.Time) (Interaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Interaction{}, false
	}
	it := q.pending[0]
	q.pending = q.pending[1:]
	it.StartedAt = now
	q.processing[it.ID] = it
	return it, true
}

// Complete removes id from processing once it finishes, successfully or not.
func (q *InteractionQueue) Complete(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, id)
}

// RecoverStuck moves every processing item whose StartedAt is older than
// staleAfter back to pending, bumping its priority by 1. Returns the ids
// recovered.
func (q *InteractionQueue) RecoverStuck(now time.Time, staleAfter time.Duration) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var recovered []string
	for id, it := range q.processing {
		if now.Sub(it.StartedAt) <= staleAfter {
			continue
		}
		delete(q.processing, id)
		it.Priority++
		idx := sort.Search(len(q.pending), func(i int) bool { return q.pending[i].Priority < it.Priority })
		q.pending = append(q.pending, Interaction{})
		copy(q.pending[idx+1:], q.pending[idx:])
		q.pending[idx] = it
		recovered = append(recovered, id)
	}
	return recovered
}

// PendingLen reports the number of interactions awaiting processing.
func (q *InteractionQueue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ProcessingLen reports the number of interactions currently in flight.
func (q *InteractionQueue) ProcessingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.processing)
}
