// Package outbound implements the PriorityQueue (C9): a sorted post queue
// and an interaction queue with a pending/processing split and a recovery
// path for items stuck in flight.
package outbound

import (
	"sort"
	"sync"
	"time"
)

// QueuedPost is one pending outbound post.
type QueuedPost struct {
	ID         string
	Content    string
	Priority   int
	ReplyToID  string
	Context    map[string]interface{}
	CreatedAt  time.Time
}

// DefaultMaxQueueSize is the cap applied by NewPostQueue. Beyond this, Add
// refuses further inserts so NARRATE's overflow routes to the error log as
// backpressure rather than blocking.
const DefaultMaxQueueSize = 500

// PostQueue holds outbound posts sorted by descending priority.
type PostQueue struct {
	mu      sync.Mutex
	posts   []QueuedPost
	maxSize int
}

// NewPostQueue returns an empty PostQueue capped at DefaultMaxQueueSize.
func NewPostQueue() *PostQueue { return &PostQueue{maxSize: DefaultMaxQueueSize} }

// NewPostQueueWithCap returns an empty PostQueue capped at maxSize. A
// maxSize of 0 or less means unbounded.
func NewPostQueueWithCap(maxSize int) *PostQueue { return &PostQueue{maxSize: maxSize} }

// SetMaxSize reconfigures the queue's cap, e.g. from a runtime config value
// loaded after the queue was constructed.
func (q *PostQueue) SetMaxSize(maxSize int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maxSize = maxSize
}

// Add inserts post into the queue, keeping it sorted by descending
// priority (ties broken by insertion order). It reports false without
// inserting when the queue is already at its configured cap.
func (q *PostQueue) Add(post QueuedPost) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && len(q.posts) >= q.maxSize {
		return false
	}

	idx := sort.Search(len(q.posts), func(i int) bool { return q.posts[i].Priority < post.Priority })
	q.posts = append(q.posts, QueuedPost{})
	copy(q.posts[idx+1:], q.posts[idx:])
	q.posts[idx] = post
	return true
}

// Pop removes and returns the highest-priority post, or false if empty.
func (q *PostQueue) Pop() (QueuedPost, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.posts) == 0 {
		return QueuedPost{}, false
	}
	p := q.posts[0]
	q.posts = q.posts[1:]
	return p, true
}

// Len returns the number of posts currently queued.
func (q *PostQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.posts)
}

// Peek returns a snapshot of the queue's contents without removing them.
func (q *PostQueue) Peek() []QueuedPost {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedPost, len(q.posts))
	copy(out, q.posts)
	return out
}
