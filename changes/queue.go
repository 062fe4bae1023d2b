// Package changes queues tree mutations by node id so they can be sent to
// another replica.
package changes

import (
	"context"
	"slices"
	"sync"

	"github.com/signadot/paperplane/tree"
)

type Type string

const (
	Inserted        Type = "inserted"
	Removed         Type = "removed"
	Moved           Type = "moved"
	PropertyUpdated Type = "propertyUpdated"
)

// Change is one mutation. Nodes are named by their ID at the time of the
// change.
type Change struct {
	Type    Type  `json:"type"`
	Payload []any `json:"payload"`
}

// Queue is an observer recording every mutation it sees.
type Queue[T any] struct {
	tree.Nop[T]

	mu        sync.Mutex
	changes   []Change
	listeners []func(*Queue[T])
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Listen registers fn to be called after each recorded change.
func (q *Queue[T]) Listen(fn func(*Queue[T])) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

func (q *Queue[T]) Changes() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.changes)
}

// Drain returns the recorded changes and empties the queue.
func (q *Queue[T]) Drain() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	res := q.changes
	q.changes = nil
	return res
}

func (q *Queue[T]) push(t Type, payload ...any) {
	q.mu.Lock()
	q.changes = append(q.changes, Change{Type: t, Payload: payload})
	fns := slices.Clone(q.listeners)
	q.mu.Unlock()
	for _, fn := range fns {
		fn(q)
	}
}

func (q *Queue[T]) Inserted(ctx context.Context, n *tree.Node[T]) error {
	q.push(Inserted, n.ID())
	return nil
}

func (q *Queue[T]) Removed(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	q.push(Removed, append(oldParent.ID(), oldIndex), oldParent.ID(), oldIndex)
	return nil
}

func (q *Queue[T]) Moved(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	q.push(Moved, n.ID(), oldParent.ID(), oldIndex)
	return nil
}

func (q *Queue[T]) PropertyUpdated(ctx context.Context, n *tree.Node[T], key string, value, old any) error {
	q.push(PropertyUpdated, n.ID(), key, value, old)
	return nil
}
