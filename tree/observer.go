package tree

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Observer receives every mutation of a tree after it is applied, and the
// load/save lifecycle of whatever persists the tree.
//
// Node callbacks are invoked synchronously by the mutating operation, in
// registration order. Lifecycle callbacks are broadcast by the persistence
// layer.
type Observer[T any] interface {
	Inserted(ctx context.Context, n *Node[T]) error
	Removed(ctx context.Context, n, oldParent *Node[T], oldIndex int) error
	Moved(ctx context.Context, n, oldParent *Node[T], oldIndex int) error
	PropertyUpdated(ctx context.Context, n *Node[T], key string, newValue, oldValue any) error

	Loading(ctx context.Context) error
	Loaded(ctx context.Context) error
	Saving(ctx context.Context) error
	Saved(ctx context.Context) error
}

// Nop implements Observer by ignoring everything. Embed it to implement
// only the callbacks of interest.
type Nop[T any] struct{}

func (Nop[T]) Inserted(context.Context, *Node[T]) error                          { return nil }
func (Nop[T]) Removed(context.Context, *Node[T], *Node[T], int) error            { return nil }
func (Nop[T]) Moved(context.Context, *Node[T], *Node[T], int) error              { return nil }
func (Nop[T]) PropertyUpdated(context.Context, *Node[T], string, any, any) error { return nil }
func (Nop[T]) Loading(context.Context) error                                     { return nil }
func (Nop[T]) Loaded(context.Context) error                                      { return nil }
func (Nop[T]) Saving(context.Context) error                                      { return nil }
func (Nop[T]) Saved(context.Context) error                                       { return nil }

// Funcs adapts optional callbacks to an Observer. Nil fields are skipped.
type Funcs[T any] struct {
	OnInserted        func(ctx context.Context, n *Node[T]) error
	OnRemoved         func(ctx context.Context, n, oldParent *Node[T], oldIndex int) error
	OnMoved           func(ctx context.Context, n, oldParent *Node[T], oldIndex int) error
	OnPropertyUpdated func(ctx context.Context, n *Node[T], key string, newValue, oldValue any) error
	OnLoading         func(ctx context.Context) error
	OnLoaded          func(ctx context.Context) error
	OnSaving          func(ctx context.Context) error
	OnSaved           func(ctx context.Context) error
}

func (f *Funcs[T]) Inserted(ctx context.Context, n *Node[T]) error {
	if f.OnInserted == nil {
		return nil
	}
	return f.OnInserted(ctx, n)
}

func (f *Funcs[T]) Removed(ctx context.Context, n, oldParent *Node[T], oldIndex int) error {
	if f.OnRemoved == nil {
		return nil
	}
	return f.OnRemoved(ctx, n, oldParent, oldIndex)
}

func (f *Funcs[T]) Moved(ctx context.Context, n, oldParent *Node[T], oldIndex int) error {
	if f.OnMoved == nil {
		return nil
	}
	return f.OnMoved(ctx, n, oldParent, oldIndex)
}

func (f *Funcs[T]) PropertyUpdated(ctx context.Context, n *Node[T], key string, newValue, oldValue any) error {
	if f.OnPropertyUpdated == nil {
		return nil
	}
	return f.OnPropertyUpdated(ctx, n, key, newValue, oldValue)
}

func (f *Funcs[T]) Loading(ctx context.Context) error {
	if f.OnLoading == nil {
		return nil
	}
	return f.OnLoading(ctx)
}

func (f *Funcs[T]) Loaded(ctx context.Context) error {
	if f.OnLoaded == nil {
		return nil
	}
	return f.OnLoaded(ctx)
}

func (f *Funcs[T]) Saving(ctx context.Context) error {
	if f.OnSaving == nil {
		return nil
	}
	return f.OnSaving(ctx)
}

func (f *Funcs[T]) Saved(ctx context.Context) error {
	if f.OnSaved == nil {
		return nil
	}
	return f.OnSaved(ctx)
}

// Observers is the registry shared by every node of a tree.
type Observers[T any] struct {
	mu   sync.Mutex
	list []Observer[T]
}

func NewObservers[T any](obs ...Observer[T]) *Observers[T] {
	return &Observers[T]{list: slices.Clone(obs)}
}

func (o *Observers[T]) Add(obs Observer[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

func (o *Observers[T]) All() []Observer[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.list)
}

func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}

// Notify calls f for every registered observer, in order. All observers
// run even when some fail; their errors are joined.
func (o *Observers[T]) Notify(f func(Observer[T]) error) error {
	if o == nil {
		return nil
	}
	var errs []error
	for _, obs := range o.All() {
		if err := f(obs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
