// Package tree provides an observable, ordered N-ary tree of outline nodes.
//
// Every mutation is applied to the tree first and then announced to the
// Observers shared by all nodes of the tree.
package tree

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/signadot/paperplane/debug"
)

// DefaultTextKey is the data key text is projected from unless a node says
// otherwise.
const DefaultTextKey = "text"

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent stands for a missing property: passed to UpdateProperty it deletes
// the key, and it is reported as the old or new value of a property that
// did not exist.
var Absent any = absent{}

func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

type Node[T any] struct {
	// Ext carries application state alongside the node. The tree never
	// looks at it.
	Ext T

	text      string
	textKey   string
	data      map[string]any
	parent    *Node[T]
	children  []*Node[T]
	observers *Observers[T]
}

// NewRoot creates a detached root. Call Insert(ctx, nil, 0) to announce it.
func NewRoot[T any](obs *Observers[T]) *Node[T] {
	if obs == nil {
		obs = NewObservers[T]()
	}
	return &Node[T]{
		textKey:   DefaultTextKey,
		data:      map[string]any{},
		observers: obs,
	}
}

func (n *Node[T]) Observers() *Observers[T] {
	return n.observers
}

func (n *Node[T]) Text() string {
	return n.text
}

func (n *Node[T]) TextKey() string {
	return n.textKey
}

func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

func (n *Node[T]) IsRoot() bool {
	return n.parent == nil
}

// SetTextKey changes the key text is projected from. It is meant for init
// functions passed to CreateChild.
func (n *Node[T]) SetTextKey(k string) {
	n.textKey = k
}

func (n *Node[T]) Children() []*Node[T] {
	return slices.Clone(n.children)
}

func (n *Node[T]) Len() int {
	return len(n.children)
}

func (n *Node[T]) Child(i int) *Node[T] {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Siblings returns the children of the parent, or the root alone.
func (n *Node[T]) Siblings() []*Node[T] {
	if n.parent == nil {
		return []*Node[T]{n}
	}
	return n.parent.Children()
}

func (n *Node[T]) Get(key string) (any, bool) {
	v, ok := n.data[key]
	return v, ok
}

// Data returns a copy of the property bag.
func (n *Node[T]) Data() map[string]any {
	return maps.Clone(n.data)
}

func (n *Node[T]) Keys() []string {
	return slices.Sorted(maps.Keys(n.data))
}

func (n *Node[T]) Index() int {
	if n.parent == nil {
		return 0
	}
	return slices.Index(n.parent.children, n)
}

func (n *Node[T]) Depth() int {
	d := -1
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// ID returns the indices leading from the root to n, starting with the
// root's own index.
func (n *Node[T]) ID() []int {
	var id []int
	for x := n; x != nil; x = x.parent {
		id = append(id, x.Index())
	}
	slices.Reverse(id)
	return id
}

func (n *Node[T]) Root() *Node[T] {
	x := n
	for x.parent != nil {
		x = x.parent
	}
	return x
}

// IsAncestorOf reports whether n is m or one of its ancestors.
func (n *Node[T]) IsAncestorOf(m *Node[T]) bool {
	for x := m; x != nil; x = x.parent {
		if x == n {
			return true
		}
	}
	return false
}

// Visit walks the subtree rooted at n depth first. f is called before
// (isPost false) and after (isPost true) the children; returning false
// before skips the children.
func (n *Node[T]) Visit(f func(n *Node[T], isPost bool) (bool, error)) error {
	dive, err := f(n, false)
	if err != nil {
		return err
	}
	if dive {
		for _, c := range slices.Clone(n.children) {
			if err := c.Visit(f); err != nil {
				return err
			}
		}
	}
	if _, err := f(n, true); err != nil {
		return err
	}
	return nil
}

// Walk calls fn on every node of the subtree in pre-order until fn returns
// false.
func (n *Node[T]) Walk(fn func(*Node[T]) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// CreateChild creates a node at index among n's children. data is copied
// and its text key is set to text. init, when not nil, runs before the
// node is inserted and announced.
func (n *Node[T]) CreateChild(ctx context.Context, index int, text string, data map[string]any, init func(*Node[T])) (*Node[T], error) {
	if index < 0 || index > len(n.children) {
		return nil, fmt.Errorf("%w: create at %d of %d", ErrIndexOutOfRange, index, len(n.children))
	}
	c := &Node[T]{
		textKey:   DefaultTextKey,
		data:      maps.Clone(data),
		observers: n.observers,
	}
	if c.data == nil {
		c.data = map[string]any{}
	}
	if init != nil {
		init(c)
	}
	c.text = text
	c.data[c.textKey] = text
	if err := c.Insert(ctx, n, index); err != nil {
		return c, err
	}
	return c, nil
}

// Insert attaches a detached node. A nil parent announces a root.
func (n *Node[T]) Insert(ctx context.Context, parent *Node[T], index int) error {
	if n.parent != nil {
		return ErrAttached
	}
	if parent != nil {
		if index < 0 || index > len(parent.children) {
			return fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, index, len(parent.children))
		}
		if n.IsAncestorOf(parent) {
			return ErrCycle
		}
		parent.children = slices.Insert(parent.children, index, n)
		n.parent = parent
		n.observers = parent.observers
	}
	if debug.Tree() {
		debug.Logf("tree: inserted %v %q\n", n.ID(), n.text)
	}
	return n.observers.Notify(func(o Observer[T]) error {
		return o.Inserted(ctx, n)
	})
}

func (n *Node[T]) Remove(ctx context.Context) error {
	parent := n.parent
	if parent == nil {
		return ErrRoot
	}
	index := n.Index()
	parent.children = slices.Delete(parent.children, index, index+1)
	n.parent = nil
	if debug.Tree() {
		debug.Logf("tree: removed %q from %v[%d]\n", n.text, parent.ID(), index)
	}
	return n.observers.Notify(func(o Observer[T]) error {
		return o.Removed(ctx, n, parent, index)
	})
}

// Move re-parents n, keeping its identity. index is interpreted after n is
// detached from its current parent.
func (n *Node[T]) Move(ctx context.Context, newParent *Node[T], index int) error {
	oldParent := n.parent
	if oldParent == nil {
		return ErrRoot
	}
	if newParent == nil {
		return fmt.Errorf("%w: nil parent", ErrRoot)
	}
	if n.IsAncestorOf(newParent) {
		return ErrCycle
	}
	limit := len(newParent.children)
	if newParent == oldParent {
		limit--
	}
	if index < 0 || index > limit {
		return fmt.Errorf("%w: move to %d of %d", ErrIndexOutOfRange, index, limit)
	}
	oldIndex := n.Index()
	oldParent.children = slices.Delete(oldParent.children, oldIndex, oldIndex+1)
	newParent.children = slices.Insert(newParent.children, index, n)
	n.parent = newParent
	if debug.Tree() {
		debug.Logf("tree: moved %q from %v[%d] to %v\n", n.text, oldParent.ID(), oldIndex, n.ID())
	}
	return n.observers.Notify(func(o Observer[T]) error {
		return o.Moved(ctx, n, oldParent, oldIndex)
	})
}

// UpdateProperty sets key to value, or deletes it when value is Absent.
// Nothing happens when the value does not change.
func (n *Node[T]) UpdateProperty(ctx context.Context, key string, value any) error {
	old, ok := n.data[key]
	if !ok {
		old = Absent
	}
	if Equal(old, value) {
		return nil
	}
	if IsAbsent(value) {
		delete(n.data, key)
	} else {
		n.data[key] = value
	}
	if key == n.textKey {
		n.text = textOf(value)
	}
	if debug.Tree() {
		debug.Logf("tree: %v %s: %v -> %v\n", n.ID(), key, old, value)
	}
	return n.observers.Notify(func(o Observer[T]) error {
		return o.PropertyUpdated(ctx, n, key, value, old)
	})
}

// SetText updates the property text is projected from.
func (n *Node[T]) SetText(ctx context.Context, text string) error {
	return n.UpdateProperty(ctx, n.textKey, text)
}

func (n *Node[T]) CanIncreaseDepth() bool {
	return n.parent != nil && n.Index() > 0
}

func (n *Node[T]) CanDecreaseDepth() bool {
	return n.parent != nil && n.parent.parent != nil
}

// IncreaseDepth makes n the last child of its preceding sibling. It does
// nothing for a first child.
func (n *Node[T]) IncreaseDepth(ctx context.Context) error {
	if !n.CanIncreaseDepth() {
		return nil
	}
	prev := n.parent.children[n.Index()-1]
	return n.Move(ctx, prev, len(prev.children))
}

// DecreaseDepth makes n the sibling following its parent; the siblings
// after n become its trailing children. It does nothing when the parent is
// the root. The moves share one change group.
func (n *Node[T]) DecreaseDepth(ctx context.Context) error {
	if !n.CanDecreaseDepth() {
		return nil
	}
	ctx = Batch(ctx)
	parent := n.parent
	index := n.Index()
	if err := n.Move(ctx, parent.parent, parent.Index()+1); err != nil {
		return err
	}
	for len(parent.children) > index {
		sib := parent.children[index]
		if err := sib.Move(ctx, n, len(n.children)); err != nil {
			return err
		}
	}
	return nil
}

// Equal is the equality UpdateProperty uses to detect no-op updates.
func Equal(a, b any) bool {
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}
	return reflect.DeepEqual(a, b)
}

func textOf(v any) string {
	switch x := v.(type) {
	case absent:
		return ""
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func (n *Node[T]) String() string {
	return fmt.Sprintf("%v %q", n.ID(), n.text)
}
