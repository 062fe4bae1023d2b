// Package history records tree mutations and replays their inverses for
// undo and redo.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/signadot/paperplane/debug"
	"github.com/signadot/paperplane/tree"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultSize is the number of undo steps kept when none is given.
const DefaultSize = 100

type kind int

const (
	inserted kind = iota
	removed
	moved
	updated
)

func (k kind) String() string {
	switch k {
	case inserted:
		return "inserted"
	case removed:
		return "removed"
	case moved:
		return "moved"
	case updated:
		return "updated"
	}
	return "?"
}

// op is a recorded mutation with what is needed to revert it.
type op[T any] struct {
	kind   kind
	node   *tree.Node[T]
	parent *tree.Node[T]
	index  int
	key    string
	old    any
}

func (o op[T]) revert(ctx context.Context) error {
	switch o.kind {
	case inserted:
		return o.node.Remove(ctx)
	case removed:
		return o.node.Insert(ctx, o.parent, o.index)
	case moved:
		return o.node.Move(ctx, o.parent, o.index)
	case updated:
		return o.node.UpdateProperty(ctx, o.key, o.old)
	}
	return fmt.Errorf("unknown change %d", o.kind)
}

// step is one undo unit: the ops of one change group, in order.
type step[T any] struct {
	group uint64
	ops   []op[T]
}

type direction int

const (
	forward direction = iota
	undoing
	redoing
)

type options struct {
	size   int
	logger *slog.Logger
}

type Option func(*options)

// WithSize bounds the number of undo steps. Values below 1 select
// DefaultSize.
func WithSize(n int) Option {
	return func(o *options) { o.size = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// History is an observer keeping undo and redo stacks. Mutations sharing a
// change group (tree.GroupFrom) form one step. Everything between Loading
// and Loaded is ignored and a new load forgets previous steps.
type History[T any] struct {
	tree.Nop[T]

	logger *slog.Logger

	mu        sync.Mutex
	size      int
	undo      []*step[T]
	redo      []*step[T]
	loading   bool
	dir       direction
	listeners []func(canUndo, canRedo bool)
}

func New[T any](opts ...Option) *History[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.size < 1 {
		o.size = DefaultSize
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &History[T]{size: o.size, logger: o.logger}
}

// SetSize changes the step bound, dropping the oldest steps as needed.
func (h *History[T]) SetSize(n int) {
	if n < 1 {
		n = DefaultSize
	}
	h.mu.Lock()
	u, r := h.state()
	h.size = n
	h.trim()
	h.mu.Unlock()
	h.changed(u, r)
}

// OnChange registers fn to be called whenever CanUndo or CanRedo flips.
func (h *History[T]) OnChange(fn func(canUndo, canRedo bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the number of undo and redo steps.
func (h *History[T]) Len() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// Undo reverts the most recent step.
func (h *History[T]) Undo(ctx context.Context) error {
	return h.replay(ctx, undoing)
}

// Redo re-applies the most recently undone step.
func (h *History[T]) Redo(ctx context.Context) error {
	return h.replay(ctx, redoing)
}

func (h *History[T]) replay(ctx context.Context, dir direction) error {
	h.mu.Lock()
	u, r := h.state()
	stack := &h.undo
	if dir == redoing {
		stack = &h.redo
	}
	if len(*stack) == 0 {
		h.mu.Unlock()
		if dir == redoing {
			return ErrNothingToRedo
		}
		return ErrNothingToUndo
	}
	st := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	h.dir = dir
	h.mu.Unlock()

	if debug.History() {
		debug.Logf("history: replaying %d ops of group %d\n", len(st.ops), st.group)
	}
	// the inverses are recorded as one step on the opposite stack
	ctx = tree.Batch(ctx)
	var err error
	for i := len(st.ops) - 1; i >= 0; i-- {
		if err = st.ops[i].revert(ctx); err != nil {
			err = fmt.Errorf("reverting %s of %s: %w", st.ops[i].kind, st.ops[i].node, err)
			break
		}
	}

	h.mu.Lock()
	h.dir = forward
	h.mu.Unlock()
	h.changed(u, r)
	if err != nil {
		h.logger.Error("history replay failed", "error", err)
	}
	return err
}

func (h *History[T]) Inserted(ctx context.Context, n *tree.Node[T]) error {
	h.record(ctx, op[T]{kind: inserted, node: n})
	return nil
}

func (h *History[T]) Removed(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	h.record(ctx, op[T]{kind: removed, node: n, parent: oldParent, index: oldIndex})
	return nil
}

func (h *History[T]) Moved(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	h.record(ctx, op[T]{kind: moved, node: n, parent: oldParent, index: oldIndex})
	return nil
}

func (h *History[T]) PropertyUpdated(ctx context.Context, n *tree.Node[T], key string, value, old any) error {
	h.record(ctx, op[T]{kind: updated, node: n, key: key, old: old})
	return nil
}

func (h *History[T]) Loading(context.Context) error {
	h.mu.Lock()
	u, r := h.state()
	h.loading = true
	h.undo, h.redo = nil, nil
	h.mu.Unlock()
	h.changed(u, r)
	return nil
}

func (h *History[T]) Loaded(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loading = false
	return nil
}

func (h *History[T]) record(ctx context.Context, o op[T]) {
	// announcing a new root is not undoable
	if o.kind == inserted && o.node.IsRoot() {
		return
	}
	h.mu.Lock()
	if h.loading {
		h.mu.Unlock()
		return
	}
	u, r := h.state()
	replaying := h.dir != forward
	group, _ := tree.GroupFrom(ctx)
	switch h.dir {
	case undoing:
		h.redo = push(h.redo, group, o)
	case redoing:
		h.undo = push(h.undo, group, o)
	default:
		h.undo = push(h.undo, group, o)
		h.redo = nil
	}
	h.trim()
	h.mu.Unlock()
	if debug.History() {
		debug.Logf("history: %s %s group %d\n", o.kind, o.node, group)
	}
	if !replaying {
		h.changed(u, r)
	}
}

// push appends o to the top step when it belongs to the same non-zero
// group, and as a new step otherwise.
func push[T any](stack []*step[T], group uint64, o op[T]) []*step[T] {
	if n := len(stack); n > 0 && group != 0 && stack[n-1].group == group {
		stack[n-1].ops = append(stack[n-1].ops, o)
		return stack
	}
	return append(stack, &step[T]{group: group, ops: []op[T]{o}})
}

// trim drops the oldest undo steps beyond size. h.mu is held.
func (h *History[T]) trim() {
	if excess := len(h.undo) - h.size; excess > 0 {
		h.undo = h.undo[excess:]
	}
}

// state returns CanUndo and CanRedo. h.mu is held.
func (h *History[T]) state() (bool, bool) {
	return len(h.undo) > 0, len(h.redo) > 0
}

// changed calls the listeners when the state differs from u, r.
func (h *History[T]) changed(u, r bool) {
	h.mu.Lock()
	nu, nr := h.state()
	fns := h.listeners
	h.mu.Unlock()
	if nu == u && nr == r {
		return
	}
	for _, fn := range fns {
		fn(nu, nr)
	}
}
