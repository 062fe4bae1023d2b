package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/paperplane/docfs"
	"github.com/signadot/paperplane/tree"
	"github.com/signadot/paperplane/yamlstore"
)

func build(t *testing.T, h *History[int], texts ...string) *tree.Node[int] {
	t.Helper()
	ctx := context.Background()
	root := tree.NewRoot(tree.NewObservers[int](h))
	if err := root.Insert(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}
	for i, s := range texts {
		if _, err := root.CreateChild(ctx, i, s, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func dump(root *tree.Node[int]) string {
	var b strings.Builder
	root.Walk(func(n *tree.Node[int]) bool {
		if !n.IsRoot() {
			b.WriteString(strings.Repeat(" ", n.Depth()))
			b.WriteString(n.Text())
			b.WriteString("\n")
		}
		return true
	})
	return b.String()
}

func TestUndoRedo(t *testing.T) {
	tests := []struct {
		name string
		op   func(ctx context.Context, root *tree.Node[int]) error
	}{
		{"create", func(ctx context.Context, root *tree.Node[int]) error {
			_, err := root.Child(1).CreateChild(ctx, 0, "new", nil, nil)
			return err
		}},
		{"remove", func(ctx context.Context, root *tree.Node[int]) error {
			return root.Child(1).Remove(ctx)
		}},
		{"move", func(ctx context.Context, root *tree.Node[int]) error {
			return root.Child(2).Move(ctx, root.Child(0), 0)
		}},
		{"reorder", func(ctx context.Context, root *tree.Node[int]) error {
			return root.Child(0).Move(ctx, root, 2)
		}},
		{"text", func(ctx context.Context, root *tree.Node[int]) error {
			return root.Child(0).SetText(ctx, "changed")
		}},
		{"new property", func(ctx context.Context, root *tree.Node[int]) error {
			return root.Child(0).UpdateProperty(ctx, "done", true)
		}},
		{"decrease depth", func(ctx context.Context, root *tree.Node[int]) error {
			b := root.Child(1)
			for _, s := range []string{"x", "y", "z"} {
				if _, err := b.CreateChild(ctx, b.Len(), s, nil, nil); err != nil {
					return err
				}
			}
			return b.Child(0).DecreaseDepth(ctx)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			h := New[int]()
			root := build(t, h, "a", "b", "c")
			u0, _ := h.Len()
			before := dump(root)
			if err := tc.op(ctx, root); err != nil {
				t.Fatal(err)
			}
			after := dump(root)
			u1, _ := h.Len()
			// undo everything the op recorded
			for i := u0; i < u1; i++ {
				if err := h.Undo(ctx); err != nil {
					t.Fatal(err)
				}
			}
			if diff := cmp.Diff(before, dump(root)); diff != "" {
				t.Errorf("after undo (-want +got):\n%s", diff)
			}
			for i := u0; i < u1; i++ {
				if err := h.Redo(ctx); err != nil {
					t.Fatal(err)
				}
			}
			if diff := cmp.Diff(after, dump(root)); diff != "" {
				t.Errorf("after redo (-want +got):\n%s", diff)
			}
			if h.CanRedo() {
				t.Errorf("redo left after redoing everything")
			}
		})
	}
}

func TestGroupIsOneStep(t *testing.T) {
	ctx := context.Background()
	h := New[int]()
	root := build(t, h, "p")
	p := root.Child(0)
	for _, s := range []string{"a", "n", "b", "c"} {
		if _, err := p.CreateChild(ctx, p.Len(), s, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	before := dump(root)
	u0, _ := h.Len()
	if err := p.Child(1).DecreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if u1, _ := h.Len(); u1 != u0+1 {
		t.Fatalf("decrease depth recorded %d steps", u1-u0)
	}
	if err := h.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, dump(root)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestNewChangeClearsRedo(t *testing.T) {
	ctx := context.Background()
	h := New[int]()
	root := build(t, h, "a")
	if err := h.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatal("no redo after undo")
	}
	if _, err := root.CreateChild(ctx, 0, "b", nil, nil); err != nil {
		t.Fatal(err)
	}
	if h.CanRedo() {
		t.Errorf("redo survived a new change")
	}
	if err := h.Redo(ctx); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("got %v want ErrNothingToRedo", err)
	}
}

func TestEmpty(t *testing.T) {
	h := New[int]()
	if err := h.Undo(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("got %v want ErrNothingToUndo", err)
	}
}

func TestSize(t *testing.T) {
	h := New[int](WithSize(2))
	build(t, h, "a", "b", "c")
	if u, _ := h.Len(); u != 2 {
		t.Errorf("kept %d steps", u)
	}
	h.SetSize(1)
	if u, _ := h.Len(); u != 1 {
		t.Errorf("kept %d steps after SetSize", u)
	}
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	h := New[int]()
	var got [][2]bool
	h.OnChange(func(u, r bool) {
		got = append(got, [2]bool{u, r})
	})
	root := build(t, h, "a")
	if err := root.Child(0).SetText(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := h.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	want := [][2]bool{{true, false}, {true, true}, {false, true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestStoreUndo(t *testing.T) {
	ctx := context.Background()
	const src = "items:\n- text: a\n- text: b\n  done: true\n- text: c\n"
	mem := docfs.NewMemory(map[string]string{"main.yaml": src})
	h := New[int]()
	s := yamlstore.New[int](mem, tree.NewObservers[int](h))
	if err := s.Load(ctx, "main.yaml"); err != nil {
		t.Fatal(err)
	}
	if h.CanUndo() {
		t.Fatal("load is undoable")
	}
	root := s.Root()
	if err := root.Child(1).IncreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if err := root.Child(1).Remove(ctx); err != nil {
		t.Fatal(err)
	}
	if err := root.Child(0).UpdateProperty(ctx, "done", false); err != nil {
		t.Fatal(err)
	}
	for h.CanUndo() {
		if err := h.Undo(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	want := "items:\n- text: a\n- text: b\n  done: true\n- text: c\n"
	if got := mem.Contents()["main.yaml"]; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
