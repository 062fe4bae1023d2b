package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	Nop[int]
	events []string
	groups []uint64
}

func (r *recorder) record(ctx context.Context, s string) {
	r.events = append(r.events, s)
	g, _ := GroupFrom(ctx)
	r.groups = append(r.groups, g)
}

func (r *recorder) Inserted(ctx context.Context, n *Node[int]) error {
	r.record(ctx, fmt.Sprintf("inserted %s", n.Text()))
	return nil
}

func (r *recorder) Removed(ctx context.Context, n, p *Node[int], i int) error {
	r.record(ctx, fmt.Sprintf("removed %s from %s[%d]", n.Text(), p.Text(), i))
	return nil
}

func (r *recorder) Moved(ctx context.Context, n, p *Node[int], i int) error {
	r.record(ctx, fmt.Sprintf("moved %s from %s[%d]", n.Text(), p.Text(), i))
	return nil
}

func (r *recorder) PropertyUpdated(ctx context.Context, n *Node[int], k string, nv, ov any) error {
	r.record(ctx, fmt.Sprintf("updated %s %s %v->%v", n.Text(), k, ov, nv))
	return nil
}

// outline builds a tree from lines indented by two spaces per level.
func outline(t *testing.T, obs *Observers[int], src string) *Node[int] {
	t.Helper()
	ctx := context.Background()
	root := NewRoot(obs)
	if err := root.Insert(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}
	stack := []*Node[int]{root}
	for _, line := range strings.Split(strings.TrimSpace(src), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		depth := (len(line) - len(trimmed)) / 2
		stack = stack[:depth+1]
		p := stack[depth]
		c, err := p.CreateChild(ctx, p.Len(), trimmed, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		stack = append(stack, c)
	}
	return root
}

func dump(n *Node[int]) string {
	var b strings.Builder
	n.Walk(func(x *Node[int]) bool {
		if x.IsRoot() {
			return true
		}
		b.WriteString(strings.Repeat("  ", x.Depth()))
		b.WriteString(x.Text())
		b.WriteString("\n")
		return true
	})
	return b.String()
}

func find(root *Node[int], text string) *Node[int] {
	var res *Node[int]
	root.Walk(func(x *Node[int]) bool {
		if x.Text() == text {
			res = x
			return false
		}
		return true
	})
	return res
}

func checkIndices(t *testing.T, root *Node[int]) {
	t.Helper()
	root.Walk(func(x *Node[int]) bool {
		for i, c := range x.Children() {
			if c.Parent() != x || c.Index() != i {
				t.Errorf("%s: parent/index broken at %d", c, i)
			}
			if c.Text() != c.data[c.TextKey()] {
				t.Errorf("%s: text %q != data %v", c, c.Text(), c.data[c.TextKey()])
			}
		}
		return true
	})
}

func TestCreateChild(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	root := outline(t, NewObservers[int](rec), "a\nb")
	c, err := root.CreateChild(ctx, 1, "mid", map[string]any{"k": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("a\nmid\nb\n", dump(root)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"k": 1, "text": "mid"}, c.Data()); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
	if _, err := root.CreateChild(ctx, 4, "x", nil, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v want ErrIndexOutOfRange", err)
	}
	if got := rec.events[len(rec.events)-1]; got != "inserted mid" {
		t.Errorf("last event %q", got)
	}
	if err := c.Insert(ctx, root, 0); !errors.Is(err, ErrAttached) {
		t.Errorf("got %v want ErrAttached", err)
	}
	checkIndices(t, root)
}

func TestCreateChildTextKey(t *testing.T) {
	ctx := context.Background()
	root := outline(t, nil, "a")
	c, err := root.CreateChild(ctx, 0, "n", nil, func(n *Node[int]) { n.SetTextKey("note") })
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"note": "n"}, c.Data()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if err := c.UpdateProperty(ctx, "note", "m"); err != nil {
		t.Fatal(err)
	}
	if c.Text() != "m" {
		t.Errorf("text %q", c.Text())
	}
}

func TestIDDepth(t *testing.T) {
	root := outline(t, nil, "a\n  b\n  c\n    d")
	if diff := cmp.Diff([]int{0}, root.ID()); diff != "" {
		t.Error(diff)
	}
	d := find(root, "d")
	if diff := cmp.Diff([]int{0, 0, 1, 0}, d.ID()); diff != "" {
		t.Error(diff)
	}
	if root.Depth() != -1 || d.Depth() != 2 {
		t.Errorf("depths %d %d", root.Depth(), d.Depth())
	}
	sibs := d.Parent().Siblings()
	if len(sibs) != 2 || sibs[0] != find(root, "b") || sibs[1] != find(root, "c") {
		t.Errorf("siblings %v", sibs)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	root := outline(t, NewObservers[int](rec), "a\nb\nc")
	rec.events = nil
	b := find(root, "b")
	if err := b.Remove(ctx); err != nil {
		t.Fatal(err)
	}
	if b.Parent() != nil {
		t.Error("removed node still attached")
	}
	if diff := cmp.Diff([]string{"removed b from [1]"}, rec.events); diff != "" {
		t.Error(diff)
	}
	if err := root.Remove(ctx); !errors.Is(err, ErrRoot) {
		t.Errorf("got %v want ErrRoot", err)
	}
	// a removed subtree can be inserted again
	if err := b.Insert(ctx, root, 1); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("a\nb\nc\n", dump(root)); diff != "" {
		t.Error(diff)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		src    string
		node   string
		parent string
		index  int
		want   string
		err    error
	}{
		{
			name: "forward within parent", src: "a\nb\nc",
			node: "a", parent: "", index: 2,
			want: "b\nc\na\n",
		},
		{
			name: "into sibling", src: "a\nb\n  x",
			node: "a", parent: "b", index: 1,
			want: "b\n  x\n  a\n",
		},
		{
			name: "under itself", src: "a\n  b",
			node: "a", parent: "b", index: 0,
			err: ErrCycle,
		},
		{
			name: "out of range", src: "a\nb",
			node: "a", parent: "", index: 2,
			err: ErrIndexOutOfRange,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := outline(t, nil, tc.src)
			parent := root
			if tc.parent != "" {
				parent = find(root, tc.parent)
			}
			before := dump(root)
			err := find(root, tc.node).Move(ctx, parent, tc.index)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("got %v want %v", err, tc.err)
				}
				if after := dump(root); after != before {
					t.Errorf("tree changed on error:\n%s", after)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, dump(root)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			checkIndices(t, root)
		})
	}
}

func TestDepthChanges(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	root := outline(t, NewObservers[int](rec), "p\n  a\n  n\n  b\n  c")
	n := find(root, "n")

	rec.events, rec.groups = nil, nil
	if err := n.DecreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("p\n  a\nn\n  b\n  c\n", dump(root)); diff != "" {
		t.Errorf("decrease (-want +got):\n%s", diff)
	}
	want := []string{"moved n from p[1]", "moved b from p[1]", "moved c from p[1]"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if rec.groups[0] == 0 || rec.groups[1] != rec.groups[0] || rec.groups[2] != rec.groups[0] {
		t.Errorf("groups %v", rec.groups)
	}
	checkIndices(t, root)

	if err := n.IncreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("p\n  a\n  n\n    b\n    c\n", dump(root)); diff != "" {
		t.Errorf("increase (-want +got):\n%s", diff)
	}

	rec.events = nil
	first := find(root, "p")
	if err := first.IncreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if err := first.DecreaseDepth(ctx); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 0 {
		t.Errorf("no-op depth changes notified: %v", rec.events)
	}
	if first.CanIncreaseDepth() || first.CanDecreaseDepth() {
		t.Error("first top-level node reports depth changes possible")
	}
}

func TestUpdateProperty(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	root := outline(t, NewObservers[int](rec), "a")
	a := find(root, "a")
	rec.events = nil

	steps := []struct {
		key string
		val any
	}{
		{"done", true},
		{"done", true},
		{"tags", []any{"x"}},
		{"tags", []any{"x"}},
		{"done", Absent},
		{"done", Absent},
		{"text", "b"},
	}
	for _, s := range steps {
		if err := a.UpdateProperty(ctx, s.key, s.val); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		"updated a done <absent>->true",
		"updated a tags <absent>->[x]",
		"updated a done true-><absent>",
		"updated b text a->b",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, ok := a.Get("done"); ok {
		t.Error("done still set")
	}
}

func TestNotifyJoinsErrors(t *testing.T) {
	ctx := context.Background()
	errA := errors.New("a")
	errB := errors.New("b")
	var calls []string
	obs := NewObservers[int](
		&Funcs[int]{OnInserted: func(context.Context, *Node[int]) error {
			calls = append(calls, "first")
			return errA
		}},
		&Funcs[int]{OnInserted: func(context.Context, *Node[int]) error {
			calls = append(calls, "second")
			return errB
		}},
		&Funcs[int]{},
	)
	root := NewRoot(obs)
	err := root.Insert(ctx, nil, 0)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("got %v", err)
	}
	if diff := cmp.Diff([]string{"first", "second"}, calls); diff != "" {
		t.Error(diff)
	}
}

func TestAddObserverAffectsWholeTree(t *testing.T) {
	ctx := context.Background()
	root := outline(t, nil, "a\n  b")
	rec := &recorder{}
	root.Observers().Add(rec)
	if err := find(root, "b").UpdateProperty(ctx, "x", 1); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Errorf("events %v", rec.events)
	}
}
