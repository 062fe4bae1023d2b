package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/paperplane/tree"
)

type counter struct {
	tree.Nop[int]
	keys   []string
	groups map[uint64]bool
}

func (c *counter) PropertyUpdated(ctx context.Context, n *tree.Node[int], key string, value, old any) error {
	c.keys = append(c.keys, key)
	g, _ := tree.GroupFrom(ctx)
	c.groups[g] = true
	return nil
}

func node(t *testing.T, c *counter) *tree.Node[int] {
	t.Helper()
	ctx := context.Background()
	root := tree.NewRoot(tree.NewObservers[int](c))
	if err := root.Insert(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}
	n, err := root.CreateChild(ctx, 0, "task", map[string]any{"done": false, "priority": 2, "tags": []any{"a"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestMerge(t *testing.T) {
	c := &counter{groups: map[uint64]bool{}}
	n := node(t, c)
	err := Merge(context.Background(), n, []byte(`{"done": true, "tags": null, "owner": "ann"}`))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"text": "task", "done": true, "priority": 2, "owner": "ann"}
	if diff := cmp.Diff(want, n.Data()); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"done", "owner", "tags"}, c.keys); diff != "" {
		t.Errorf("updated keys (-want +got):\n%s", diff)
	}
	if len(c.groups) != 1 {
		t.Errorf("updates spread over %d groups", len(c.groups))
	}
}

func TestApply(t *testing.T) {
	c := &counter{groups: map[uint64]bool{}}
	n := node(t, c)
	err := Apply(context.Background(), n, []byte(`[{"op": "replace", "path": "/text", "value": "renamed"}, {"op": "add", "path": "/tags/-", "value": "b"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if n.Text() != "renamed" {
		t.Errorf("text %q", n.Text())
	}
	if diff := cmp.Diff([]any{"a", "b"}, n.Data()["tags"]); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	n := node(t, &counter{groups: map[uint64]bool{}})
	ctx := context.Background()
	if err := Apply(ctx, n, []byte(`{`)); !errors.Is(err, ErrPatch) {
		t.Errorf("decode: got %v want ErrPatch", err)
	}
	if err := Apply(ctx, n, []byte(`[{"op": "remove", "path": "/missing"}]`)); !errors.Is(err, ErrPatch) {
		t.Errorf("apply: got %v want ErrPatch", err)
	}
}
