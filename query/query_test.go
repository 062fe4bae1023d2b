package query

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/paperplane/tree"
)

func sample(t *testing.T) *tree.Node[int] {
	t.Helper()
	ctx := context.Background()
	root := tree.NewRoot[int](nil)
	if err := root.Insert(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}
	a, err := root.CreateChild(ctx, 0, "groceries", map[string]any{"id": "shop"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range []string{"milk", "bread"} {
		if _, err := a.CreateChild(ctx, i, s, map[string]any{"done": i == 0}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := root.CreateChild(ctx, 1, "call bob", map[string]any{"priority": 2}, nil); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestFind(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"done", []string{"milk"}},
		{"has('done') && !done", []string{"bread"}},
		{"depth == 0", []string{"groceries", "call bob"}},
		{"children > 0", []string{"groceries"}},
		{"text contains 'b'", []string{"bread", "call bob"}},
		{"priority != nil && priority >= 2", []string{"call bob"}},
		{"path() == '/shop/1'", []string{"bread"}},
		{"data.id == 'shop'", []string{"groceries"}},
	}
	root := sample(t)
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			q, err := Compile(tc.query)
			if err != nil {
				t.Fatal(err)
			}
			found, err := Find(root, q)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, n := range found {
				got = append(got, n.Text())
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("text =="); !errors.Is(err, ErrCompile) {
		t.Errorf("got %v want ErrCompile", err)
	}
}
