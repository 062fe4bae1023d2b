package render

import (
	"context"
	"strings"
	"testing"

	"github.com/signadot/paperplane/tree"
)

func sample(t *testing.T) *tree.Node[int] {
	t.Helper()
	ctx := context.Background()
	root := tree.NewRoot[int](nil)
	if err := root.Insert(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}
	a, err := root.CreateChild(ctx, 0, "a", map[string]any{"done": true, "tags": []any{"red", "blue"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.CreateChild(ctx, 0, "b", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := root.CreateChild(ctx, 1, "c", nil, func(n *tree.Node[int]) {
		n.SetTextKey("note")
	}); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestRender(t *testing.T) {
	root := sample(t)
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"plain", nil, "- a\n  - b\n- c\n"},
		{"depth", []Option{WithDepth(0)}, "- a\n- c\n"},
		{"data", []Option{WithData(true)}, "- a  done=true  tags=[red, blue]\n  - b\n- c\n"},
		{"paths", []Option{WithPaths(true), WithDepth(0)}, "/0 - a\n/1 - c\n"},
		{"files", []Option{WithFiles(func(n *tree.Node[int]) (string, bool) {
			return "c.yaml", n.Text() == "c"
		})}, "- a\n  - b\n- c  (c.yaml)\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			if err := Render(&b, root, tc.opts...); err != nil {
				t.Fatal(err)
			}
			if got := b.String(); got != tc.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tc.want)
			}
		})
	}
}

func TestRenderSubtree(t *testing.T) {
	root := sample(t)
	var b strings.Builder
	if err := Render(&b, root.Child(0)); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "- b\n" {
		t.Errorf("got %q", got)
	}
}

func TestNilColors(t *testing.T) {
	var c *Colors
	if got := c.Color(TextColor, "50%"); got != "50%" {
		t.Errorf("got %q", got)
	}
}

func TestDiff(t *testing.T) {
	var b strings.Builder
	if err := Diff(&b, "x.yaml", "items:\n- a\n- b\n", "items:\n- a\n- c\n", nil); err != nil {
		t.Fatal(err)
	}
	want := "--- x.yaml\n+++ x.yaml\n  items:\n  - a\n- - b\n+ - c\n"
	if got := b.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestList(t *testing.T) {
	root := sample(t)
	b0 := root.Child(0).Child(0)
	var b strings.Builder
	if err := List(&b, []*tree.Node[int]{b0, root.Child(1)}, WithPaths(true)); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "/0/0 - b\n/1 - c\n"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
