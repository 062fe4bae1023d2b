// Package render writes outline trees as indented text for terminals.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/signadot/paperplane/tree"
)

type options struct {
	colors *Colors
	data   bool
	paths  bool
	depth  int
	file   func(n any) (string, bool)
	mark   map[any]bool
}

type Option func(*options)

// WithColors colors the output. A nil c disables colors.
func WithColors(c *Colors) Option {
	return func(o *options) { o.colors = c }
}

// WithData shows node properties other than the text after the text.
func WithData(v bool) Option {
	return func(o *options) { o.data = v }
}

// WithPaths prefixes each line with the node's path.
func WithPaths(v bool) Option {
	return func(o *options) { o.paths = v }
}

// WithDepth limits the rendered depth; top-level entries have depth 0.
// Negative means no limit.
func WithDepth(d int) Option {
	return func(o *options) { o.depth = d }
}

// WithFiles annotates the nodes for which fileOf reports a file of their
// own.
func WithFiles[T any](fileOf func(*tree.Node[T]) (string, bool)) Option {
	return func(o *options) {
		o.file = func(n any) (string, bool) {
			return fileOf(n.(*tree.Node[T]))
		}
	}
}

// WithMarks highlights the given nodes.
func WithMarks[T any](nodes ...*tree.Node[T]) Option {
	return func(o *options) {
		o.mark = map[any]bool{}
		for _, n := range nodes {
			o.mark[n] = true
		}
	}
}

// Render writes the subtree below root, one line per node.
func Render[T any](w io.Writer, root *tree.Node[T], opts ...Option) error {
	o := &options{depth: -1}
	for _, opt := range opts {
		opt(o)
	}
	base := root.Depth() + 1
	return root.Visit(func(n *tree.Node[T], isPost bool) (bool, error) {
		if isPost {
			return true, nil
		}
		if n == root {
			return true, nil
		}
		d := n.Depth() - base
		if o.depth >= 0 && d > o.depth {
			return false, nil
		}
		_, err := io.WriteString(w, line(n, d, o)+"\n")
		return true, err
	})
}

// List writes one unindented line per node.
func List[T any](w io.Writer, nodes []*tree.Node[T], opts ...Option) error {
	o := &options{depth: -1}
	for _, opt := range opts {
		opt(o)
	}
	for _, n := range nodes {
		if _, err := io.WriteString(w, line(n, 0, o)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// line renders n alone at indentation d.
func line[T any](n *tree.Node[T], d int, o *options) string {
	c := o.colors
	var b strings.Builder
	if o.paths {
		b.WriteString(c.Color(PathColor, n.ComputePath()))
		b.WriteByte(' ')
	}
	b.WriteString(strings.Repeat("  ", d))
	b.WriteString(c.Color(BulletColor, "-"))
	b.WriteByte(' ')
	attr := TextColor
	if n.TextKey() != tree.DefaultTextKey {
		attr = NoteColor
	}
	text := c.Color(attr, n.Text())
	if o.mark[n] {
		text = c.Color(MatchColor, n.Text())
	}
	b.WriteString(text)
	if o.data {
		for _, k := range n.Keys() {
			if k == n.TextKey() {
				continue
			}
			v, _ := n.Get(k)
			fmt.Fprintf(&b, "  %s=%s", c.Color(KeyColor, k), c.Color(ValueColor, Value(v)))
		}
	}
	if o.file != nil {
		if name, ok := o.file(n); ok {
			fmt.Fprintf(&b, "  %s", c.Color(FileColor, "("+name+")"))
		}
	}
	return b.String()
}

// Value renders a property value in YAML flow style on one line.
func Value(v any) string {
	d, err := yaml.MarshalWithOptions(v, yaml.Flow(true))
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(d))
}
