// Package plaintext keeps a lower-cased, markup free rendition of node
// text for searching.
package plaintext

import (
	"context"
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/signadot/paperplane/tree"
)

// FromMarkdown strips inline Markdown from s and lower-cases the result.
func FromMarkdown(s string) string {
	if s == "" {
		return ""
	}
	doc := markdown.Parse([]byte(s), parser.New())
	var b strings.Builder
	ast.WalkFunc(doc, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			if _, ok := n.(*ast.Paragraph); ok {
				b.WriteByte(' ')
			}
			return ast.GoToNext
		}
		switch x := n.(type) {
		case *ast.Text:
			b.Write(x.Literal)
		case *ast.Code:
			b.Write(x.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			b.WriteByte(' ')
		}
		return ast.GoToNext
	})
	return strings.ToLower(strings.TrimSpace(b.String()))
}

// Cache is an observer holding the plain text of every node with text.
type Cache[T any] struct {
	tree.Nop[T]

	mu    sync.RWMutex
	texts map[*tree.Node[T]]string
}

func New[T any]() *Cache[T] {
	return &Cache[T]{texts: map[*tree.Node[T]]string{}}
}

// Text returns the cached plain text of n.
func (c *Cache[T]) Text(n *tree.Node[T]) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.texts[n]
	return s, ok
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.texts)
}

// Search returns the nodes below root whose plain text contains every
// word of query, in document order.
func (c *Cache[T]) Search(root *tree.Node[T], query string) []*tree.Node[T] {
	words := strings.Fields(strings.ToLower(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	var res []*tree.Node[T]
	root.Walk(func(n *tree.Node[T]) bool {
		s, ok := c.texts[n]
		if !ok || len(words) == 0 {
			return true
		}
		for _, w := range words {
			if !strings.Contains(s, w) {
				return true
			}
		}
		res = append(res, n)
		return true
	})
	return res
}

func (c *Cache[T]) Inserted(ctx context.Context, n *tree.Node[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n.Walk(func(x *tree.Node[T]) bool {
		c.set(x)
		return true
	})
	return nil
}

func (c *Cache[T]) Removed(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n.Walk(func(x *tree.Node[T]) bool {
		delete(c.texts, x)
		return true
	})
	return nil
}

func (c *Cache[T]) PropertyUpdated(ctx context.Context, n *tree.Node[T], key string, value, old any) error {
	if key != n.TextKey() && key != "text" && key != "note" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(n)
	return nil
}

func (c *Cache[T]) Loading(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.texts)
	return nil
}

// set refreshes the entry of n. c.mu is held.
func (c *Cache[T]) set(n *tree.Node[T]) {
	if n.Text() == "" {
		delete(c.texts, n)
		return
	}
	c.texts[n] = FromMarkdown(n.Text())
}
