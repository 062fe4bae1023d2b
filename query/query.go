// Package query selects outline nodes with expr-lang expressions.
//
// An expression sees the node's properties as variables, overlaid with
//
//	text      the node text
//	data      the property map
//	depth     0 for top-level entries
//	index     position among siblings
//	children  number of children
//	path()    the node's routable path
//	has(key)  whether the property exists
package query

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/signadot/paperplane/tree"
)

var ErrCompile = errors.New("bad query")

type Query struct {
	src  string
	prog *vm.Program
}

func Compile(src string) (*Query, error) {
	prog, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Query{src: src, prog: prog}, nil
}

func (q *Query) String() string {
	return q.src
}

// Env builds the variables an expression sees for n.
func Env[T any](n *tree.Node[T]) map[string]any {
	env := n.Data()
	env["text"] = n.Text()
	env["data"] = n.Data()
	env["depth"] = n.Depth()
	env["index"] = n.Index()
	env["children"] = n.Len()
	env["path"] = func() string {
		return n.ComputePath()
	}
	env["has"] = func(key string) bool {
		_, ok := n.Get(key)
		return ok
	}
	return env
}

// Match evaluates q against n.
func Match[T any](q *Query, n *tree.Node[T]) (bool, error) {
	out, err := vm.Run(q.prog, Env(n))
	if err != nil {
		return false, fmt.Errorf("%s at %s: %w", q.src, n, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// Find returns the nodes below root matching q, in document order. The
// root itself is not considered.
func Find[T any](root *tree.Node[T], q *Query) ([]*tree.Node[T], error) {
	var res []*tree.Node[T]
	err := root.Visit(func(n *tree.Node[T], isPost bool) (bool, error) {
		if isPost || n == root {
			return true, nil
		}
		ok, err := Match(q, n)
		if err != nil {
			return false, err
		}
		if ok {
			res = append(res, n)
		}
		return true, nil
	})
	return res, err
}
