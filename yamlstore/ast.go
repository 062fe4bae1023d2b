package yamlstore

import (
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// unwrap strips tags and anchors.
func unwrap(n ast.Node) ast.Node {
	for {
		switch x := n.(type) {
		case *ast.TagNode:
			n = x.Value
		case *ast.AnchorNode:
			n = x.Value
		default:
			return n
		}
	}
}

// rewrap replaces the node wrapped by tags and anchors in outer.
func rewrap(outer, inner ast.Node) ast.Node {
	switch x := outer.(type) {
	case *ast.TagNode:
		x.Value = rewrap(x.Value, inner)
		return x
	case *ast.AnchorNode:
		x.Value = rewrap(x.Value, inner)
		return x
	default:
		return inner
	}
}

func keyOf(mv *ast.MappingValueNode) string {
	if s, ok := mv.Key.(ast.ScalarNode); ok {
		return fmt.Sprint(s.GetValue())
	}
	return mv.Key.String()
}

func lookup(m *ast.MappingNode, key string) (int, *ast.MappingValueNode) {
	for i, mv := range m.Values {
		if keyOf(mv) == key {
			return i, mv
		}
	}
	return -1, nil
}

// keyColumn is the column of the keys of m.
func keyColumn(m *ast.MappingNode) int {
	if len(m.Values) == 0 {
		return 1
	}
	return m.Values[0].Key.GetToken().Position.Column
}

// scalarText returns the text of a string scalar.
func scalarText(n ast.Node) (string, bool) {
	switch x := unwrap(n).(type) {
	case *ast.StringNode:
		return x.Value, true
	case *ast.LiteralNode:
		return x.Value.Value, true
	default:
		return "", false
	}
}

// anyScalarText renders any scalar as text.
func anyScalarText(n ast.Node) (string, bool) {
	if s, ok := scalarText(n); ok {
		return s, true
	}
	switch x := unwrap(n).(type) {
	case *ast.NullNode:
		return "", true
	case ast.ScalarNode:
		return fmt.Sprint(x.GetValue()), true
	}
	return "", false
}

func parseBody(src []byte) (ast.Node, error) {
	f, err := parser.ParseBytes(src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	if len(f.Docs) == 0 || f.Docs[0].Body == nil {
		return nil, fmt.Errorf("%w: empty document", errInternal)
	}
	return f.Docs[0].Body, nil
}

// newValue encodes v as a detached YAML node.
func newValue(v any) (ast.Node, error) {
	d, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return parseBody(d)
}

// newMapping encodes items as a detached block mapping with keys in
// column 1.
func newMapping(items yaml.MapSlice) (*ast.MappingNode, error) {
	d, err := yaml.Marshal(items)
	if err != nil {
		return nil, err
	}
	body, err := parseBody(d)
	if err != nil {
		return nil, err
	}
	m, ok := body.(*ast.MappingNode)
	if !ok {
		return nil, fmt.Errorf("%w: encoded %T for a mapping", errInternal, body)
	}
	return m, nil
}

// newKeyValue encodes key: v aligned to column col.
func newKeyValue(key string, v any, col int) (*ast.MappingValueNode, error) {
	m, err := newMapping(yaml.MapSlice{{Key: key, Value: v}})
	if err != nil {
		return nil, err
	}
	mv := m.Values[0]
	mv.AddColumn(col - mv.Key.GetToken().Position.Column)
	flatten(mv.Value)
	return mv, nil
}

// newSeqKeyValue returns key with an empty block sequence aligned to
// column col.
func newSeqKeyValue(key string, col int) (*ast.MappingValueNode, error) {
	body, err := parseBody([]byte(key + ":\n- x\n"))
	if err != nil {
		return nil, err
	}
	m, ok := body.(*ast.MappingNode)
	if !ok || len(m.Values) != 1 {
		return nil, fmt.Errorf("%w: unexpected sequence template", errInternal)
	}
	mv := m.Values[0]
	seq, ok := mv.Value.(*ast.SequenceNode)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected sequence template", errInternal)
	}
	seq.Values = nil
	seq.ValueHeadComments = nil
	seq.Entries = nil
	mv.AddColumn(col - mv.Key.GetToken().Position.Column)
	flatten(seq)
	return mv, nil
}

// flatten makes a collection value print on the key line when it is empty
// or flow style.
func flatten(n ast.Node) {
	if tk := n.GetToken(); tk != nil && tk.Position != nil {
		tk.Position.IndentLevel = 0
	}
}

// setValue replaces the value of mv, aligning v below or after the key.
func setValue(mv *ast.MappingValueNode, v ast.Node) {
	switch x := v.(type) {
	case *ast.MappingNode:
		if !x.IsFlowStyle && len(x.Values) > 0 {
			x.AddColumn(mv.Key.GetToken().Position.Column + 2 - keyColumn(x))
		}
	case *ast.SequenceNode:
		if !x.IsFlowStyle && len(x.Values) > 0 {
			x.AddColumn(mv.Key.GetToken().Position.Column - x.Start.Position.Column)
		}
	default:
		if cm := mv.Value.GetComment(); cm != nil && v.GetComment() == nil {
			_ = v.SetComment(cm)
		}
		if tk := mv.Value.GetToken(); tk != nil && tk.Position != nil {
			_ = mv.Replace(v)
		}
	}
	flatten(v)
	mv.Value = v
}

// item is one element of a block sequence together with the comment
// lines preceding it.
type item struct {
	value ast.Node
	head  *ast.CommentGroupNode
	entry *ast.SequenceEntryNode
}

func seqRemove(seq *ast.SequenceNode, i int) (item, error) {
	if i < 0 || i >= len(seq.Values) {
		return item{}, fmt.Errorf("%w: sequence index %d of %d", ErrOutOfSync, i, len(seq.Values))
	}
	it := item{value: seq.Values[i]}
	if len(seq.ValueHeadComments) == len(seq.Values) {
		it.head = seq.ValueHeadComments[i]
		seq.ValueHeadComments = slices.Delete(seq.ValueHeadComments, i, i+1)
	}
	if len(seq.Entries) == len(seq.Values) {
		it.entry = seq.Entries[i]
		seq.Entries = slices.Delete(seq.Entries, i, i+1)
	}
	seq.Values = slices.Delete(seq.Values, i, i+1)
	if len(seq.Values) == 0 {
		flatten(seq)
	}
	return it, nil
}

func seqInsert(seq *ast.SequenceNode, i int, it item) error {
	if i < 0 || i > len(seq.Values) {
		return fmt.Errorf("%w: sequence index %d of %d", ErrOutOfSync, i, len(seq.Values))
	}
	if seq.IsFlowStyle {
		return fmt.Errorf("%w: flow sequence", errInternal)
	}
	if it.head != nil {
		for _, c := range it.head.Comments {
			if tk := c.GetToken(); tk != nil && tk.Position != nil {
				tk.Position.Column = seq.Start.Position.Column
			}
		}
	}
	heads := len(seq.ValueHeadComments) == len(seq.Values)
	if !heads && it.head != nil {
		seq.ValueHeadComments = make([]*ast.CommentGroupNode, len(seq.Values))
		heads = true
	}
	if len(seq.Entries) == len(seq.Values) {
		e := it.entry
		if e == nil {
			e = ast.SequenceEntry(seq.Start, it.value, it.head)
		}
		e.Start = seq.Start
		e.Value = it.value
		seq.Entries = slices.Insert(seq.Entries, i, e)
	}
	if heads {
		seq.ValueHeadComments = slices.Insert(seq.ValueHeadComments, i, it.head)
	}
	seq.Values = slices.Insert(seq.Values, i, it.value)
	return nil
}

// seqSet replaces the value at i, keeping its comments.
func seqSet(seq *ast.SequenceNode, i int, v ast.Node) {
	seq.Values[i] = v
	if len(seq.Entries) == len(seq.Values) {
		seq.Entries[i].Value = v
	}
}

// blockify re-encodes a flow collection in block style. Comments inside
// the collection are lost.
func blockify(n ast.Node) (ast.Node, error) {
	var v any
	if err := yaml.NodeToValue(n, &v, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return newValue(v)
}

// blockSeq returns seq in block style with its dashes in column col.
func blockSeq(seq *ast.SequenceNode, col int) (*ast.SequenceNode, error) {
	if !seq.IsFlowStyle {
		return seq, nil
	}
	if len(seq.Values) == 0 {
		mv, err := newSeqKeyValue("x", col)
		if err != nil {
			return nil, err
		}
		return mv.Value.(*ast.SequenceNode), nil
	}
	n, err := blockify(seq)
	if err != nil {
		return nil, err
	}
	res, ok := n.(*ast.SequenceNode)
	if !ok {
		return nil, fmt.Errorf("%w: re-encoded %T for a sequence", errInternal, n)
	}
	res.AddColumn(col - res.Start.Position.Column)
	flatten(res)
	return res, nil
}

// blockMapping returns m in block style with its keys in column col.
func blockMapping(m *ast.MappingNode, col int) (*ast.MappingNode, error) {
	if !m.IsFlowStyle || len(m.Values) == 0 {
		return m, nil
	}
	n, err := blockify(m)
	if err != nil {
		return nil, err
	}
	res, ok := n.(*ast.MappingNode)
	if !ok {
		return nil, fmt.Errorf("%w: re-encoded %T for a mapping", errInternal, n)
	}
	res.AddColumn(col - keyColumn(res))
	return res, nil
}
