package yamlstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"

	"github.com/signadot/paperplane/debug"
	"github.com/signadot/paperplane/tree"
)

// Inserted writes a node created or re-attached after load into the
// sequence of its parent.
func (s *Store[T]) Inserted(ctx context.Context, n *tree.Node[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bindings[n]; ok || !s.inTree(n) {
		return nil
	}
	return s.insert(n)
}

func (s *Store[T]) Removed(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inTree(oldParent) {
		return nil
	}
	return s.remove(n, oldParent, oldIndex)
}

func (s *Store[T]) Moved(ctx context.Context, n, oldParent *tree.Node[T], oldIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inOld, inNew := s.inTree(oldParent), s.inTree(n)
	switch {
	case !inOld && !inNew:
		return nil
	case !inOld:
		delete(s.bindings, n)
		return s.insert(n)
	case !inNew:
		return s.remove(n, oldParent, oldIndex)
	}
	syn, ok := s.bindings[n]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnbound, n)
	}
	parent := n.Parent()
	it, err := s.cut(oldParent, oldIndex, syn, oldParent == parent)
	if err != nil {
		return err
	}
	psyn, ok := s.bindings[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnbound, parent)
	}
	_, seq, err := s.childSeq(parent, psyn, true)
	if err != nil {
		return err
	}
	if err := seqInsert(seq, n.Index(), it); err != nil {
		return err
	}
	if c, ok := syn.(*ChildNode); ok {
		s.repoint(n, c, psyn.File())
	}
	if debug.Store() {
		debug.Logf("store: moved %s from %s to %s\n", n, s.bindings[oldParent].File().Filename, psyn.File().Filename)
	}
	s.markDirty(s.bindings[oldParent].File())
	s.markDirty(psyn.File())
	return nil
}

func (s *Store[T]) PropertyUpdated(ctx context.Context, n *tree.Node[T], key string, value, old any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inTree(n) {
		return nil
	}
	if Reserved(key) {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}
	if !n.IsRoot() && key == n.TextKey() && tree.IsAbsent(value) {
		return fmt.Errorf("%w: %s of %s", ErrTextRequired, key, n)
	}
	syn, ok := s.bindings[n]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnbound, n)
	}
	if done, err := s.updateScalar(n, syn, key, value); err != nil || done {
		return err
	}
	m, err := s.promote(n, syn)
	if err != nil {
		return err
	}
	i, mv := lookup(m, key)
	switch {
	case tree.IsAbsent(value):
		if mv != nil {
			m.Values = slices.Delete(m.Values, i, i+1)
		}
	case mv != nil:
		v, err := newValue(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		setValue(mv, v)
	default:
		mv, err := newKeyValue(key, value, keyColumn(m))
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		at := len(m.Values)
		for j, x := range m.Values {
			if slices.Contains(childKeys, keyOf(x)) {
				at = j
				break
			}
		}
		m.Values = slices.Insert(m.Values, at, mv)
	}
	if debug.Store() {
		debug.Logf("store: %s %s=%v in %s\n", n, key, value, syn.File().Filename)
	}
	s.markDirty(syn.File())
	return nil
}

// updateScalar rewrites the text of a scalar entry in place.
func (s *Store[T]) updateScalar(n *tree.Node[T], syn Syntax, key string, value any) (bool, error) {
	c, ok := syn.(*ChildNode)
	if !ok || key != n.TextKey() {
		return false, nil
	}
	if _, ok := entryOf(c).(scalarEntry); !ok {
		return false, nil
	}
	text, ok := value.(string)
	if !ok {
		return false, nil
	}
	seq, i, err := s.locate(n, c)
	if err != nil {
		return false, err
	}
	v, err := newValue(text)
	if err != nil {
		return false, err
	}
	if cm := unwrap(c.value).GetComment(); cm != nil {
		_ = v.SetComment(cm)
	}
	c.value = rewrap(c.value, v)
	seqSet(seq, i, c.value)
	s.markDirty(c.file)
	return true, nil
}

// insert writes n, which has no binding, into its parent's sequence. s.mu
// is held.
func (s *Store[T]) insert(n *tree.Node[T]) error {
	parent := n.Parent()
	psyn, ok := s.bindings[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnbound, parent)
	}
	f := psyn.File()
	m, err := s.synthesize(n, f)
	if err != nil {
		return err
	}
	_, seq, err := s.childSeq(parent, psyn, true)
	if err != nil {
		return err
	}
	if err := seqInsert(seq, n.Index(), item{value: m}); err != nil {
		return err
	}
	s.bindings[n] = &ChildNode{file: f, value: m}
	s.registerFiles(n)
	if debug.Store() {
		debug.Logf("store: inserted %s in %s %v\n", n, f.Filename, m)
	}
	s.markDirty(f)
	return nil
}

// remove cuts n out of oldParent's sequence and drops its binding. s.mu
// is held.
func (s *Store[T]) remove(n, oldParent *tree.Node[T], oldIndex int) error {
	syn, ok := s.bindings[n]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnbound, n)
	}
	if _, err := s.cut(oldParent, oldIndex, syn, false); err != nil {
		return err
	}
	delete(s.bindings, n)
	s.dropFiles(n, syn)
	if debug.Store() {
		debug.Logf("store: removed %s from %s\n", n, s.bindings[oldParent].File().Filename)
	}
	s.markDirty(s.bindings[oldParent].File())
	return nil
}

// cut splices the sequence value of syn out of parent's sequence at
// index. An emptied child sequence loses its key unless keepKey is set.
// s.mu is held.
func (s *Store[T]) cut(parent *tree.Node[T], index int, syn Syntax, keepKey bool) (item, error) {
	psyn, ok := s.bindings[parent]
	if !ok {
		return item{}, fmt.Errorf("%w: %s", ErrUnbound, parent)
	}
	mv, seq, err := s.childSeq(parent, psyn, false)
	if err != nil {
		return item{}, err
	}
	if seq == nil || index < 0 || index >= len(seq.Values) || seq.Values[index] != syn.SeqValue() {
		return item{}, fmt.Errorf("%w: entry %d of %s", ErrOutOfSync, index, parent)
	}
	it, err := seqRemove(seq, index)
	if err != nil {
		return item{}, err
	}
	if len(seq.Values) == 0 && !keepKey && !isTop(psyn) {
		m := mappingOf(psyn)
		if i := slices.Index(m.Values, mv); i >= 0 {
			m.Values = slices.Delete(m.Values, i, i+1)
		}
	}
	return it, nil
}

func isTop(syn Syntax) bool {
	f, ok := syn.(*FileNode)
	return ok && !f.Included()
}

// childSeq returns the sequence holding the entries of n's children,
// creating it when create is set. s.mu is held.
func (s *Store[T]) childSeq(n *tree.Node[T], syn Syntax, create bool) (*ast.MappingValueNode, *ast.SequenceNode, error) {
	keys := childKeys
	if isTop(syn) {
		keys = topKeys
	}
	m := mappingOf(syn)
	// a null key holds no children; a later key may
	var null *ast.MappingValueNode
	if m != nil {
		for _, k := range keys {
			_, mv := lookup(m, k)
			if mv == nil {
				continue
			}
			switch v := unwrap(mv.Value).(type) {
			case *ast.SequenceNode:
				if v.IsFlowStyle {
					if len(v.Values) > 0 {
						return nil, nil, fmt.Errorf("%w: flow sequence at %s", ErrOutOfSync, pos(v))
					}
					bs, err := blockSeq(v, mv.Key.GetToken().Position.Column)
					if err != nil {
						return nil, nil, err
					}
					mv.Value = rewrap(mv.Value, bs)
					v = bs
				}
				return mv, v, nil
			case *ast.NullNode:
				if null == nil {
					null = mv
				}
			default:
				return nil, nil, fmt.Errorf("%w: %s is not a sequence", ErrMalformed, k)
			}
		}
	}
	if null != nil {
		if !create {
			return null, nil, nil
		}
		tmpl, err := newSeqKeyValue(keyOf(null), null.Key.GetToken().Position.Column)
		if err != nil {
			return nil, nil, err
		}
		null.Value = tmpl.Value
		return null, tmpl.Value.(*ast.SequenceNode), nil
	}
	if !create {
		return nil, nil, nil
	}
	if m == nil {
		var err error
		if m, err = s.promote(n, syn); err != nil {
			return nil, nil, err
		}
	}
	mv, err := newSeqKeyValue(ChildrenKey, keyColumn(m))
	if err != nil {
		return nil, nil, err
	}
	m.Values = append(m.Values, mv)
	return mv, mv.Value.(*ast.SequenceNode), nil
}

// locate finds the sequence and index holding the entry of c. s.mu is
// held.
func (s *Store[T]) locate(n *tree.Node[T], c *ChildNode) (*ast.SequenceNode, int, error) {
	parent := n.Parent()
	psyn, ok := s.bindings[parent]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnbound, parent)
	}
	_, seq, err := s.childSeq(parent, psyn, false)
	if err != nil {
		return nil, 0, err
	}
	i := n.Index()
	if seq == nil || i >= len(seq.Values) || seq.Values[i] != c.value {
		return nil, 0, fmt.Errorf("%w: entry of %s", ErrOutOfSync, n)
	}
	return seq, i, nil
}

// promote turns a scalar entry into a mapping whose text is the scalar,
// comments and tags included. s.mu is held.
func (s *Store[T]) promote(n *tree.Node[T], syn Syntax) (*ast.MappingNode, error) {
	switch e := entryOf(syn).(type) {
	case mappingEntry:
		return e.node, nil
	case scalarEntry:
		c := syn.(*ChildNode)
		seq, i, err := s.locate(n, c)
		if err != nil {
			return nil, err
		}
		m, err := newMapping(yaml.MapSlice{{Key: n.TextKey(), Value: ""}})
		if err != nil {
			return nil, err
		}
		if err := m.Values[0].Replace(e.node); err != nil {
			return nil, err
		}
		seqSet(seq, i, m)
		c.value = m
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnbound, n)
}

// synthesize encodes n as a new mapping. Children that are still bound
// keep their entries, which now belong to f. s.mu is held.
func (s *Store[T]) synthesize(n *tree.Node[T], f *FileNode) (*ast.MappingNode, error) {
	items := yaml.MapSlice{{Key: n.TextKey(), Value: n.Text()}}
	for _, k := range n.Keys() {
		if k == n.TextKey() || Reserved(k) {
			continue
		}
		v, _ := n.Get(k)
		items = append(items, yaml.MapItem{Key: k, Value: v})
	}
	m, err := newMapping(items)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", n, err)
	}
	if n.Len() == 0 {
		return m, nil
	}
	mv, err := newSeqKeyValue(ChildrenKey, keyColumn(m))
	if err != nil {
		return nil, err
	}
	m.Values = append(m.Values, mv)
	seq := mv.Value.(*ast.SequenceNode)
	for i, c := range n.Children() {
		var it item
		switch syn := s.bindings[c].(type) {
		case *ChildNode:
			s.repoint(c, syn, f)
			it.value = syn.value
		case *FileNode:
			it.value = syn.marker
		default:
			cm, err := s.synthesize(c, f)
			if err != nil {
				return nil, err
			}
			s.bindings[c] = &ChildNode{file: f, value: cm}
			it.value = cm
		}
		if err := seqInsert(seq, i, it); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// repoint moves the inline subtree of n to f. s.mu is held.
func (s *Store[T]) repoint(n *tree.Node[T], c *ChildNode, f *FileNode) {
	c.file = f
	for _, child := range n.Children() {
		if cc, ok := s.bindings[child].(*ChildNode); ok {
			s.repoint(child, cc, f)
		}
	}
}

// registerFiles lists the included files below n again. s.mu is held.
func (s *Store[T]) registerFiles(n *tree.Node[T]) {
	n.Walk(func(x *tree.Node[T]) bool {
		if f, ok := s.bindings[x].(*FileNode); ok && !slices.Contains(s.files, f) {
			s.files = append(s.files, f)
		}
		return true
	})
}

// dropFiles unlists the files included at or below n. s.mu is held.
func (s *Store[T]) dropFiles(n *tree.Node[T], syn Syntax) {
	drop := map[*FileNode]bool{}
	if f, ok := syn.(*FileNode); ok {
		drop[f] = true
	}
	for _, c := range n.Children() {
		c.Walk(func(x *tree.Node[T]) bool {
			if f, ok := s.bindings[x].(*FileNode); ok {
				drop[f] = true
			}
			return true
		})
	}
	s.files = slices.DeleteFunc(s.files, func(f *FileNode) bool {
		return drop[f]
	})
}

// inTree reports whether n belongs to the loaded tree. s.mu is held.
func (s *Store[T]) inTree(n *tree.Node[T]) bool {
	return n != nil && s.root != nil && n.Root() == s.root
}
