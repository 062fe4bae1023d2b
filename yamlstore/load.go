package yamlstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/signadot/paperplane/debug"
	"github.com/signadot/paperplane/tree"
)

const (
	// IncludeKey marks an entry replaced by the top-level mapping of
	// another file.
	IncludeKey = "__include__"
	// ChildrenKey is the key new child sequences are written under.
	ChildrenKey = "children"
)

var (
	topKeys   = []string{"items", "notes"}
	childKeys = []string{"notes", "items", "children"}
	textKeys  = []string{"text", "note"}
)

// Reserved reports whether key is managed by the store rather than being a
// node property.
func Reserved(key string) bool {
	return key == IncludeKey || slices.Contains(childKeys, key)
}

func pos(n ast.Node) string {
	tk := n.GetToken()
	if tk == nil || tk.Position == nil {
		return "?"
	}
	return fmt.Sprintf("%d:%d", tk.Position.Line, tk.Position.Column)
}

// Load replaces the store's tree with the one described by filename and
// the files it includes. On error the store has no tree.
func (s *Store[T]) Load(ctx context.Context, filename string) error {
	s.mu.Lock()
	s.stopTimer()
	s.root = nil
	s.files = nil
	s.bindings = map[*tree.Node[T]]Syntax{}
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if err := s.observers.Notify(func(o tree.Observer[T]) error {
		return o.Loading(ctx)
	}); err != nil {
		return err
	}
	root, err := s.load(ctx, filename)
	if err != nil {
		s.mu.Lock()
		s.files = nil
		s.bindings = map[*tree.Node[T]]Syntax{}
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return s.observers.Notify(func(o tree.Observer[T]) error {
		return o.Loaded(ctx)
	})
}

func (s *Store[T]) load(ctx context.Context, filename string) (*tree.Node[T], error) {
	f, err := s.readFile(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	seq, err := s.sequence(f, f.body(), topKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoItems, err)
	}
	if seq == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoItems, filename)
	}
	s.register(f)
	root := tree.NewRoot(s.observers)
	s.bind(root, f)
	if err := root.Insert(ctx, nil, 0); err != nil {
		return nil, err
	}
	if err := s.visit(ctx, root, f, seq, []string{filename}); err != nil {
		return nil, err
	}
	return root, nil
}

// readFile reads and parses name. marker is the include entry naming it,
// nil for the top-level file.
func (s *Store[T]) readFile(ctx context.Context, name string, marker ast.Node) (*FileNode, error) {
	contents, err := s.fs.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	doc, err := parser.ParseBytes([]byte(contents), parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, name, err)
	}
	doc.Name = name
	if len(doc.Docs) == 0 || doc.Docs[0].Body == nil {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotMapping, name)
	}
	m, ok := unwrap(doc.Docs[0].Body).(*ast.MappingNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %s", ErrNotMapping, name, doc.Docs[0].Body.Type())
	}
	f := &FileNode{Filename: name, Contents: contents, doc: doc, marker: marker}
	if bm, err := blockMapping(m, 1); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	} else if bm != m {
		f.setBody(bm)
	}
	if debug.Load() {
		debug.Logf("load: read %s (%d bytes)\n", name, len(contents))
	}
	return f, nil
}

// sequence finds the first of keys in m holding the entries below it, in
// block style. It returns nil when none of the keys is present or the
// value is null.
func (s *Store[T]) sequence(f *FileNode, m *ast.MappingNode, keys []string) (*ast.SequenceNode, error) {
	for _, k := range keys {
		_, mv := lookup(m, k)
		if mv == nil {
			continue
		}
		switch v := unwrap(mv.Value).(type) {
		case *ast.SequenceNode:
			bs, err := blockSeq(v, mv.Key.GetToken().Position.Column)
			if err != nil {
				return nil, fmt.Errorf("%w: %s:%s: %w", ErrMalformed, f.Filename, pos(mv), err)
			}
			if bs != v {
				mv.Value = rewrap(mv.Value, bs)
			}
			return bs, nil
		case *ast.NullNode:
			continue
		default:
			return nil, fmt.Errorf("%w: %s:%s: %s is not a sequence", ErrMalformed, f.Filename, pos(mv), k)
		}
	}
	return nil, nil
}

func (s *Store[T]) visit(ctx context.Context, parent *tree.Node[T], f *FileNode, seq *ast.SequenceNode, chain []string) error {
	for i := range seq.Values {
		raw := seq.Values[i]
		switch v := unwrap(raw).(type) {
		case *ast.MappingNode:
			if _, mv := lookup(v, IncludeKey); mv != nil {
				if err := s.include(ctx, parent, i, raw, mv, f, chain); err != nil {
					return err
				}
				continue
			}
			m, err := blockMapping(v, keyColumn(v))
			if err != nil {
				return fmt.Errorf("%w: %s:%s: %w", ErrMalformed, f.Filename, pos(v), err)
			}
			if m != v {
				raw = rewrap(raw, m)
				seqSet(seq, i, raw)
			}
			if err := s.mapping(ctx, parent, i, m, &ChildNode{file: f, value: raw}, chain); err != nil {
				return err
			}
		case *ast.StringNode, *ast.LiteralNode:
			text, _ := scalarText(v)
			syn := &ChildNode{file: f, value: raw}
			if _, err := parent.CreateChild(ctx, i, text, nil, func(c *tree.Node[T]) {
				s.bind(c, syn)
			}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s:%s: entry is a %s", ErrMalformed, f.Filename, pos(raw), v.Type())
		}
	}
	return nil
}

// mapping creates the node for a mapping entry and visits its children.
func (s *Store[T]) mapping(ctx context.Context, parent *tree.Node[T], i int, m *ast.MappingNode, syn Syntax, chain []string) error {
	f := syn.File()
	textKey, text, err := entryText(m)
	if err != nil {
		return fmt.Errorf("%w: %s:%s", err, f.Filename, pos(m))
	}
	data, err := entryData(m)
	if err != nil {
		return fmt.Errorf("%w: %s:%s", err, f.Filename, pos(m))
	}
	c, err := parent.CreateChild(ctx, i, text, data, func(c *tree.Node[T]) {
		c.SetTextKey(textKey)
		s.bind(c, syn)
	})
	if err != nil {
		return err
	}
	seq, err := s.sequence(f, m, childKeys)
	if err != nil || seq == nil {
		return err
	}
	return s.visit(ctx, c, f, seq, chain)
}

func (s *Store[T]) include(ctx context.Context, parent *tree.Node[T], i int, marker ast.Node, mv *ast.MappingValueNode, f *FileNode, chain []string) error {
	name, ok := scalarText(mv.Value)
	if !ok || name == "" {
		return fmt.Errorf("%w: %s:%s: %s needs a file name", ErrMalformed, f.Filename, pos(mv), IncludeKey)
	}
	if slices.Contains(chain, name) {
		return fmt.Errorf("%w: %s includes %s", ErrIncludeCycle, f.Filename, name)
	}
	if s.hasFile(name) {
		return fmt.Errorf("%w: %s:%s: %s", ErrDuplicateInclude, f.Filename, pos(mv), name)
	}
	inc, err := s.readFile(ctx, name, marker)
	if err != nil {
		return err
	}
	s.register(inc)
	return s.mapping(ctx, parent, i, inc.body(), inc, append(slices.Clone(chain), name))
}

func entryText(m *ast.MappingNode) (string, string, error) {
	for _, k := range textKeys {
		_, mv := lookup(m, k)
		if mv == nil {
			continue
		}
		text, ok := anyScalarText(mv.Value)
		if !ok {
			return "", "", fmt.Errorf("%w: %s is not a scalar", ErrMalformed, k)
		}
		return k, text, nil
	}
	return "", "", ErrMissingText
}

func entryData(m *ast.MappingNode) (map[string]any, error) {
	data := make(map[string]any, len(m.Values))
	for _, mv := range m.Values {
		k := keyOf(mv)
		if Reserved(k) {
			continue
		}
		var v any
		if err := yaml.NodeToValue(mv.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, k, err)
		}
		data[k] = v
	}
	return data, nil
}

func (s *Store[T]) bind(n *tree.Node[T], syn Syntax) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[n] = syn
}

func (s *Store[T]) register(f *FileNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
}

func (s *Store[T]) hasFile(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.files, func(f *FileNode) bool {
		return f.Filename == name
	})
}
