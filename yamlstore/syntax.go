package yamlstore

import (
	"github.com/goccy/go-yaml/ast"
)

// Syntax ties a tree node to the YAML it was read from or will be written
// to. It is either a *FileNode or a *ChildNode.
type Syntax interface {
	// File is the file whose text holds the node's properties.
	File() *FileNode
	// SeqValue is the value standing for the node in its parent's
	// sequence.
	SeqValue() ast.Node

	sealed()
}

// FileNode is a node that is the root of its own document: the top-level
// file, or a file pulled in by an include marker.
//
// Fields are guarded by the owning store.
type FileNode struct {
	Filename string
	// Contents is the text last read from or written to Filename.
	Contents string
	Dirty    bool

	doc    *ast.File
	marker ast.Node
}

func (f *FileNode) File() *FileNode {
	return f
}

// SeqValue returns the include marker in the including file, or nil for
// the top-level file.
func (f *FileNode) SeqValue() ast.Node {
	return f.marker
}

func (f *FileNode) sealed() {}

// Included reports whether f was pulled in by an include marker.
func (f *FileNode) Included() bool {
	return f.marker != nil
}

// Doc returns the parsed document.
func (f *FileNode) Doc() *ast.File {
	return f.doc
}

func (f *FileNode) body() *ast.MappingNode {
	m, _ := unwrap(f.doc.Docs[0].Body).(*ast.MappingNode)
	return m
}

func (f *FileNode) setBody(m *ast.MappingNode) {
	f.doc.Docs[0].Body = rewrap(f.doc.Docs[0].Body, m)
}

// ChildNode is an entry of a sequence in some file.
type ChildNode struct {
	file  *FileNode
	value ast.Node
}

func (c *ChildNode) File() *FileNode {
	return c.file
}

func (c *ChildNode) SeqValue() ast.Node {
	return c.value
}

func (c *ChildNode) sealed() {}

// entry is the shape of a sequence entry: a scalar or a mapping.
type entry interface {
	isEntry()
}

type scalarEntry struct {
	node ast.Node
}

type mappingEntry struct {
	node *ast.MappingNode
}

func (scalarEntry) isEntry()  {}
func (mappingEntry) isEntry() {}

func entryOf(syn Syntax) entry {
	switch x := syn.(type) {
	case *FileNode:
		return mappingEntry{node: x.body()}
	case *ChildNode:
		if m, ok := unwrap(x.value).(*ast.MappingNode); ok {
			return mappingEntry{node: m}
		}
		return scalarEntry{node: x.value}
	}
	return nil
}

// mappingOf returns the mapping holding the properties of syn, or nil for
// a scalar entry.
func mappingOf(syn Syntax) *ast.MappingNode {
	if m, ok := entryOf(syn).(mappingEntry); ok {
		return m.node
	}
	return nil
}
