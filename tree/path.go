package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// IDKey is the property giving a node a stable path segment.
const IDKey = "id"

// ComputePath returns a routable path for n: "/" for the root, "/<id>"
// when n has a string or numeric id property, otherwise the parent's path
// followed by n's index.
func (n *Node[T]) ComputePath() string {
	if n.parent == nil {
		return "/"
	}
	if id, ok := n.pathID(); ok {
		return "/" + id
	}
	return strings.TrimSuffix(n.parent.ComputePath(), "/") + "/" + strconv.Itoa(n.Index())
}

func (n *Node[T]) pathID() (string, bool) {
	v, ok := n.data[IDKey]
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		if x == "" || strings.Contains(x, "/") {
			return "", false
		}
		return x, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Resolve finds the node addressed by path within the tree of n. The first
// segment may name an id anywhere in the tree; other segments are child
// indices.
func (n *Node[T]) Resolve(path string) (*Node[T], error) {
	root := n.Root()
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("%w: %q should start with '/'", ErrBadPath, path)
	}
	if path == "/" {
		return root, nil
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := root
	for i, seg := range segs {
		if i == 0 {
			if byID := root.FindID(seg); byID != nil {
				cur = byID
				continue
			}
		}
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q of %q", ErrNotFound, seg, path)
		}
		next := cur.Child(idx)
		if next == nil {
			return nil, fmt.Errorf("%w: %q has no child %d", ErrNotFound, cur.ComputePath(), idx)
		}
		cur = next
	}
	return cur, nil
}

// FindID returns the first node in pre-order whose id property renders as
// id.
func (n *Node[T]) FindID(id string) *Node[T] {
	var res *Node[T]
	n.Walk(func(x *Node[T]) bool {
		if xid, ok := x.pathID(); ok && xid == id && x.parent != nil {
			res = x
			return false
		}
		return true
	})
	return res
}
