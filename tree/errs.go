package tree

import "errors"

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrAttached        = errors.New("node already attached")
	ErrRoot            = errors.New("operation not valid on a root or detached node")
	ErrCycle           = errors.New("node cannot be moved under itself")
	ErrNotFound        = errors.New("node not found")
	ErrBadPath         = errors.New("bad path")
)
