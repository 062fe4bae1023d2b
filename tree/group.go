package tree

import (
	"context"
	"sync/atomic"
)

type groupKey struct{}

var groupSeq atomic.Uint64

// Batch returns ctx carrying a change group id, allocating one unless ctx
// already has a group. Mutations sharing a group are one logical change,
// for example one undo step.
func Batch(ctx context.Context) context.Context {
	if _, ok := GroupFrom(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, groupKey{}, groupSeq.Add(1))
}

func GroupFrom(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	g, ok := ctx.Value(groupKey{}).(uint64)
	return g, ok
}
