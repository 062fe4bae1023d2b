// Package patch edits node properties with JSON merge patches (RFC 7386)
// and JSON patches (RFC 6902).
package patch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"

	"github.com/signadot/paperplane/tree"
)

var ErrPatch = errors.New("bad patch")

// Merge applies a JSON merge patch to the properties of n. Keys set to
// null are deleted.
func Merge[T any](ctx context.Context, n *tree.Node[T], patch []byte) error {
	return apply(ctx, n, func(doc []byte) ([]byte, error) {
		return jsonpatch.MergePatch(doc, patch)
	})
}

// Apply applies a JSON patch document to the properties of n.
func Apply[T any](ctx context.Context, n *tree.Node[T], patch []byte) error {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPatch, err)
	}
	return apply(ctx, n, ops.Apply)
}

// apply runs f on the JSON form of n's properties and updates the keys
// that changed, as one change group.
func apply[T any](ctx context.Context, n *tree.Node[T], f func([]byte) ([]byte, error)) error {
	old := n.Data()
	doc, err := yaml.MarshalWithOptions(old, yaml.JSON())
	if err != nil {
		return err
	}
	out, err := f(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPatch, err)
	}
	var res map[string]any
	if err := yaml.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("%w: result is not an object: %w", ErrPatch, err)
	}
	ctx = tree.Batch(ctx)
	keys := map[string]bool{}
	for k := range res {
		keys[k] = true
	}
	for k := range old {
		keys[k] = true
	}
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		v, ok := res[k]
		if !ok {
			v = tree.Absent
		} else if ov, had := old[k]; had && same(ov, v) {
			continue
		}
		if err := n.UpdateProperty(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// same reports whether a and b encode to the same JSON, so that numbers
// decoded with different Go types compare equal.
func same(a, b any) bool {
	x, err := yaml.MarshalWithOptions(a, yaml.JSON())
	if err != nil {
		return false
	}
	y, err := yaml.MarshalWithOptions(b, yaml.JSON())
	return err == nil && string(x) == string(y)
}
