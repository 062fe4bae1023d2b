package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/oklog/ulid/v2"

	"github.com/signadot/paperplane/patch"
	"github.com/signadot/paperplane/query"
	"github.com/signadot/paperplane/render"
	"github.com/signadot/paperplane/settings"
	"github.com/signadot/paperplane/tree"
)

var errArgs = errors.New("bad arguments")

// op is an outline operation, available as a sub-command and inside the
// editor.
type op struct {
	name     string
	aliases  []string
	synopsis string
	desc     string
	min, max int // argument counts, max < 0 for any
	// mutates ops save when run as a sub-command.
	mutates bool
	// session ops only make sense inside the editor.
	session bool
	run     func(ctx context.Context, a *app, w io.Writer, args []string) error
}

func (o *op) check(args []string) error {
	if len(args) < o.min || (o.max >= 0 && len(args) > o.max) {
		return fmt.Errorf("%w: usage: %s", errArgs, o.synopsis)
	}
	return nil
}

var ops []*op

func init() {
	ops = []*op{
		{name: "view", aliases: []string{"v", "ls"}, synopsis: "view [path]", desc: "show the outline below path",
			max: 1, run: opView},
		{name: "add", aliases: []string{"a"}, synopsis: "add <parent> <text> [key=value...]", desc: "append a child to parent",
			min: 2, max: -1, mutates: true, run: opAdd},
		{name: "insert", aliases: []string{"i"}, synopsis: "insert <path> <text> [key=value...]", desc: "insert a node before path",
			min: 2, max: -1, mutates: true, run: opInsert},
		{name: "text", aliases: []string{"t"}, synopsis: "text <path> <text>", desc: "set the text of a node",
			min: 2, max: 2, mutates: true, run: opText},
		{name: "set", synopsis: "set <path> key=value...", desc: "set properties, values are YAML",
			min: 2, max: -1, mutates: true, run: opSet},
		{name: "unset", synopsis: "unset <path> key...", desc: "delete properties",
			min: 2, max: -1, mutates: true, run: opUnset},
		{name: "merge", synopsis: "merge <path> <json>", desc: "apply a JSON merge patch to the properties of a node",
			min: 2, max: 2, mutates: true, run: opMerge},
		{name: "patch", synopsis: "patch <path> <json>", desc: "apply a JSON patch to the properties of a node",
			min: 2, max: 2, mutates: true, run: opPatch},
		{name: "rm", aliases: []string{"remove"}, synopsis: "rm <path>...", desc: "remove nodes and their children",
			min: 1, max: -1, mutates: true, run: opRemove},
		{name: "mv", aliases: []string{"move"}, synopsis: "mv <path> <parent> [index]", desc: "move a node, to the end of parent by default",
			min: 2, max: 3, mutates: true, run: opMove},
		{name: "indent", aliases: []string{">"}, synopsis: "indent <path>", desc: "make a node the last child of its previous sibling",
			min: 1, max: 1, mutates: true, run: opIndent},
		{name: "outdent", aliases: []string{"<"}, synopsis: "outdent <path>", desc: "make a node the sibling after its parent",
			min: 1, max: 1, mutates: true, run: opOutdent},
		{name: "find", aliases: []string{"f"}, synopsis: "find <expr>", desc: "list nodes for which expr is true",
			min: 1, max: -1, run: opFind},
		{name: "search", aliases: []string{"s", "/"}, synopsis: "search <words...>", desc: "list nodes whose plain text has all words",
			min: 1, max: -1, run: opSearch},
		{name: "files", synopsis: "files", desc: "list the files of the open document",
			run: opFiles},
		{name: "docs", synopsis: "docs", desc: "list the documents in the directory",
			run: opDocs},
		{name: "undo", aliases: []string{"u"}, synopsis: "undo", desc: "undo the last change",
			session: true, run: opUndo},
		{name: "redo", aliases: []string{"r"}, synopsis: "redo", desc: "redo the last undone change",
			session: true, run: opRedo},
		{name: "diff", synopsis: "diff", desc: "show unsaved changes",
			session: true, run: opDiff},
		{name: "save", aliases: []string{"w"}, synopsis: "save", desc: "write unsaved changes",
			session: true, run: opSave},
		{name: "changes", synopsis: "changes", desc: "print and clear the change queue as JSON",
			session: true, run: opChanges},
		{name: "open", aliases: []string{"o", "e"}, synopsis: "open <file>", desc: "open another document",
			min: 1, max: 1, session: true, run: opOpen},
		{name: "set-setting", synopsis: "set-setting <field> <value>", desc: "change a setting for this session",
			min: 2, max: 2, session: true, run: opSetting},
	}
}

func findOp(name string) *op {
	for _, o := range ops {
		if o.name == name {
			return o
		}
		for _, alias := range o.aliases {
			if alias == name {
				return o
			}
		}
	}
	return nil
}

func opView(ctx context.Context, a *app, w io.Writer, args []string) error {
	path := "/"
	if len(args) == 1 {
		path = args[0]
	}
	n, err := a.resolve(path)
	if err != nil {
		return err
	}
	return render.Render(w, n, a.renderOpts()...)
}

// props parses key=value arguments. Values are YAML; anything that does
// not parse is taken as a string.
func props(args []string) (map[string]any, []string, error) {
	res := map[string]any{}
	var keys []string
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("%w: %q is not key=value", errArgs, arg)
		}
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		if _, dup := res[k]; !dup {
			keys = append(keys, k)
		}
		res[k] = val
	}
	return res, keys, nil
}

func (a *app) create(ctx context.Context, parent *node, index int, text string, args []string) error {
	data, _, err := props(args)
	if err != nil {
		return err
	}
	if a.newIDs {
		if _, ok := data[tree.IDKey]; !ok {
			data[tree.IDKey] = ulid.Make().String()
		}
	}
	_, err = parent.CreateChild(ctx, index, text, data, nil)
	return err
}

func opAdd(ctx context.Context, a *app, w io.Writer, args []string) error {
	parent, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	return a.create(ctx, parent, parent.Len(), args[1], args[2:])
}

func opInsert(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return fmt.Errorf("%w: cannot insert before the root", tree.ErrRoot)
	}
	return a.create(ctx, n.Parent(), n.Index(), args[1], args[2:])
}

func opText(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	return n.SetText(ctx, args[1])
}

func opSet(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	data, keys, err := props(args[1:])
	if err != nil {
		return err
	}
	ctx = tree.Batch(ctx)
	for _, k := range keys {
		if err := n.UpdateProperty(ctx, k, data[k]); err != nil {
			return err
		}
	}
	return nil
}

func opUnset(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	ctx = tree.Batch(ctx)
	for _, k := range args[1:] {
		if err := n.UpdateProperty(ctx, k, tree.Absent); err != nil {
			return err
		}
	}
	return nil
}

func opMerge(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	return patch.Merge(ctx, n, []byte(args[1]))
}

func opPatch(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	return patch.Apply(ctx, n, []byte(args[1]))
}

func opRemove(ctx context.Context, a *app, w io.Writer, args []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	// resolve everything first, removals shift indices
	nodes := make([]*node, len(args))
	for i, path := range args {
		n, err := a.resolve(path)
		if err != nil {
			return err
		}
		nodes[i] = n
	}
	ctx = tree.Batch(ctx)
	for _, n := range nodes {
		if n.IsRoot() || n.Root() != root {
			continue
		}
		if err := n.Remove(ctx); err != nil {
			return err
		}
	}
	return nil
}

func opMove(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	parent, err := a.resolve(args[1])
	if err != nil {
		return err
	}
	index := parent.Len()
	if parent == n.Parent() {
		index--
	}
	if len(args) == 3 {
		index, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: index %q", errArgs, args[2])
		}
	}
	return n.Move(ctx, parent, index)
}

func opIndent(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if !n.CanIncreaseDepth() {
		theLog.Warn("cannot indent", "path", args[0])
		return nil
	}
	return n.IncreaseDepth(ctx)
}

func opOutdent(ctx context.Context, a *app, w io.Writer, args []string) error {
	n, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if !n.CanDecreaseDepth() {
		theLog.Warn("cannot outdent", "path", args[0])
		return nil
	}
	return n.DecreaseDepth(ctx)
}

func (a *app) list(w io.Writer, nodes []*node) error {
	opts := append(a.renderOpts(), render.WithPaths(true))
	return render.List(w, nodes, opts...)
}

func opFind(ctx context.Context, a *app, w io.Writer, args []string) error {
	q, err := query.Compile(strings.Join(args, " "))
	if err != nil {
		return err
	}
	root, err := a.root()
	if err != nil {
		return err
	}
	nodes, err := query.Find(root, q)
	if err != nil {
		return err
	}
	return a.list(w, nodes)
}

func opSearch(ctx context.Context, a *app, w io.Writer, args []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	return a.list(w, a.search(root, strings.Join(args, " ")))
}

func opFiles(ctx context.Context, a *app, w io.Writer, args []string) error {
	for _, f := range a.store.Files() {
		mark := " "
		if f.Dirty {
			mark = "*"
		}
		name := f.Name
		if f.Included {
			name = a.colors.Color(render.FileColor, name)
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", mark, name); err != nil {
			return err
		}
	}
	return nil
}

func opDocs(ctx context.Context, a *app, w io.Writer, args []string) error {
	names, err := a.fs.Files(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func opUndo(ctx context.Context, a *app, w io.Writer, args []string) error {
	return a.history.Undo(ctx)
}

func opRedo(ctx context.Context, a *app, w io.Writer, args []string) error {
	return a.history.Redo(ctx)
}

func opDiff(ctx context.Context, a *app, w io.Writer, args []string) error {
	return a.diff(w)
}

func opSave(ctx context.Context, a *app, w io.Writer, args []string) error {
	return a.store.Save(ctx)
}

func opChanges(ctx context.Context, a *app, w io.Writer, args []string) error {
	for _, c := range a.queue.Drain() {
		d, err := yaml.MarshalWithOptions(c, yaml.JSON())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", strings.TrimSpace(string(d))); err != nil {
			return err
		}
	}
	return nil
}

func opOpen(ctx context.Context, a *app, w io.Writer, args []string) error {
	if pending := a.store.Pending(); len(pending) != 0 {
		return fmt.Errorf("%d unsaved file(s), save first", len(pending))
	}
	return a.load(ctx, args[0])
}

func opSetting(ctx context.Context, a *app, w io.Writer, args []string) error {
	return a.settings.Set(settings.Field(args[0]), args[1])
}
