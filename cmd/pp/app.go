package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/signadot/paperplane/changes"
	"github.com/signadot/paperplane/docfs"
	"github.com/signadot/paperplane/history"
	"github.com/signadot/paperplane/plaintext"
	"github.com/signadot/paperplane/render"
	"github.com/signadot/paperplane/settings"
	"github.com/signadot/paperplane/tree"
	"github.com/signadot/paperplane/yamlstore"
)

// Ext is the per-node state of the command line outliner. It has none.
type Ext struct{}

type node = tree.Node[Ext]

// app is an opened document directory with every observer attached.
type app struct {
	cfg      *MainConfig
	fs       *docfs.Dir
	settings *settings.Notifier
	history  *history.History[Ext]
	text     *plaintext.Cache[Ext]
	queue    *changes.Queue[Ext]
	store    *yamlstore.Store[Ext]
	colors   *render.Colors
	file     string
	newIDs   bool
}

func openApp(ctx context.Context, cfg *MainConfig, w io.Writer) (*app, error) {
	fsys := docfs.NewDir(cfg.Dir)
	st, err := settings.Load(ctx, fsys)
	if err != nil {
		return nil, err
	}
	s := st.Get()
	a := &app{
		cfg:      cfg,
		fs:       fsys,
		settings: st,
		history:  history.New[Ext](history.WithSize(s.HistorySize), history.WithLogger(theLog)),
		queue:    changes.New[Ext](),
		colors:   cfg.colors(w),
		file:     cfg.File,
	}
	obs := tree.NewObservers[Ext](a.history, a.queue)
	if s.CachePlainText {
		a.text = plaintext.New[Ext]()
		obs.Add(a.text)
	}
	throttle, ok := s.Throttle()
	if !ok {
		throttle = yamlstore.Manual
	}
	a.store = yamlstore.New(fsys, obs, yamlstore.WithThrottle(throttle), yamlstore.WithLogger(theLog))
	st.ListenAll(a.settingsChanged)
	if a.file == "" {
		a.file = s.DefaultDocument
	}
	return a, nil
}

func (a *app) settingsChanged(s settings.Settings) {
	a.history.SetSize(s.HistorySize)
	if d, ok := s.Throttle(); ok {
		a.store.SetThrottle(d)
	} else {
		a.store.SetThrottle(yamlstore.Manual)
	}
}

// load opens name, or the current file when name is empty.
func (a *app) load(ctx context.Context, name string) error {
	if name != "" {
		a.file = name
	}
	if err := a.store.Load(ctx, a.file); err != nil {
		if errors.Is(err, yamlstore.ErrParse) {
			return fmt.Errorf("%s:\n%s", a.file, yaml.FormatError(err, a.colors != nil, true))
		}
		return err
	}
	a.queue.Drain()
	return nil
}

func (a *app) root() (*node, error) {
	root := a.store.Root()
	if root == nil {
		return nil, yamlstore.ErrNotLoaded
	}
	return root, nil
}

func (a *app) resolve(path string) (*node, error) {
	root, err := a.root()
	if err != nil {
		return nil, err
	}
	return root.Resolve(path)
}

func (a *app) renderOpts() []render.Option {
	opts := []render.Option{
		render.WithColors(a.colors),
		render.WithData(a.cfg.Data),
		render.WithPaths(a.cfg.Paths),
		render.WithDepth(a.cfg.Depth),
	}
	if a.cfg.Files {
		opts = append(opts, render.WithFiles(a.fileOf))
	}
	return opts
}

// fileOf names the file a node was included from.
func (a *app) fileOf(n *node) (string, bool) {
	syn, ok := a.store.Syntax(n)
	if !ok {
		return "", false
	}
	f, ok := syn.(*yamlstore.FileNode)
	if !ok || !f.Included() {
		return "", false
	}
	return f.Filename, true
}

// search finds nodes by plain text, using the cache when it is enabled.
func (a *app) search(root *node, query string) []*node {
	if a.text != nil {
		return a.text.Search(root, query)
	}
	c := plaintext.New[Ext]()
	c.Inserted(context.Background(), root)
	return c.Search(root, query)
}

// diff writes the pending changes of every dirty file.
func (a *app) diff(w io.Writer) error {
	for _, p := range a.store.Pending() {
		if err := render.Diff(w, p.Name, p.Old, p.New, a.colors); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	a.store.Close()
}
