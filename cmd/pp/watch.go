package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/scott-cotton/cli"

	"github.com/signadot/paperplane/docfs"
	"github.com/signadot/paperplane/render"
	"github.com/signadot/paperplane/yamlstore"
)

func watch(cfg *WatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Watch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: watch takes at most one file", cli.ErrUsage)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	a, err := openApp(ctx, cfg.MainConfig, cc.Out)
	if err != nil {
		return err
	}
	defer a.close()
	a.store.SetThrottle(yamlstore.Manual)
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	if err := a.load(ctx, name); err != nil {
		return err
	}
	show := func() {
		if cfg.Quiet {
			return
		}
		root, err := a.root()
		if err != nil {
			return
		}
		if err := render.Render(cc.Out, root, a.renderOpts()...); err != nil {
			theLog.Error("render", "error", err)
		}
	}
	show()
	return a.fs.Watch(ctx, docfs.DefaultDelay, func(c docfs.Change) {
		if !a.watching(c.Name) {
			return
		}
		theLog.Info("changed", "file", c.Name, "op", c.Op.String())
		if err := a.load(ctx, ""); err != nil {
			theLog.Error("reload", "file", a.file, "error", err)
			return
		}
		fmt.Fprintln(cc.Out)
		show()
	})
}

// watching reports whether name is part of the open document. After a
// failed load every change is worth a retry.
func (a *app) watching(name string) bool {
	files := a.store.Files()
	if len(files) == 0 {
		return true
	}
	return slices.ContainsFunc(files, func(f yamlstore.FileState) bool {
		return f.Name == name
	})
}
