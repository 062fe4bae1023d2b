package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/signadot/paperplane/render"
)

func edit(cfg *EditConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Edit.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: edit takes at most one file", cli.ErrUsage)
	}
	ctx := context.Background()
	a, err := openApp(ctx, cfg.MainConfig, cc.Out)
	if err != nil {
		return err
	}
	defer a.close()
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	if err := a.load(ctx, name); err != nil {
		return err
	}
	return a.repl(ctx, cc.In, cc.Out)
}

type session struct {
	canUndo, canRedo bool
}

func (s *session) prompt(a *app) string {
	var b strings.Builder
	b.WriteString(a.file)
	if len(a.store.Pending()) != 0 {
		b.WriteString("*")
	}
	if s.canUndo {
		b.WriteString(" u")
	}
	if s.canRedo {
		b.WriteString(" r")
	}
	return a.colors.Color(render.PathColor, b.String()) + "> "
}

// repl runs editor lines from r until quit or end of input.
func (a *app) repl(ctx context.Context, r io.Reader, w io.Writer) error {
	s := &session{}
	a.history.OnChange(func(undo, redo bool) {
		s.canUndo, s.canRedo = undo, redo
	})
	sc := bufio.NewScanner(r)
	fmt.Fprint(w, s.prompt(a))
	for sc.Scan() {
		quit, err := a.line(ctx, w, sc.Text())
		if err != nil {
			theLog.Error(err.Error())
		}
		if quit {
			return nil
		}
		fmt.Fprint(w, s.prompt(a))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if pending := a.store.Pending(); len(pending) != 0 {
		theLog.Warn("discarding unsaved changes", "files", len(pending))
	}
	return nil
}

var errUnsaved = errors.New("unsaved changes: save, or quit! to discard them")

func (a *app) line(ctx context.Context, w io.Writer, line string) (bool, error) {
	args, err := fields(line)
	if err != nil || len(args) == 0 {
		return false, err
	}
	switch args[0] {
	case "quit", "q", "exit":
		if len(a.store.Pending()) != 0 {
			return false, errUnsaved
		}
		return true, nil
	case "quit!", "q!":
		return true, nil
	case "help", "?":
		return false, help(w)
	}
	o := findOp(args[0])
	if o == nil {
		return false, fmt.Errorf("%w: %q", cli.ErrNoSuchCommand, args[0])
	}
	if err := o.check(args[1:]); err != nil {
		return false, err
	}
	return false, o.run(ctx, a, w, args[1:])
}

func help(w io.Writer) error {
	for _, o := range ops {
		if _, err := fmt.Fprintf(w, "  %-40s %s\n", o.synopsis, o.desc); err != nil {
			return err
		}
	}
	return nil
}
