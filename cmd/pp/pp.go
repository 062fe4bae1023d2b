package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"

	"github.com/signadot/paperplane/docfs"
	"github.com/signadot/paperplane/settings"
	"github.com/signadot/paperplane/yamlstore"
)

func ppMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

// runOp loads the document, runs o and saves, or with -n shows what
// saving would write.
func runOp(cfg *OpConfig, o *op, cc *cli.Context, args []string) error {
	args, err := cfg.Op.Parse(cc, args)
	if err != nil {
		return err
	}
	if err := o.check(args); err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	ctx := context.Background()
	a, err := openApp(ctx, cfg.MainConfig, cc.Out)
	if err != nil {
		return err
	}
	defer a.close()
	a.store.SetThrottle(yamlstore.Manual)
	a.newIDs = cfg.ID
	if err := a.load(ctx, ""); err != nil {
		return err
	}
	if err := o.run(ctx, a, cc.Out, args); err != nil {
		return err
	}
	if !o.mutates {
		return nil
	}
	if cfg.DryRun {
		return a.diff(cc.Out)
	}
	return a.store.Save(ctx)
}

func newDoc(cfg *NewConfig, cc *cli.Context, args []string) error {
	args, err := cfg.New.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: new requires a document name", cli.ErrUsage)
	}
	name := args[0]
	if path.Ext(name) != docfs.Ext {
		name += docfs.Ext
	}
	if err := docfs.NewDir(cfg.Dir).Create(context.Background(), name, ""); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cc.Out, name)
	return err
}

func settingsCmd(cfg *SettingsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Settings.Parse(cc, args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	fsys := docfs.NewDir(cfg.Dir)
	st, err := settings.Load(ctx, fsys)
	if err != nil {
		return err
	}
	switch len(args) {
	case 0:
		d, err := yaml.Marshal(st.Get())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cc.Out, string(d))
		return err
	case 2:
		if err := st.Set(settings.Field(args[0]), args[1]); err != nil {
			if errors.Is(err, settings.ErrUnknownField) {
				return fmt.Errorf("%w: %w", cli.ErrUsage, err)
			}
			return err
		}
		return st.Save(ctx, fsys)
	default:
		return fmt.Errorf("%w: settings takes no arguments or a field and a value", cli.ErrUsage)
	}
}

// fields splits an editor line into arguments. Single and double quotes
// group words; a backslash escapes the next character.
func fields(line string) ([]string, error) {
	var (
		res   []string
		b     strings.Builder
		quote rune
		in    bool
		esc   bool
	)
	for _, r := range line {
		switch {
		case esc:
			b.WriteRune(r)
			esc = false
		case r == '\\' && quote != '\'':
			esc, in = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				b.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, in = r, true
		case r == ' ' || r == '\t':
			if in {
				res = append(res, b.String())
				b.Reset()
				in = false
			}
		default:
			b.WriteRune(r)
			in = true
		}
	}
	if quote != 0 || esc {
		return nil, fmt.Errorf("%w: unterminated quote", errArgs)
	}
	if in {
		res = append(res, b.String())
	}
	return res, nil
}
