package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{Dir: ".", Depth: -1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	subs := []*cli.Command{}
	for _, o := range ops {
		if o.session {
			continue
		}
		subs = append(subs, OpCommand(cfg, o))
	}
	subs = append(subs,
		NewCommand(cfg),
		EditCommand(cfg),
		WatchCommand(cfg),
		SettingsCommand(cfg))

	return cli.NewCommandAt(&cfg.Main, "pp").
		WithSynopsis("pp [opts] command [opts]").
		WithDescription("pp is an outliner working on YAML documents.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return ppMain(cfg, cc, args)
		}).
		WithSubs(subs...)
}

func OpCommand(mainCfg *MainConfig, o *op) *cli.Command {
	cfg := &OpConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Op, o.name).
		WithAliases(o.aliases...).
		WithSynopsis(o.synopsis).
		WithDescription(o.desc).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runOp(cfg, o, cc, args)
		})
}

func NewCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &NewConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.New, "new").
		WithAliases("n").
		WithSynopsis("new <name>").
		WithDescription("create a document with a single entry").
		WithRun(func(cc *cli.Context, args []string) error {
			return newDoc(cfg, cc, args)
		})
}

func EditCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EditConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Edit, "edit").
		WithSynopsis("edit [file]").
		WithDescription(editDescription).
		WithRun(func(cc *cli.Context, args []string) error {
			return edit(cfg, cc, args)
		})
}

const editDescription = `edit reads outline operations from standard input, one per line.

Arguments are separated by spaces and may be quoted with ' or ".  Besides
the sub-commands of pp taking a path, the editor knows

  undo, redo      step through the history
  diff            show what a save would write
  save            write the dirty files
  changes         print and clear the change queue
  open <file>     open another document
  set-setting     change a setting for the session
  help            list operations
  quit            leave, refusing when there are unsaved changes
  quit!           leave, discarding unsaved changes`

func WatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &WatchConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Watch, "watch").
		WithSynopsis("watch [-q] [file]").
		WithDescription("show a document again whenever one of its files changes").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return watch(cfg, cc, args)
		})
}

func SettingsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SettingsConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Settings, "settings").
		WithSynopsis("settings [field value]").
		WithDescription("show settings, or change and save one").
		WithRun(func(cc *cli.Context, args []string) error {
			return settingsCmd(cfg, cc, args)
		})
}
