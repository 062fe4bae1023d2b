package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/signadot/paperplane/render"
)

type MainConfig struct {
	Dir   string `cli:"name=C desc='document directory' default=."`
	File  string `cli:"name=f desc='document to open (default from settings)'"`
	Color bool   `cli:"name=color desc='color output'"`

	Data  bool `cli:"name=d aliases=data desc='show node properties'"`
	Paths bool `cli:"name=p aliases=paths desc='show node paths'"`
	Depth int  `cli:"name=depth desc='max depth shown, -1 for all' default=-1"`
	Files bool `cli:"name=files desc='mark included files'"`

	Main *cli.Command
}

// colors decides whether output to w is colored: -color when given,
// otherwise whether w is a terminal.
func (cfg *MainConfig) colors(w io.Writer) *render.Colors {
	colorSet := false
	if cfg.Main != nil {
		for _, opt := range cfg.Main.Opts {
			if opt.Name == "color" {
				colorSet = opt.Value != nil
				break
			}
		}
	}
	if colorSet {
		if !cfg.Color {
			return nil
		}
		color.NoColor = false
		return render.NewColors()
	}
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return render.NewColors()
}

type OpConfig struct {
	*MainConfig
	DryRun bool `cli:"name=n desc='print the changes instead of saving them'"`
	ID     bool `cli:"name=id desc='give created nodes a unique id'"`

	Op *cli.Command
}

type NewConfig struct {
	*MainConfig
	New *cli.Command
}

type EditConfig struct {
	*MainConfig
	Edit *cli.Command
}

type WatchConfig struct {
	*MainConfig
	Quiet bool `cli:"name=q desc='only report changes'"`
	Watch *cli.Command
}

type SettingsConfig struct {
	*MainConfig
	Settings *cli.Command
}
