package render

import (
	"strings"

	"github.com/fatih/color"
)

type Attr int

const (
	BulletColor Attr = iota
	TextColor
	NoteColor
	KeyColor
	ValueColor
	PathColor
	FileColor
	MatchColor
	AddedColor
	RemovedColor
)

type Colors struct {
	Default func(string, ...any) string
	Map     map[Attr]func(string, ...any) string
}

func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map: map[Attr]func(string, ...any) string{
			BulletColor:  color.RGB(255, 0, 196).SprintfFunc(),
			NoteColor:    color.RGB(88, 158, 86).SprintfFunc(),
			KeyColor:     color.RGB(128, 168, 196).SprintfFunc(),
			ValueColor:   color.RGB(128, 216, 236).SprintfFunc(),
			PathColor:    color.RGB(96, 96, 96).SprintfFunc(),
			FileColor:    color.BlueString,
			MatchColor:   color.New(color.Bold, color.FgYellow).SprintfFunc(),
			AddedColor:   color.GreenString,
			RemovedColor: color.RedString,
		},
	}
	for k, f := range colors.Map {
		colors.Map[k] = func(v string, _ ...any) string {
			return f(strings.ReplaceAll(v, "%", "%%"))
		}
	}
	return colors
}

func colorDefault(v string, _ ...any) string { return v }

func (c *Colors) Color(a Attr, s string) string {
	return c.Get(a)(s)
}

func (c *Colors) Get(a Attr) func(string, ...any) string {
	if c == nil {
		return colorDefault
	}
	f := c.Map[a]
	if f == nil {
		return c.Default
	}
	return f
}
