// Package settings holds user preferences and notifies listeners when
// they change.
package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/signadot/paperplane/docfs"
)

// File is where settings are kept, next to the documents. Being hidden it
// is never listed as a document.
const File = ".paperplane.yaml"

type Field string

const (
	Autosave         Field = "autosave"
	AutosaveInterval Field = "autosaveInterval"
	CachePlainText   Field = "cachePlainText"
	HistorySize      Field = "historySize"
	DefaultDocument  Field = "defaultDocument"
)

type Settings struct {
	Autosave bool `yaml:"autosave"`
	// AutosaveInterval is the autosave delay in milliseconds.
	AutosaveInterval int    `yaml:"autosaveInterval"`
	CachePlainText   bool   `yaml:"cachePlainText"`
	HistorySize      int    `yaml:"historySize"`
	DefaultDocument  string `yaml:"defaultDocument"`
}

func Default() Settings {
	return Settings{
		HistorySize:     100,
		DefaultDocument: "index.yaml",
	}
}

// Throttle returns the autosave delay, or false when autosave is off.
func (s Settings) Throttle() (time.Duration, bool) {
	if !s.Autosave {
		return 0, false
	}
	return time.Duration(max(s.AutosaveInterval, 0)) * time.Millisecond, true
}

// Notifier owns a Settings value. Every setter that changes a field calls
// the listeners of that field and then the listeners of all fields.
type Notifier struct {
	mu        sync.Mutex
	s         Settings
	listeners map[Field][]func(Settings)
	all       []func(Settings)
}

func NewNotifier(s Settings) *Notifier {
	return &Notifier{s: s, listeners: map[Field][]func(Settings){}}
}

func (n *Notifier) Get() Settings {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.s
}

// Listen registers fn for changes of f. With callNow fn is also called
// right away with the current settings.
func (n *Notifier) Listen(f Field, fn func(Settings), callNow bool) {
	n.mu.Lock()
	n.listeners[f] = append(n.listeners[f], fn)
	s := n.s
	n.mu.Unlock()
	if callNow {
		fn(s)
	}
}

// ListenAll registers fn for changes of any field.
func (n *Notifier) ListenAll(fn func(Settings)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, fn)
}

func (n *Notifier) SetAutosave(v bool) {
	set(n, Autosave, &n.s.Autosave, v)
}

func (n *Notifier) SetAutosaveInterval(ms int) {
	set(n, AutosaveInterval, &n.s.AutosaveInterval, ms)
}

func (n *Notifier) SetCachePlainText(v bool) {
	set(n, CachePlainText, &n.s.CachePlainText, v)
}

func (n *Notifier) SetHistorySize(v int) {
	set(n, HistorySize, &n.s.HistorySize, v)
}

func (n *Notifier) SetDefaultDocument(v string) {
	set(n, DefaultDocument, &n.s.DefaultDocument, v)
}

// Set assigns a field from its text form, as given on a command line.
func (n *Notifier) Set(f Field, text string) error {
	switch f {
	case Autosave, CachePlainText:
		var v bool
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadValue, f, err)
		}
		if f == Autosave {
			n.SetAutosave(v)
		} else {
			n.SetCachePlainText(v)
		}
	case AutosaveInterval, HistorySize:
		var v int
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadValue, f, err)
		}
		if f == AutosaveInterval {
			n.SetAutosaveInterval(v)
		} else {
			n.SetHistorySize(v)
		}
	case DefaultDocument:
		n.SetDefaultDocument(text)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return nil
}

func set[V comparable](n *Notifier, f Field, p *V, v V) {
	n.mu.Lock()
	if *p == v {
		n.mu.Unlock()
		return
	}
	*p = v
	s := n.s
	fns := append(slices.Clone(n.listeners[f]), n.all...)
	n.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Load reads File from fsys. A missing file yields Default.
func Load(ctx context.Context, fsys docfs.FileSystem) (*Notifier, error) {
	s := Default()
	text, err := fsys.Read(ctx, File)
	switch {
	case errors.Is(err, docfs.ErrNotExist):
		return NewNotifier(s), nil
	case err != nil:
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadValue, File, err)
	}
	return NewNotifier(s), nil
}

// Save writes the current settings to File in fsys.
func (n *Notifier) Save(ctx context.Context, fsys docfs.FileSystem) error {
	d, err := yaml.Marshal(n.Get())
	if err != nil {
		return err
	}
	return fsys.Write(ctx, File, string(d))
}
