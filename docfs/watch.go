package docfs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Op uint8

const (
	Modified Op = iota + 1
	Removed
)

func (o Op) String() string {
	switch o {
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change reports a document changed outside of the process.
type Change struct {
	Name string
	Op   Op
}

// DefaultDelay is the quiet period Watch waits for before reporting.
const DefaultDelay = 100 * time.Millisecond

// Watch reports changes of documents directly under d.Root until ctx is
// done. Bursts of events for one file within delay are coalesced into one
// Change. fn runs on the calling goroutine.
func (d *Dir) Watch(ctx context.Context, delay time.Duration, fn func(Change)) error {
	if delay <= 0 {
		delay = DefaultDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(d.Root); err != nil {
		return err
	}
	b := newDebouncer(delay)
	defer b.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(ev.Name)
			if !IsDocument(base) {
				continue
			}
			c := Change{Name: base, Op: Modified}
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				c.Op = Removed
			}
			b.add(c)
		case f := <-b.fired:
			if c, ok := b.take(f); ok {
				fn(c)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

type firing struct {
	c   Change
	gen uint64
}

type timed struct {
	t   *time.Timer
	gen uint64
}

// debouncer holds one timer per file name. Only the loop goroutine calls
// add and take; timers deliver on fired until stop.
type debouncer struct {
	delay   time.Duration
	fired   chan firing
	done    chan struct{}
	gen     uint64
	pending map[string]timed
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		fired:   make(chan firing),
		done:    make(chan struct{}),
		pending: map[string]timed{},
	}
}

// add (re)starts the timer of c.Name.
func (b *debouncer) add(c Change) {
	if p, ok := b.pending[c.Name]; ok {
		p.t.Stop()
	}
	b.gen++
	f := firing{c: c, gen: b.gen}
	b.pending[c.Name] = timed{gen: f.gen, t: time.AfterFunc(b.delay, func() {
		select {
		case b.fired <- f:
		case <-b.done:
		}
	})}
}

// take accepts f unless a later add superseded it.
func (b *debouncer) take(f firing) (Change, bool) {
	p, ok := b.pending[f.c.Name]
	if !ok || p.gen != f.gen {
		return Change{}, false
	}
	delete(b.pending, f.c.Name)
	return f.c, true
}

// stop cancels pending timers and releases timers already firing.
func (b *debouncer) stop() {
	for _, p := range b.pending {
		p.t.Stop()
	}
	close(b.done)
}
