// Package yamlstore keeps an outline tree and a set of YAML documents in
// sync.
//
// A Store loads a document into a tree.Node tree, following include
// markers into further documents, and then observes the tree: every
// mutation is mirrored into the parsed documents so that saving rewrites
// only what changed and keeps comments, ordering and formatting of
// everything else.
package yamlstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signadot/paperplane/debug"
	"github.com/signadot/paperplane/docfs"
	"github.com/signadot/paperplane/tree"
)

// Manual disables autosave.
const Manual time.Duration = -1

type options struct {
	throttle time.Duration
	logger   *slog.Logger
}

type Option func(*options)

// WithThrottle saves automatically d after the last change. A negative d
// (Manual) leaves saving to the caller.
func WithThrottle(d time.Duration) Option {
	return func(o *options) { o.throttle = d }
}

// WithLogger sets the logger used to report autosave failures. If logger
// is nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type Store[T any] struct {
	tree.Nop[T]

	fs        docfs.FileSystem
	observers *tree.Observers[T]
	logger    *slog.Logger

	mu       sync.Mutex
	throttle time.Duration
	timer    *time.Timer
	loading  bool
	root     *tree.Node[T]
	files    []*FileNode
	bindings map[*tree.Node[T]]Syntax
}

// New creates a store reading and writing through fs. The store adds
// itself to observers after the observers already registered.
func New[T any](fs docfs.FileSystem, observers *tree.Observers[T], opts ...Option) *Store[T] {
	o := &options{throttle: Manual}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if observers == nil {
		observers = tree.NewObservers[T]()
	}
	s := &Store[T]{
		fs:        fs,
		observers: observers,
		logger:    o.logger,
		throttle:  o.throttle,
		bindings:  map[*tree.Node[T]]Syntax{},
	}
	observers.Add(s)
	return s
}

func (s *Store[T]) Observers() *tree.Observers[T] {
	return s.observers
}

// SetThrottle changes the autosave delay. Pending autosaves are
// rescheduled with the new delay.
func (s *Store[T]) SetThrottle(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = d
	if s.timer != nil {
		s.stopTimer()
		s.scheduleSave()
	}
}

// Root returns the root of the loaded tree, or nil before a successful
// Load.
func (s *Store[T]) Root() *tree.Node[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// FileState describes one loaded file.
type FileState struct {
	Name     string
	Dirty    bool
	Included bool
}

// Files lists the loaded files in load order, the top-level file first.
func (s *Store[T]) Files() []FileState {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]FileState, len(s.files))
	for i, f := range s.files {
		res[i] = FileState{Name: f.Filename, Dirty: f.Dirty, Included: f.Included()}
	}
	return res
}

// Syntax returns the binding of n.
func (s *Store[T]) Syntax(n *tree.Node[T]) (Syntax, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	syn, ok := s.bindings[n]
	return syn, ok
}

// FileOf returns the name of the file holding the properties of n.
func (s *Store[T]) FileOf(n *tree.Node[T]) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	syn, ok := s.bindings[n]
	if !ok {
		return "", false
	}
	return syn.File().Filename, true
}

// Pending describes a file that would be written by Save.
type Pending struct {
	Name string
	Old  string
	New  string
}

// Pending returns the dirty files with their current and future contents.
func (s *Store[T]) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Pending
	for _, f := range s.files {
		if !f.Dirty {
			continue
		}
		res = append(res, Pending{Name: f.Filename, Old: f.Contents, New: f.doc.String()})
	}
	return res
}

// Save writes every dirty file. A failed write stops the save; files
// written before it are clean and the rest stay dirty.
func (s *Store[T]) Save(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimer()
	s.mu.Unlock()

	if err := s.observers.Notify(func(o tree.Observer[T]) error {
		return o.Saving(ctx)
	}); err != nil {
		return err
	}
	if err := s.writeDirty(ctx); err != nil {
		return err
	}
	return s.observers.Notify(func(o tree.Observer[T]) error {
		return o.Saved(ctx)
	})
}

func (s *Store[T]) writeDirty(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if !f.Dirty {
			continue
		}
		contents := f.doc.String()
		if err := s.fs.Write(ctx, f.Filename, contents); err != nil {
			return fmt.Errorf("writing %s: %w", f.Filename, err)
		}
		if debug.Store() {
			debug.Logf("store: wrote %s (%d bytes)\n", f.Filename, len(contents))
		}
		f.Contents = contents
		f.Dirty = false
	}
	return nil
}

// markDirty flags f and schedules an autosave. s.mu is held.
func (s *Store[T]) markDirty(f *FileNode) {
	if f == nil || s.loading {
		return
	}
	f.Dirty = true
	s.scheduleSave()
}

// scheduleSave restarts the autosave timer. s.mu is held.
func (s *Store[T]) scheduleSave() {
	if s.throttle < 0 {
		return
	}
	s.stopTimer()
	s.timer = time.AfterFunc(s.throttle, func() {
		if err := s.Save(context.Background()); err != nil {
			s.logger.Error("autosave failed", "error", err)
		}
	})
}

// stopTimer cancels a pending autosave. s.mu is held.
func (s *Store[T]) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close cancels a pending autosave without saving.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}
