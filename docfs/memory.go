package docfs

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Memory is a FileSystem held in a map. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	files  map[string]string
	writes []string
}

func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: maps.Clone(files)}
	if m.files == nil {
		m.files = map[string]string{}
	}
	return m
}

var _ FileSystem = (*Memory)(nil)

func (m *Memory) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.files[name]
	if !ok {
		return "", fmt.Errorf("read %s: %w", name, ErrNotExist)
	}
	return c, nil
}

func (m *Memory) Write(ctx context.Context, name, contents string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = contents
	m.writes = append(m.writes, name)
	return nil
}

func (m *Memory) Files(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []string
	for name := range m.files {
		if IsDocument(name) {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res, nil
}

func (m *Memory) Create(ctx context.Context, name, contents string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return fmt.Errorf("create %s: %w", name, ErrExist)
	}
	if contents == "" {
		contents = DefaultContents
	}
	m.files[name] = contents
	m.writes = append(m.writes, name)
	return nil
}

// Writes returns the names written so far, in order, including repeats.
func (m *Memory) Writes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.writes)
}

// Contents returns a snapshot of all files.
func (m *Memory) Contents() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.files)
}
