// Package docfs abstracts where outline documents are stored.
package docfs

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"
)

var (
	ErrNotExist = fs.ErrNotExist
	ErrExist    = errors.New("file already exists")
	ErrBadName  = errors.New("bad file name")
)

// Ext is the extension of outline documents.
const Ext = ".yaml"

// DefaultContents is what Create writes when given no contents.
const DefaultContents = "items:\n- text: hello world\n"

// FileSystem is the storage a document store reads and writes.
type FileSystem interface {
	// Read returns the contents of name, or an error wrapping ErrNotExist.
	Read(ctx context.Context, name string) (string, error)
	// Write replaces the contents of name, creating it as needed.
	Write(ctx context.Context, name, contents string) error
	// Files lists the document names, sorted.
	Files(ctx context.Context) ([]string, error)
	// Create writes a new file and fails with ErrExist if name exists.
	// Empty contents are replaced by DefaultContents.
	Create(ctx context.Context, name, contents string) error
}

// IsDocument reports whether name is an outline document. Hidden files
// are not.
func IsDocument(name string) bool {
	return strings.HasSuffix(name, Ext) && !strings.HasPrefix(path.Base(name), ".")
}
