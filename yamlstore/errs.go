package yamlstore

import "errors"

var (
	errInternal = errors.New("internal error")

	ErrParse            = errors.New("parse error")
	ErrNotMapping       = errors.New("document is not a mapping")
	ErrNoItems          = errors.New("no items or notes sequence")
	ErrMissingText      = errors.New("entry has no text or note")
	ErrMalformed        = errors.New("malformed entry")
	ErrIncludeCycle     = errors.New("include cycle")
	ErrDuplicateInclude = errors.New("file included twice")
	ErrReservedKey      = errors.New("reserved key")
	ErrTextRequired     = errors.New("entry text cannot be deleted")
	ErrNotLoaded        = errors.New("store not loaded")
	ErrUnbound          = errors.New("node has no syntax binding")
	ErrOutOfSync        = errors.New("tree and document out of sync")
)
