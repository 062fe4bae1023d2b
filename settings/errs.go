package settings

import "errors"

var (
	ErrBadValue     = errors.New("bad settings value")
	ErrUnknownField = errors.New("unknown settings field")
)
